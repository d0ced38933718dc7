package webserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alchemorsel/kitchen/internal/domain/mealplan"
	apperrors "github.com/alchemorsel/kitchen/pkg/errors"
	"github.com/alchemorsel/kitchen/pkg/pagination"
	"github.com/gin-gonic/gin"
)

// paginationQuery is the query of GET /bff/pagination
type paginationQuery struct {
	Current int `form:"current" json:"current"`
	Last    int `form:"last" json:"last" validate:"omitempty,max=100000"`
	Size    int `form:"size" json:"size" validate:"omitempty,min=1,max=21"`
}

type shoppingListResponse struct {
	mealplan.ShoppingList
	Total string `json:"total"`
	Text  string `json:"text"`
}

type nutritionResponse struct {
	mealplan.NutritionSummary
	Cost string `json:"cost"`
}

// bffEngine builds the JSON helper API for scripted clients. It is mounted
// under /bff on the chi router, which leaves the request path intact.
func (s *WebServer) bffEngine() *gin.Engine {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		s.middleware.GinRequestID(),
		s.middleware.GinLogger(),
		s.middleware.GinRecovery(),
		s.middleware.GinErrorHandler(),
	)

	bff := engine.Group("/bff")
	bff.POST("/shopping-list", s.bffShoppingList)
	bff.POST("/nutrition", s.bffNutrition)
	bff.GET("/pagination", s.bffPagination)

	engine.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.NewNotFoundError("route"))
	})

	return engine
}

func (s *WebServer) bffShoppingList(c *gin.Context) {
	plan, err := bindPlan(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	list := mealplan.BuildShoppingList(plan)
	if list.Items == nil {
		list.Items = []mealplan.Item{}
	}
	c.JSON(http.StatusOK, shoppingListResponse{
		ShoppingList: list,
		Total:        list.FormatTotal(),
		Text:         list.Text(),
	})
}

func (s *WebServer) bffNutrition(c *gin.Context) {
	plan, err := bindPlan(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	summary := mealplan.WeeklyNutrition(plan)
	c.JSON(http.StatusOK, nutritionResponse{NutritionSummary: summary, Cost: summary.FormatCost()})
}

func (s *WebServer) bffPagination(c *gin.Context) {
	var q paginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperrors.NewValidationError("current, last and size must be integers"))
		return
	}
	if err := s.validate.Struct(q); err != nil {
		_ = c.Error(validationError(err))
		return
	}

	size := q.Size
	if size == 0 {
		size = pagination.DefaultWindowSize
	}
	c.JSON(http.StatusOK, pagination.NewWindow(q.Current, q.Last, size))
}

// bindPlan decodes a meal plan body. Malformed days and slots are dropped by
// the plan decoder; only a body that is not JSON at all is rejected.
func bindPlan(c *gin.Context) (mealplan.Plan, error) {
	data, err := c.GetRawData()
	if err != nil {
		return nil, apperrors.NewBadRequestError("failed to read request body")
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, apperrors.NewBadRequestError("request body must be a meal plan")
	}

	var plan mealplan.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, apperrors.NewBadRequestError("request body is not valid JSON")
	}
	return plan, nil
}

// alertTrigger builds the HX-Trigger header value that makes the page show
// a blocking alert
func alertTrigger(message string) string {
	data, _ := json.Marshal(map[string]map[string]string{
		"showAlert": {"message": message},
	})
	return string(data)
}
