package webserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/content"
	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	"github.com/alchemorsel/kitchen/internal/infrastructure/monitoring"
	"github.com/alchemorsel/kitchen/internal/platform/i18n"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	suggestionLimit  = 3
	maxMessageLength = 1000
)

// Reply kinds
const (
	ReplyGreeting = "greeting"
	ReplyMatches  = "matches"
	ReplyNewest   = "newest"
	ReplyEmpty    = "empty"
	ReplyOffline  = "offline"
	ReplyInvalid  = "invalid"
)

// ChatTurn is one exchange with the assistant
type ChatTurn struct {
	ID          string          `json:"id"`
	Message     string          `json:"message"`
	Kind        string          `json:"kind"`
	Reply       string          `json:"reply"`
	Suggestions []recipe.Recipe `json:"suggestions,omitempty"`
	At          time.Time       `json:"at"`
}

// Assistant suggests recipes from the AI recipe feed for a free-text message
type Assistant struct {
	api     *APIClient
	catalog *content.Catalog
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
	now     func() time.Time
}

// NewAssistant creates an assistant backed by the recipe API
func NewAssistant(api *APIClient, catalog *content.Catalog, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Assistant {
	return &Assistant{
		api:     api,
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Greeting is the assistant's opening turn
func (a *Assistant) Greeting(l *i18n.Localizer) ChatTurn {
	return ChatTurn{ID: uuid.NewString(), Kind: ReplyGreeting, Reply: l.T("assistant.greeting"), At: a.now()}
}

// Reply answers message. It returns ctx's error when the turn was canceled
// before the answer was ready; backend failures are answered from the
// sample recipes instead.
func (a *Assistant) Reply(ctx context.Context, l *i18n.Localizer, transport, message string) (ChatTurn, error) {
	message = strings.TrimSpace(message)
	turn := ChatTurn{ID: uuid.NewString(), Message: message, At: a.now()}

	if message == "" || len([]rune(message)) > maxMessageLength {
		turn.Kind = ReplyInvalid
		turn.Reply = l.T("assistant.error.empty_message")
		a.metrics.AssistantTurn(transport, turn.Kind)
		return turn, nil
	}

	recipes := a.catalog.AIRecipes
	offline := false
	feed, _, err := a.api.GetAIRecipes(ctx)
	switch {
	case ctx.Err() != nil:
		a.metrics.AssistantTurn(transport, "canceled")
		return ChatTurn{}, ctx.Err()
	case err != nil:
		a.logger.Warn("Assistant falling back to sample recipes", zap.Error(err))
		a.metrics.FallbackServed("ai_recipes")
		offline = true
	default:
		recipes = feed.Recipes
	}

	turn.Suggestions = recipe.Suggest(recipes, message, suggestionLimit)
	switch {
	case len(turn.Suggestions) == 0:
		turn.Kind = ReplyEmpty
		turn.Reply = l.T("assistant.reply.empty")
	case offline:
		turn.Kind = ReplyOffline
		turn.Reply = l.T("assistant.reply.offline")
	case matchesAny(recipes, message):
		turn.Kind = ReplyMatches
		turn.Reply = l.T("assistant.reply.matches", message)
	default:
		turn.Kind = ReplyNewest
		turn.Reply = l.T("assistant.reply.newest")
	}

	a.metrics.AssistantTurn(transport, turn.Kind)
	return turn, nil
}

// matchesAny reports whether any term of message occurs in a recipe
func matchesAny(recipes []recipe.Recipe, message string) bool {
	terms := recipe.Terms(message)
	for _, rec := range recipes {
		haystack := strings.ToLower(rec.Title + " " + rec.Description)
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				return true
			}
		}
	}
	return false
}

func (s *WebServer) handleAssistant(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	view := chatView{
		L:         l,
		Turns:     []ChatTurn{s.assistant.Greeting(l)},
		WebSocket: s.config.Features.EnableAssistantWebSocket,
	}
	s.render(w, http.StatusOK, "assistant", s.newPage(r, "nav.assistant", "/assistant", view))
}

func (s *WebServer) handleHTMXAssistantMessage(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	turn, err := s.assistant.Reply(r.Context(), l, "htmx", r.FormValue("message"))
	if err != nil {
		return
	}
	s.renderPartial(w, http.StatusOK, "chat-turn", chatTurnView{L: l, Turn: turn})
}
