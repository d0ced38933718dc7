package mealplan

import "math"

// Averages are per-meal nutrient averages rounded to whole numbers
type Averages struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// DayTotals is the nutrition of one day of the plan
type DayTotals struct {
	Day    string    `json:"day"`
	Totals Nutrition `json:"totals"`
	Meals  int       `json:"meals"`
}

// NutritionSummary is the weekly nutrition aggregate
type NutritionSummary struct {
	Totals    Nutrition   `json:"totals"`
	TotalCost float64     `json:"total_cost"`
	Meals     int         `json:"meals"`
	Averages  Averages    `json:"averages"`
	Days      []DayTotals `json:"days"`
}

// WeeklyNutrition sums nutrients and cost over every slot that carries a
// nutrition object. Slots without one are skipped entirely and do not count
// towards the averages.
func WeeklyNutrition(plan Plan) NutritionSummary {
	summary := NutritionSummary{Days: make([]DayTotals, 0, len(plan))}

	for _, day := range plan {
		dt := DayTotals{Day: day.Day}
		for _, slot := range Slots {
			meal := day.Meal(slot)
			if meal == nil || meal.Nutrition == nil {
				continue
			}
			dt.Totals = dt.Totals.add(*meal.Nutrition)
			dt.Meals++
			if meal.Cost != nil {
				summary.TotalCost += *meal.Cost
			}
		}
		summary.Totals = summary.Totals.add(dt.Totals)
		summary.Meals += dt.Meals
		summary.Days = append(summary.Days, dt)
	}

	summary.Averages = Averages{
		Calories: average(summary.Totals.Calories, summary.Meals),
		Protein:  average(summary.Totals.Protein, summary.Meals),
		Carbs:    average(summary.Totals.Carbs, summary.Meals),
		Fat:      average(summary.Totals.Fat, summary.Meals),
	}
	return summary
}

// FormatCost renders the summed cost with two decimals
func (s NutritionSummary) FormatCost() string {
	return FormatCost(s.TotalCost)
}

func (n Nutrition) add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
	}
}

func average(total float64, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(total / float64(count)))
}
