// Package mealplan models a weekly meal plan and derives the shopping list
// and nutrition summaries shown by the planner.
//
// Plan data comes wholesale from the backend or the sample catalog and is
// decoded leniently: a slot or field of an unexpected shape is treated as
// absent rather than rejected.
package mealplan

import (
	"bytes"
	"encoding/json"
)

// Slot names a meal of the day
type Slot string

const (
	Breakfast Slot = "breakfast"
	Lunch     Slot = "lunch"
	Dinner    Slot = "dinner"
)

// Slots lists the meal slots in display order
var Slots = []Slot{Breakfast, Lunch, Dinner}

// Nutrition is the nutrient content of one meal
type Nutrition struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`
}

// Meal is the recipe-like content of a filled slot. Nil pointers mean the
// field was absent.
type Meal struct {
	Title       string     `json:"title,omitempty" yaml:"title"`
	Image       string     `json:"image,omitempty" yaml:"image"`
	Ingredients []string   `json:"ingredients,omitempty" yaml:"ingredients"`
	Cost        *float64   `json:"cost,omitempty" yaml:"cost"`
	Nutrition   *Nutrition `json:"nutrition,omitempty" yaml:"nutrition"`
}

// UnmarshalJSON keeps every field that decodes and drops the rest
func (m *Meal) UnmarshalJSON(data []byte) error {
	*m = Meal{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	decodeString(fields["title"], &m.Title)
	decodeString(fields["image"], &m.Image)

	if raw, ok := fields["ingredients"]; ok {
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) == nil {
			for _, item := range items {
				var s string
				if !isNull(item) && json.Unmarshal(item, &s) == nil {
					m.Ingredients = append(m.Ingredients, s)
				}
			}
		}
	}

	if raw, ok := fields["cost"]; ok {
		var cost float64
		if json.Unmarshal(raw, &cost) == nil && !isNull(raw) {
			m.Cost = &cost
		}
	}

	if raw, ok := fields["nutrition"]; ok && isObject(raw) {
		var n nutritionWire
		if json.Unmarshal(raw, &n) == nil {
			m.Nutrition = &Nutrition{
				Calories: float64(n.Calories),
				Protein:  float64(n.Protein),
				Carbs:    float64(n.Carbs),
				Fat:      float64(n.Fat),
			}
		}
	}

	return nil
}

// nutritionWire tolerates a nutrient of the wrong type
type nutritionWire struct {
	Calories lenientNumber `json:"calories"`
	Protein  lenientNumber `json:"protein"`
	Carbs    lenientNumber `json:"carbs"`
	Fat      lenientNumber `json:"fat"`
}

type lenientNumber float64

func (n *lenientNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if json.Unmarshal(data, &f) == nil {
		*n = lenientNumber(f)
	}
	return nil
}

// Day is one day of the plan
type Day struct {
	Day       string `json:"day" yaml:"day"`
	Breakfast *Meal  `json:"breakfast,omitempty" yaml:"breakfast"`
	Lunch     *Meal  `json:"lunch,omitempty" yaml:"lunch"`
	Dinner    *Meal  `json:"dinner,omitempty" yaml:"dinner"`
}

// UnmarshalJSON treats any non-object slot as empty
func (d *Day) UnmarshalJSON(data []byte) error {
	*d = Day{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	decodeString(fields["day"], &d.Day)
	d.Breakfast = decodeMeal(fields[string(Breakfast)])
	d.Lunch = decodeMeal(fields[string(Lunch)])
	d.Dinner = decodeMeal(fields[string(Dinner)])
	return nil
}

// Meal returns the meal in the given slot, or nil
func (d Day) Meal(slot Slot) *Meal {
	switch slot {
	case Breakfast:
		return d.Breakfast
	case Lunch:
		return d.Lunch
	case Dinner:
		return d.Dinner
	default:
		return nil
	}
}

// Plan is an ordered sequence of days, normally seven
type Plan []Day

// UnmarshalJSON accepts either an array of days or an object wrapping one
// under "days" or "plan".
func (p *Plan) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isObject(data) {
		var wrapper struct {
			Days json.RawMessage `json:"days"`
			Plan json.RawMessage `json:"plan"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return err
		}
		switch {
		case len(wrapper.Days) > 0:
			data = wrapper.Days
		case len(wrapper.Plan) > 0:
			data = wrapper.Plan
		default:
			*p = nil
			return nil
		}
	}

	var days []json.RawMessage
	if err := json.Unmarshal(data, &days); err != nil {
		*p = nil
		return nil
	}

	out := make(Plan, 0, len(days))
	for _, raw := range days {
		if !isObject(raw) {
			continue
		}
		var d Day
		_ = d.UnmarshalJSON(raw)
		out = append(out, d)
	}
	*p = out
	return nil
}

// Each calls fn for every filled slot in plan order
func (p Plan) Each(fn func(day Day, slot Slot, meal *Meal)) {
	for _, day := range p {
		for _, slot := range Slots {
			if meal := day.Meal(slot); meal != nil {
				fn(day, slot, meal)
			}
		}
	}
}

func decodeMeal(raw json.RawMessage) *Meal {
	if !isObject(raw) {
		return nil
	}
	var m Meal
	_ = m.UnmarshalJSON(raw)
	return &m
}

func decodeString(raw json.RawMessage, dst *string) {
	if len(raw) == 0 {
		return
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		*dst = s
	}
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
