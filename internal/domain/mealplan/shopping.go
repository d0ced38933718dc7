package mealplan

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// ShoppingListFilename is the name of the exported text file
const ShoppingListFilename = "shopping-list.txt"

// Item is one deduplicated ingredient of the shopping list
type Item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Line renders the item as "<name> (x<count>)"
func (i Item) Line() string {
	return fmt.Sprintf("%s (x%d)", i.Name, i.Count)
}

// ShoppingList is the aggregate of all ingredients in a plan
type ShoppingList struct {
	Items     []Item  `json:"items"`
	TotalCost float64 `json:"total_cost"`
}

// BuildShoppingList groups every ingredient of the plan by its trimmed,
// lower-cased form, counting occurrences and keeping the first spelling seen
// for display. Costs of all slots that carry one are summed. Items are sorted
// case-insensitively by name. Blank ingredients are skipped.
func BuildShoppingList(plan Plan) ShoppingList {
	index := make(map[string]int)
	list := ShoppingList{Items: []Item{}}

	plan.Each(func(_ Day, _ Slot, meal *Meal) {
		for _, raw := range meal.Ingredients {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if i, ok := index[key]; ok {
				list.Items[i].Count++
				continue
			}
			index[key] = len(list.Items)
			list.Items = append(list.Items, Item{Name: name, Count: 1})
		}
		if meal.Cost != nil {
			list.TotalCost += *meal.Cost
		}
	})

	sort.SliceStable(list.Items, func(i, j int) bool {
		return strings.ToLower(list.Items[i].Name) < strings.ToLower(list.Items[j].Name)
	})

	return list
}

// FormatTotal renders the total cost with two decimals
func (s ShoppingList) FormatTotal() string {
	return FormatCost(s.TotalCost)
}

// IsEmpty reports whether the list has no items
func (s ShoppingList) IsEmpty() bool {
	return len(s.Items) == 0
}

// Text renders the list in the export format, one item per line
func (s ShoppingList) Text() string {
	var b strings.Builder
	_ = s.WriteText(&b)
	return b.String()
}

// WriteText writes the export format to w
func (s ShoppingList) WriteText(w io.Writer) error {
	for _, item := range s.Items {
		if _, err := io.WriteString(w, item.Line()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// FormatCost renders an amount with two decimals
func FormatCost(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}
