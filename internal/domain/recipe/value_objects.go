package recipe

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Value Objects - Immutable objects that describe aspects of a recipe

// ID identifies a recipe. The backend sends it either as a JSON number or a
// JSON string; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a number or a string. Any other value, null
// included, leaves the id empty.
func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ""
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*id = ID(s)
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID(n.String())
	}
	return nil
}

// String returns the textual identifier
func (id ID) String() string {
	return string(id)
}

// Macros is the macro-nutrient breakdown of one serving, in grams
type Macros struct {
	Protein float64 `json:"protein" yaml:"protein"`
	Carbs   float64 `json:"carbs" yaml:"carbs"`
	Fat     float64 `json:"fat" yaml:"fat"`
}

// IsZero reports whether no macro is known
func (m Macros) IsZero() bool {
	return m.Protein == 0 && m.Carbs == 0 && m.Fat == 0
}

// DifficultyLevel represents recipe difficulty
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// ParseDifficulty normalizes a free-text difficulty. Unknown values map to "".
func ParseDifficulty(s string) DifficultyLevel {
	switch DifficultyLevel(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy, "beginner":
		return DifficultyEasy
	case DifficultyMedium, "intermediate":
		return DifficultyMedium
	case DifficultyHard, "advanced", "expert":
		return DifficultyHard
	default:
		return ""
	}
}

// leadingNumber parses the number a string starts with, so "12g" and
// "350 kcal" both yield their quantity
func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || c == '.' || end == 0 && (c == '-' || c == '+') {
			end++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	return f, err == nil
}

// flexibleFloat decodes a JSON number or a string starting with a number;
// anything else is zero.
type flexibleFloat float64

func (f *flexibleFloat) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		*f = flexibleFloat(t)
	case string:
		if n, ok := leadingNumber(t); ok {
			*f = flexibleFloat(n)
		}
	}
	return nil
}

// flexibleInt is flexibleFloat truncated to an integer
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	var n flexibleFloat
	_ = n.UnmarshalJSON(data)
	*f = flexibleInt(n)
	return nil
}

// flexibleText decodes a JSON string or number into text; anything else is "".
type flexibleText string

func (f *flexibleText) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		*f = flexibleText(t)
	case float64:
		*f = flexibleText(strconv.FormatFloat(t, 'f', -1, 64))
	}
	return nil
}

// flexibleTags accepts a list of strings or one comma separated string.
// Blank and non-string entries are dropped.
type flexibleTags []string

func (f *flexibleTags) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}

	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	*f = nil
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			*f = append(*f, s)
		}
	}
	return nil
}

// flexibleMacros decodes a macros object with lenient numbers. A value
// that is not an object leaves it unset.
type flexibleMacros struct {
	set   bool
	value Macros
}

func (f *flexibleMacros) UnmarshalJSON(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return nil
	}
	var w struct {
		Protein flexibleFloat `json:"protein"`
		Carbs   flexibleFloat `json:"carbs"`
		Fat     flexibleFloat `json:"fat"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil
	}
	f.set = true
	f.value = Macros{Protein: float64(w.Protein), Carbs: float64(w.Carbs), Fat: float64(w.Fat)}
	return nil
}
