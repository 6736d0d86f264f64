package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

// MaxDimensions is the most numbers one dimension answer is read for.
const MaxDimensions = 3

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

var unitPattern = regexp.MustCompile(`(?i)(\d|\s)(mm|cm|in|inch|inches|")(?:\s|$|[x×*,])`)

var unitNames = map[string]string{
	"mm":     "mm",
	"cm":     "cm",
	"in":     "in",
	"inch":   "in",
	"inches": "in",
	`"`:      "in",
}

// Dimensions reads numbers from text and assigns them, in order, to the
// fields starting at index start. Numbers may be separated by "x", "×", "*",
// commas or "by". Fewer numbers than remaining fields is fine: the caller
// asks again for the rest. unit is used unless the text names one.
func Dimensions(text string, fields []string, start int, unit string) ([]model.Dimension, error) {
	if start < 0 || start >= len(fields) {
		return nil, ErrNoDimensions
	}
	remaining := len(fields) - start
	if remaining > MaxDimensions {
		remaining = MaxDimensions
	}

	if u := textUnit(text); u != "" {
		unit = u
	}

	nums := numberPattern.FindAllString(text, -1)
	var out []model.Dimension
	for _, s := range nums {
		if len(out) == remaining {
			break
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			// A zero must not shift later numbers into its field.
			return nil, ErrNoDimensions
		}
		out = append(out, model.Dimension{
			Name:  fields[start+len(out)],
			Value: v,
			Unit:  unit,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoDimensions
	}
	return out, nil
}

func textUnit(text string) string {
	m := unitPattern.FindStringSubmatch(strings.ToLower(text) + " ")
	if m == nil {
		return ""
	}
	return unitNames[m[2]]
}
