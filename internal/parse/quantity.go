// Package parse extracts quantities and dimensions from free text with
// fixed patterns. It runs only in steps that ask for numbers.
package parse

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoQuantity is returned when the text holds no usable quantity.
	ErrNoQuantity = errors.New("no quantity found")

	// ErrNoDimensions is returned when the text holds no usable dimension.
	ErrNoDimensions = errors.New("no dimensions found")
)

// MaxTiers bounds how many quantities one answer may quote side by side.
const MaxTiers = 5

// quantityPattern tries K-notation first, then a comma-grouped integer, then
// a plain number. Decimals are captured so "2.5" is not read as 2 and 5.
var quantityPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*k\b|(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?`)

var skuPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:skus?|designs?|versions?|artworks?)\b`)

// Quantity returns the first quantity in text.
func Quantity(text string) (int, error) {
	qs, err := Quantities(text)
	if err != nil {
		return 0, err
	}
	return qs[0], nil
}

// Quantities returns every quantity in text, in order, without duplicates and
// at most MaxTiers of them. "2.5k" is 2500 and "50,000" is 50000. A plain
// number with a fractional part is not a quantity. The SKU phrase ("3 skus")
// is ignored here; see SKUCount.
func Quantities(text string) ([]int, error) {
	text = skuPattern.ReplaceAllString(text, " ")

	var out []int
	seen := make(map[int]struct{})
	for _, m := range quantityPattern.FindAllStringSubmatch(text, -1) {
		n, ok := quantityValue(m)
		if !ok || n <= 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
		if len(out) == MaxTiers {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoQuantity
	}
	return out, nil
}

func quantityValue(m []string) (int, bool) {
	if m[1] != "" {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f * 1000)), true
	}
	if m[3] != "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// SKUCount returns the number of SKUs named in text ("3 designs"), or 0.
func SKUCount(text string) int {
	m := skuPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
