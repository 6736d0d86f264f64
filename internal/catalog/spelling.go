package catalog

import (
	"regexp"
)

// corrections maps known misspellings to the catalog's preferred spelling.
// Keep this an explicit list: edit-distance matching reintroduces the false
// positives between short material tokens that the lookup levels avoid.
var corrections = map[string]string{
	"craft":     "kraft",
	"ziplock":   "ziploc",
	"zip-lock":  "ziploc",
	"pouche":    "pouch",
	"pouchs":    "pouches",
	"laminent":  "laminate",
	"aluminium": "aluminum",
	"alumnium":  "aluminum",
	"glossey":   "glossy",
	"matt":      "matte",
	"metalized": "metallized",
	"guseted":   "gusseted",
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*`)

// correctSpelling returns the folded input with every known misspelling
// replaced. The result equals fold(s) when nothing was corrected.
func correctSpelling(s string) string {
	return wordPattern.ReplaceAllStringFunc(fold(s), func(word string) string {
		if fixed, ok := corrections[word]; ok {
			return fixed
		}
		return word
	})
}
