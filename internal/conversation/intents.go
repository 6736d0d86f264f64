package conversation

import (
	"regexp"
	"strings"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

// resetCommand resets from any step.
const resetCommand = "/reset"

var resetPattern = regexp.MustCompile(`(?i)\b(start over|start again|begin again|new quote|another quote|reset|restart)\b`)

var affirmatives = []string{
	"yes", "y", "yeah", "yep", "yup", "sure", "ok", "okay", "confirm", "confirmed",
	"correct", "accept", "accepted", "go ahead", "sounds good", "looks good", "please do",
}

var negatives = []string{
	"no", "n", "nope", "nah", "not now", "no thanks", "decline", "reject",
}

var noFinishPhrases = []string{
	"none", "no finish", "no finishes", "skip", "without finish", "nothing", "no",
}

var changePattern = regexp.MustCompile(`(?i)\b(change|edit|update|modify|fix|different)\b.*?\b(category|product|materials?|finish(?:es)?|quantit(?:y|ies)|qty|size|dimensions?)\b`)

var listSeparator = regexp.MustCompile(`\s*(?:,|;|\band\b|&)\s*`)

func normalizeAnswer(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Trim(text, ".!?, ")
	return strings.Join(strings.Fields(text), " ")
}

func matchesAny(text string, phrases []string) bool {
	t := normalizeAnswer(text)
	if t == "" {
		return false
	}
	for _, p := range phrases {
		if t == p || strings.HasPrefix(t, p+" ") || strings.HasPrefix(t, p+",") {
			return true
		}
	}
	return false
}

func isAffirmative(text string) bool {
	return matchesAny(text, affirmatives)
}

// affirmativeRest returns what follows the leading affirmative phrase, or ""
// when nothing does.
func affirmativeRest(text string) string {
	t := normalizeAnswer(text)
	best := ""
	for _, p := range affirmatives {
		if len(p) > len(best) && (strings.HasPrefix(t, p+" ") || strings.HasPrefix(t, p+",")) {
			best = p
		}
	}
	if best == "" {
		return ""
	}
	return strings.Trim(t[len(best):], " ,")
}

func isNegative(text string) bool {
	return matchesAny(text, negatives)
}

func isNoFinish(text string) bool {
	t := normalizeAnswer(text)
	for _, p := range noFinishPhrases {
		if t == p {
			return true
		}
	}
	return false
}

// isResetCommand reports whether text is the explicit reset command.
func isResetCommand(text string) bool {
	return normalizeAnswer(text) == resetCommand
}

// isResetIntent reports whether text asks to restart the conversation.
func isResetIntent(text string) bool {
	return resetPattern.MatchString(text)
}

// changeTarget returns the step a "change X" request jumps back to.
func changeTarget(text string) (model.Step, bool) {
	m := changePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	field := strings.ToLower(m[2])
	switch {
	case field == "category":
		return model.StepCategorySelection, true
	case field == "product":
		return model.StepProductSelection, true
	case strings.HasPrefix(field, "material"):
		return model.StepMaterialSelection, true
	case strings.HasPrefix(field, "finish"):
		return model.StepFinishSelection, true
	case strings.HasPrefix(field, "quantit"), field == "qty":
		return model.StepQuantityInput, true
	default:
		return model.StepDimensionInput, true
	}
}

// splitList splits a multi-value answer such as "PET, PE and foil".
func splitList(text string) []string {
	var out []string
	for _, part := range listSeparator.Split(text, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
