package flow

import (
	"regexp"
	"strconv"
	"strings"

	"recipeagent"
)

type selectionKind int

const (
	selectMore selectionKind = iota
	selectPick
	selectAmbiguous
	selectInvalid
	selectRestart
)

type selection struct {
	kind    selectionKind
	index   int      // valid for selectPick
	matches []string // candidate titles, for selectAmbiguous
}

var (
	moreRE  = regexp.MustCompile(`\b(more|another|other|others|different|regenerate|new)\b`)
	indexRE = regexp.MustCompile(`\b(\d+)\b`)
)

var ordinals = []struct {
	word  string
	index int
}{
	{"first", 0},
	{"second", 1},
	{"third", 2},
}

// resolveSelection interprets a reply to a pending candidate list. The
// grammar, in order: regeneration words mean "more"; an index in a short
// reply ("2", "number 2") picks by position, out of range is invalid; ordinal
// words pick by position; a case-insensitive substring matching exactly one
// title picks that candidate, matching several is ambiguous. Anything else is
// unrelated to selection and restarts the flow.
func resolveSelection(reply string, candidates []recipeagent.RecipeCandidate) selection {
	text := strings.ToLower(strings.TrimSpace(reply))
	if text == "" {
		return selection{kind: selectInvalid}
	}

	if moreRE.MatchString(text) {
		return selection{kind: selectMore}
	}

	// A digit counts as a pick only in short replies. A longer utterance that
	// happens to contain one ("quick dinner for 2") is a fresh request, not a
	// selection, and must fall through to the restart path.
	if digits := indexRE.FindString(text); digits != "" && len(strings.Fields(text)) <= 3 {
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 || n > len(candidates) {
			return selection{kind: selectInvalid}
		}
		return selection{kind: selectPick, index: n - 1}
	}

	for _, ord := range ordinals {
		if strings.Contains(text, ord.word) {
			if ord.index >= len(candidates) {
				return selection{kind: selectInvalid}
			}
			return selection{kind: selectPick, index: ord.index}
		}
	}
	if strings.Contains(text, "last") && len(candidates) > 0 {
		return selection{kind: selectPick, index: len(candidates) - 1}
	}

	// Title match. Too-short replies ("ok") match inside too many titles to
	// be meaningful.
	if len(text) >= 3 {
		var matched []int
		for i, c := range candidates {
			title := strings.ToLower(c.Title)
			if strings.Contains(title, text) || strings.Contains(text, title) {
				matched = append(matched, i)
			}
		}
		switch len(matched) {
		case 0:
		case 1:
			return selection{kind: selectPick, index: matched[0]}
		default:
			titles := make([]string, len(matched))
			for i, idx := range matched {
				titles[i] = candidates[idx].Title
			}
			return selection{kind: selectAmbiguous, matches: titles}
		}
	}

	return selection{kind: selectRestart}
}
