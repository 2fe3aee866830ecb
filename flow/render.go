package flow

import (
	"fmt"
	"strings"

	"recipeagent"
	"recipeagent/pantry"
)

// renderCandidates produces the numbered list shown at the selection prompt.
// previews holds the items-to-buy per candidate and may be nil.
func renderCandidates(candidates []recipeagent.RecipeCandidate, previews [][]recipeagent.Ingredient) string {
	var b strings.Builder
	if len(candidates) == 1 {
		b.WriteString("Here's one option:\n\n")
	} else {
		fmt.Fprintf(&b, "Here are %d options:\n\n", len(candidates))
	}

	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s%s", i+1, c.Title, metaLine(c))
		if previews != nil {
			if missing := previews[i]; len(missing) == 0 {
				b.WriteString(" - you have everything")
			} else {
				fmt.Fprintf(&b, " - to buy: %s", joinIngredientNames(missing))
			}
		}
		b.WriteString("\n")
		if c.Description != "" {
			fmt.Fprintf(&b, "   %s\n", c.Description)
		}
	}

	b.WriteString("\nReply with a number to pick one, or say \"more\" for different ideas.")
	return b.String()
}

// metaLine renders " (20 min, easy)" from whatever metadata the candidate has.
func metaLine(c recipeagent.RecipeCandidate) string {
	parts := make([]string, 0, 2)
	if c.EstMinutes > 0 {
		parts = append(parts, fmt.Sprintf("%d min", c.EstMinutes))
	}
	if c.Difficulty != "" {
		parts = append(parts, string(c.Difficulty))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func renderAmbiguous(titles []string) string {
	var b strings.Builder
	b.WriteString("I'm not sure which one you mean. Did you want:\n")
	for _, title := range titles {
		fmt.Fprintf(&b, "  - %s\n", title)
	}
	b.WriteString("Reply with the number instead.")
	return b.String()
}

func renderInvalidSelection(n int) string {
	if n == 1 {
		return `I didn't catch that. Reply "1" to pick the option, or say "more" for different ideas.`
	}
	return fmt.Sprintf("I didn't catch that. Reply with a number between 1 and %d, or say \"more\" for different ideas.", n)
}

// renderPantry lists the pantry grouped by category in display order.
func renderPantry(grouped map[pantry.Category][]pantry.Item) string {
	var b strings.Builder
	b.WriteString("Your pantry:\n")
	for _, cat := range pantry.Categories {
		items := grouped[cat]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", titleCase(string(cat)))
		for _, it := range items {
			if it.Quantity != "" {
				fmt.Fprintf(&b, "  - %s (%s)\n", it.Name, it.Quantity)
			} else {
				fmt.Fprintf(&b, "  - %s\n", it.Name)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderFinal is the terminal rendering: the full selected recipe plus the
// shopping list derived from the pantry diff.
func renderFinal(c recipeagent.RecipeCandidate, missing []recipeagent.Ingredient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", c.Title, metaLine(c))
	if c.Description != "" {
		b.WriteString(c.Description + "\n")
	}
	if c.Source == recipeagent.SourceRetrieved && c.SourceRef != "" {
		fmt.Fprintf(&b, "From: %s\n", c.SourceRef)
	}

	b.WriteString("\nIngredients:\n")
	for _, ing := range c.Ingredients {
		if ing.Quantity != "" {
			fmt.Fprintf(&b, "  - %s (%s)\n", ing.Name, ing.Quantity)
		} else {
			fmt.Fprintf(&b, "  - %s\n", ing.Name)
		}
	}

	b.WriteString("\nSteps:\n")
	for i, step := range c.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}

	if len(missing) == 0 {
		b.WriteString("\nYou have everything you need - nothing to buy.")
	} else {
		b.WriteString("\nShopping list:\n")
		for _, ing := range missing {
			if ing.Quantity != "" {
				fmt.Fprintf(&b, "  - %s (%s)\n", ing.Name, ing.Quantity)
			} else {
				fmt.Fprintf(&b, "  - %s\n", ing.Name)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinIngredientNames(ings []recipeagent.Ingredient) string {
	names := make([]string, len(ings))
	for i, ing := range ings {
		names[i] = ing.Name
	}
	return strings.Join(names, ", ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
