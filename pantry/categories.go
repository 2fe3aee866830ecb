package pantry

import "strings"

// categoryTable maps common ingredient names to their pantry category. Used
// when an item arrives without a category. Matching is on the normalized name,
// with a substring fallback so "chicken thighs" still lands under protein.
var categoryTable = map[string]Category{
	// protein
	"chicken": CategoryProtein,
	"beef":    CategoryProtein,
	"pork":    CategoryProtein,
	"lamb":    CategoryProtein,
	"fish":    CategoryProtein,
	"salmon":  CategoryProtein,
	"tuna":    CategoryProtein,
	"prawns":  CategoryProtein,
	"shrimp":  CategoryProtein,
	"tofu":    CategoryProtein,
	"eggs":    CategoryProtein,
	"egg":     CategoryProtein,
	"beans":   CategoryProtein,
	"lentils": CategoryProtein,
	// vegetable
	"broccoli":  CategoryVegetable,
	"carrot":    CategoryVegetable,
	"onion":     CategoryVegetable,
	"tomato":    CategoryVegetable,
	"pepper":    CategoryVegetable,
	"spinach":   CategoryVegetable,
	"courgette": CategoryVegetable,
	"aubergine": CategoryVegetable,
	"mushroom":  CategoryVegetable,
	"potato":    CategoryVegetable,
	"cabbage":   CategoryVegetable,
	"lettuce":   CategoryVegetable,
	"cucumber":  CategoryVegetable,
	"kale":      CategoryVegetable,
	// grain
	"rice":      CategoryGrain,
	"pasta":     CategoryGrain,
	"noodles":   CategoryGrain,
	"bread":     CategoryGrain,
	"flour":     CategoryGrain,
	"oats":      CategoryGrain,
	"quinoa":    CategoryGrain,
	"couscous":  CategoryGrain,
	"spaghetti": CategoryGrain,
	// dairy
	"milk":    CategoryDairy,
	"butter":  CategoryDairy,
	"cheese":  CategoryDairy,
	"yoghurt": CategoryDairy,
	"yogurt":  CategoryDairy,
	"cream":   CategoryDairy,
	// condiment
	"soy sauce":    CategoryCondiment,
	"olive oil":    CategoryCondiment,
	"vinegar":      CategoryCondiment,
	"garlic":       CategoryCondiment,
	"ginger":       CategoryCondiment,
	"salt":         CategoryCondiment,
	"sugar":        CategoryCondiment,
	"honey":        CategoryCondiment,
	"mustard":      CategoryCondiment,
	"ketchup":      CategoryCondiment,
	"mayonnaise":   CategoryCondiment,
	"sesame oil":   CategoryCondiment,
	"fish sauce":   CategoryCondiment,
	"chilli":       CategoryCondiment,
	"black pepper": CategoryCondiment,
}

// InferCategory returns the category for a normalized ingredient name,
// defaulting to "other" when nothing in the table matches.
func InferCategory(name string) Category {
	name = Normalize(name)
	if cat, ok := categoryTable[name]; ok {
		return cat
	}
	for key, cat := range categoryTable {
		if strings.Contains(name, key) {
			return cat
		}
	}
	return CategoryOther
}
