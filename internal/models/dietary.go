package models

// DietaryOption is a selectable dietary tag
type DietaryOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Dietary section names
const (
	SectionPatterns  = "patterns"
	SectionReligious = "religious"
	SectionAllergies = "allergies"
	SectionLifestyle = "lifestyle"
	SectionIntensity = "intensity"
	SectionAlcohol   = "alcohol"
)

// DietaryCatalog lists every tag per section
var DietaryCatalog = map[string][]DietaryOption{
	SectionPatterns: {
		{ID: "omnivore", Label: "No restrictions (I eat everything)"},
		{ID: "vegetarian", Label: "Vegetarian"},
		{ID: "vegan", Label: "Vegan"},
		{ID: "pescatarian", Label: "Pescatarian (vegetarian + seafood)"},
		{ID: "flexitarian", Label: "Flexitarian (mostly plant-based)"},
	},
	SectionReligious: {
		{ID: "halal", Label: "Halal"},
		{ID: "kosher", Label: "Kosher"},
		{ID: "hindu", Label: "No beef"},
		{ID: "jain", Label: "Jain diet"},
	},
	SectionAllergies: {
		{ID: "gluten", Label: "Gluten-free"},
		{ID: "dairy", Label: "Dairy-free"},
		{ID: "nuts", Label: "No nuts"},
		{ID: "peanuts", Label: "No peanuts"},
		{ID: "shellfish", Label: "No shellfish"},
		{ID: "eggs", Label: "No eggs"},
		{ID: "soy", Label: "No soy"},
		{ID: "fish", Label: "No fish"},
	},
	SectionLifestyle: {
		{ID: "organic", Label: "Prefer organic"},
		{ID: "local", Label: "Prefer locally-sourced"},
		{ID: "lowcarb", Label: "Low carb"},
		{ID: "keto", Label: "Keto"},
		{ID: "paleo", Label: "Paleo"},
		{ID: "whole30", Label: "Whole30"},
	},
	SectionIntensity: {
		{ID: "mild", Label: "Mild food (not spicy)"},
		{ID: "spicy", Label: "Enjoy spicy food"},
	},
	SectionAlcohol: {
		{ID: "no-alcohol", Label: "Don't drink alcohol"},
		{ID: "alcohol-ok", Label: "Drink alcohol"},
	},
}

// DietarySections returns the sections an RSVP form should show for a category.
// Allergies are always asked for.
func DietarySections(c EventCategory) []string {
	switch c {
	case CategoryMeal:
		return []string{SectionPatterns, SectionReligious, SectionAllergies, SectionIntensity}
	case CategoryPotluck:
		return []string{SectionPatterns, SectionReligious, SectionAllergies}
	case CategoryDrinks:
		return []string{SectionAlcohol}
	case CategoryCelebration:
		return []string{SectionPatterns, SectionAllergies, SectionAlcohol}
	case CategoryProfessional:
		return []string{SectionPatterns, SectionAllergies}
	default:
		return []string{SectionAllergies}
	}
}
