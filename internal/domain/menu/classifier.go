package menu

import (
	"sort"
	"strings"
)

// DefaultMaxItems caps RankMainItems when no explicit limit is given.
const DefaultMaxItems = 5

const (
	minEntreeCalories = 250
	minEntreeProtein  = 10
)

var categoryScores = map[string]int{
	"entree":    100,
	"pizza":     80,
	"burger":    80,
	"sandwich":  70,
	"main dish": 70,
}

var excludedTerms = []string{
	"side",
	"drink",
	"beverage",
	"milk",
	"juice",
	"dessert",
	"fruit cup",
	"vegetable",
}

var accentFolder = strings.NewReplacer("é", "e", "É", "e", "è", "e")

// RankMainItems picks the likely entrées out of a raw menu, best first.
// Uncategorized items are only kept when their nutrition looks like a meal;
// anything ambiguous is left out. The result is never nil.
func RankMainItems(items []Item, maxItems int) []Item {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	type scored struct {
		item  Item
		score int
	}
	ranked := make([]scored, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if !isMainItem(item) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(item.Name))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ranked = append(ranked, scored{item: item, score: relevance(item)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > maxItems {
		ranked = ranked[:maxItems]
	}
	out := make([]Item, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.item)
	}
	return out
}

// MainItems ranks the items of rec; a nil record yields an empty list.
func MainItems(rec *Record, maxItems int) []Item {
	if rec == nil {
		return RankMainItems(nil, maxItems)
	}
	return RankMainItems(rec.Items, maxItems)
}

func isMainItem(item Item) bool {
	if strings.TrimSpace(item.Name) == "" {
		return false
	}
	category := normalizeCategory(item.Category)
	if _, ok := categoryScores[category]; ok {
		return true
	}
	if category != "" && category != "other" {
		return false
	}

	text := strings.ToLower(item.Name + " " + item.Description)
	for _, term := range excludedTerms {
		if strings.Contains(text, term) {
			return false
		}
	}
	n := item.Nutrients
	return n != nil && n.Calories >= minEntreeCalories && n.ProteinGrams >= minEntreeProtein
}

func relevance(item Item) int {
	score := categoryScores[normalizeCategory(item.Category)]
	if item.Nutrients != nil && item.Nutrients.Calories > 0 {
		score += 20
	}
	if len(item.Allergens) > 0 {
		score += 10
	}
	return score
}

func normalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	c = accentFolder.Replace(c)
	return strings.Join(strings.Fields(c), " ")
}
