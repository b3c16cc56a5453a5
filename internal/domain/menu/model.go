package menu

import "time"

// NoMenuMessage explains an empty record for a date the provider has no menu for.
const NoMenuMessage = "No menu available for this date"

// Record is the menu for a single school date.
type Record struct {
	Date      string    `json:"date"`
	Items     []Item    `json:"items"`
	FetchedAt time.Time `json:"fetchedAt"`
	Message   string    `json:"message,omitempty"`
}

// Empty reports whether the record carries no items.
func (r Record) Empty() bool {
	return len(r.Items) == 0
}

// Item is a single menu entry as published by the provider.
type Item struct {
	Name        string     `json:"name"`
	Category    string     `json:"category,omitempty"`
	Nutrients   *Nutrients `json:"nutrients,omitempty"`
	Description string     `json:"description,omitempty"`
	Allergens   []string   `json:"allergens,omitempty"`
}

// Nutrients holds the subset of nutrition facts used for ranking.
type Nutrients struct {
	Calories     float64 `json:"calories"`
	ProteinGrams float64 `json:"proteinGrams"`
}

// NoMenu builds the record returned when the provider has nothing for date.
func NoMenu(date string, fetchedAt time.Time) Record {
	return Record{
		Date:      date,
		Items:     []Item{},
		FetchedAt: fetchedAt,
		Message:   NoMenuMessage,
	}
}
