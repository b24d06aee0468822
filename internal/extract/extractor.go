// Package extract turns raw utterances into candidate slot values.
package extract

import "github.com/octobees/tablemate/internal/entity"

// Extractor maps free text to slot candidates. Every method reports ok=false
// when the text carries no signal for that slot.
type Extractor interface {
	Guests(text string) (int, bool)
	Time(text string) (string, bool)
	City(text string) (string, bool)
	Cuisine(text string) (string, bool)
	YesNo(text string) (bool, bool)
	AccessibilityCues(text string) map[entity.AccessFlag]bool
}
