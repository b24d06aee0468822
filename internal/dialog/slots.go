package dialog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/octobees/tablemate/internal/entity"
)

const (
	reaskHint       = " (you can also say 'skip')"
	defaultGuests   = 2
	defaultTime     = "19:00"
	maxBareGuests   = 20
	maxAnswerTokens = 4
)

var requiredPrompts = map[entity.Slot]string{
	entity.SlotCity:    "In which city?",
	entity.SlotCuisine: "Which cuisine (e.g., Italian, Sushi)?",
	entity.SlotGuests:  "For how many people? (say a number like 2, 4)",
	entity.SlotTime:    "What time? (e.g., 7 p.m. or 18:30)",
}

var skipPhrases = phraseSet("skip", "egal", "doesn't matter", "dont care", "don't care")

// resolvePendingSlot tries to answer the open required question. It returns
// a re-ask prompt when the miss budget is not yet exhausted. An indifferent
// reply waives the pending slot itself.
func (m *Manager) resolvePendingSlot(prefs *entity.UserPreferences, t *turn) (string, bool) {
	slot := prefs.PendingRequired

	if _, skip := skipPhrases[t.lower]; skip {
		waive(prefs, slot)
		t.skipUsed = true
		clearRequired(prefs)
		return "", false
	}

	if m.answerSlot(prefs, slot, t.text) {
		clearRequired(prefs)
		return "", false
	}

	prefs.RequiredMisses++
	if prefs.RequiredMisses < maxMisses {
		return requiredPrompts[slot] + reaskHint, true
	}

	t.abandoned = slot
	clearRequired(prefs)
	return "", false
}

// answerSlot reads a direct answer to a slot question. Direct answers may be
// bare values ("Berlin", "4") that free-text extraction would ignore.
func (m *Manager) answerSlot(prefs *entity.UserPreferences, slot entity.Slot, text string) bool {
	switch slot {
	case entity.SlotCity:
		if city, ok := m.extract.City(text); ok {
			prefs.City = city
			return true
		}
		if city, ok := m.bareWords(text); ok {
			prefs.City = city
			return true
		}
	case entity.SlotCuisine:
		if cuisine, ok := m.extract.Cuisine(text); ok {
			prefs.Cuisine = cuisine
			return true
		}
		first := strings.SplitN(text, ",", 2)[0]
		if words, ok := m.bareWords(first); ok {
			prefs.Cuisine = strings.ToLower(strings.Fields(words)[0])
			return true
		}
	case entity.SlotGuests:
		if n, ok := m.extract.Guests(text); ok {
			prefs.Guests = n
			return true
		}
		if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && n >= 1 && n <= maxBareGuests {
			prefs.Guests = n
			return true
		}
	case entity.SlotTime:
		if tm, ok := m.extract.Time(text); ok {
			prefs.Time = tm
			return true
		}
		if h, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && h >= 0 && h <= 23 {
			prefs.Time = fmt.Sprintf("%02d:00", h)
			return true
		}
	}
	return false
}

// bareWords accepts a short reply made of letters only, rejecting yes/no.
func (m *Manager) bareWords(text string) (string, bool) {
	text = strings.Trim(strings.TrimSpace(text), ".!?")
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields) > maxAnswerTokens {
		return "", false
	}
	for _, r := range text {
		if unicode.IsLetter(r) || r == ' ' || r == '-' || r == '\'' || r == '.' {
			continue
		}
		return "", false
	}
	if _, ok := m.extract.YesNo(text); ok {
		return "", false
	}
	return text, true
}

// fillOpportunistic sets any unset slot the utterance mentions. It never
// overwrites a value.
func (m *Manager) fillOpportunistic(prefs *entity.UserPreferences, text string) {
	if prefs.Time == "" {
		if tm, ok := m.extract.Time(text); ok {
			prefs.Time = tm
		}
	}
	if prefs.Guests <= 0 {
		if n, ok := m.extract.Guests(text); ok {
			prefs.Guests = n
		}
	}
	if prefs.City == "" {
		if city, ok := m.extract.City(text); ok {
			prefs.City = city
		}
	}
	if prefs.Cuisine == "" {
		if cuisine, ok := m.extract.Cuisine(text); ok {
			prefs.Cuisine = cuisine
		}
	}
}

// askRequired opens the next missing required slot. An indifferent reply
// waives that slot instead, once per turn, and the following one is asked.
func (m *Manager) askRequired(prefs *entity.UserPreferences, t *turn) (string, bool) {
	slot := prefs.NextMissing(t.abandoned)
	if slot == entity.SlotNone {
		return "", false
	}
	if _, skip := skipPhrases[t.lower]; skip && !t.skipUsed {
		waive(prefs, slot)
		t.skipUsed = true
		if slot = prefs.NextMissing(t.abandoned); slot == entity.SlotNone {
			return "", false
		}
	}
	return openRequired(prefs, slot), true
}

// reopenRequired asks again for a slot abandoned earlier in the turn. Results
// are never ranked while a required slot is unresolved.
func reopenRequired(prefs *entity.UserPreferences) (string, bool) {
	slot := prefs.NextMissing(entity.SlotNone)
	if slot == entity.SlotNone {
		return "", false
	}
	return openRequired(prefs, slot), true
}

func openRequired(prefs *entity.UserPreferences, slot entity.Slot) string {
	prefs.PendingAccess = entity.AccessNone
	prefs.AccessMisses = 0
	prefs.PendingRequired = slot
	prefs.RequiredMisses = 0
	return requiredPrompts[slot]
}

// waive assigns the neutral default for a slot the user does not care about.
func waive(prefs *entity.UserPreferences, slot entity.Slot) {
	switch slot {
	case entity.SlotCity:
		prefs.City = ""
	case entity.SlotCuisine:
		prefs.Cuisine = ""
	case entity.SlotGuests:
		prefs.Guests = defaultGuests
	case entity.SlotTime:
		prefs.Time = defaultTime
	}
	prefs.Skipped = prefs.Skipped.With(slot)
}

func clearRequired(prefs *entity.UserPreferences) {
	prefs.PendingRequired = entity.SlotNone
	prefs.RequiredMisses = 0
}

func phraseSet(phrases ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[p] = struct{}{}
	}
	return set
}
