package dialog

import (
	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/extract"
)

var accessQuestions = map[entity.AccessFlag]string{
	entity.AccessWheelchair: "Do you need wheelchair access?",
	entity.AccessStepFree:   "Should I only show step-free entrances?",
	entity.AccessRestroom:   "Do you need an accessible restroom?",
}

const accessReaskHint = " (you can also type 'skip')"

// resolveAccess applies keyword cues and then interprets the utterance as an
// answer to the open accessibility question, if any. Unclear answers are
// re-asked until the miss budget runs out, after which the need is recorded
// as false.
func (m *Manager) resolveAccess(prefs *entity.UserPreferences, text string) (string, bool) {
	applyCues(m.extract, prefs, text)

	flag := prefs.PendingAccess
	if flag == entity.AccessNone {
		return "", false
	}
	if prefs.Accessibility.Get(flag).Known() {
		clearAccess(prefs)
		return "", false
	}

	if _, skip := skipPhrases[normalizePhrase(text)]; skip {
		prefs.Accessibility.SetIfUnknown(flag, false)
		clearAccess(prefs)
		return "", false
	}
	if yes, ok := m.extract.YesNo(text); ok {
		prefs.Accessibility.SetIfUnknown(flag, yes)
		clearAccess(prefs)
		return "", false
	}

	prefs.AccessMisses++
	if prefs.AccessMisses < maxMisses {
		return accessQuestions[flag] + accessReaskHint, true
	}
	prefs.Accessibility.SetIfUnknown(flag, false)
	clearAccess(prefs)
	return "", false
}

// applyCues records needs stated in free text. Known answers are kept.
func applyCues(ex extract.Extractor, prefs *entity.UserPreferences, text string) {
	cues := ex.AccessibilityCues(text)
	for _, flag := range entity.AccessFlags {
		if yes, ok := cues[flag]; ok {
			prefs.Accessibility.SetIfUnknown(flag, yes)
		}
	}
}

// askAccess opens the next unknown accessibility question.
func askAccess(prefs *entity.UserPreferences) (string, bool) {
	flag := prefs.Accessibility.NextUnknown()
	if flag == entity.AccessNone {
		return "", false
	}
	prefs.PendingRequired = entity.SlotNone
	prefs.RequiredMisses = 0
	prefs.PendingAccess = flag
	prefs.AccessMisses = 0
	return accessQuestions[flag], true
}

func clearAccess(prefs *entity.UserPreferences) {
	prefs.PendingAccess = entity.AccessNone
	prefs.AccessMisses = 0
}
