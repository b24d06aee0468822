package dialog

import (
	"context"
	"strings"
)

const (
	disclosureReply = "I only store preferences if you ask me to. You can say 'remember my preferences' to save, or 'delete my data' to remove them."
	savedReply      = "Saved your preferences with encryption. Say 'delete my data' anytime."
	saveFailedReply = "Sorry, I couldn't save your preferences right now."
	loadedReply     = "Loaded your preferences."
	nothingStored   = "I don't have any stored data yet."
	deletedReply    = "Deleted stored data."
	noDataReply     = "No stored data found."
)

var (
	disclosureTriggers = []string{"what do you store", "welche daten speicherst du"}
	saveTriggers       = []string{"remember my preferences", "speichere meine daten"}
	loadTriggers       = []string{"load my preferences", "lade meine daten"}
	deleteTriggers     = []string{"delete my data", "lösche meine daten", "loesche meine daten"}
)

// handlePrivacy answers the data-control commands. Store failures never leave
// this function; they become a plain reply.
func (m *Manager) handlePrivacy(ctx context.Context, st *State, lower string) (string, bool) {
	switch {
	case containsAny(lower, disclosureTriggers):
		return disclosureReply, true

	case containsAny(lower, saveTriggers):
		if m.store == nil {
			return saveFailedReply, true
		}
		if err := m.store.Save(ctx, st.Owner, st.Prefs.Stable()); err != nil {
			m.logger.Warn().Err(err).Str("owner", st.Owner).Msg("save preferences failed")
			return saveFailedReply, true
		}
		return savedReply, true

	case containsAny(lower, loadTriggers):
		if m.store == nil {
			return nothingStored, true
		}
		loaded, err := m.store.Load(ctx, st.Owner)
		if err != nil {
			m.logger.Warn().Err(err).Str("owner", st.Owner).Msg("load preferences failed")
			return nothingStored, true
		}
		if loaded == nil {
			return nothingStored, true
		}
		st.Prefs = loaded.Stable()
		return loadedReply, true

	case containsAny(lower, deleteTriggers):
		if m.store == nil {
			return noDataReply, true
		}
		deleted, err := m.store.Delete(ctx, st.Owner)
		if err != nil {
			m.logger.Warn().Err(err).Str("owner", st.Owner).Msg("delete preferences failed")
			return noDataReply, true
		}
		if !deleted {
			return noDataReply, true
		}
		return deletedReply, true
	}
	return "", false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
