package dialog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/service/ranking"
)

var (
	groupStartPattern = regexp.MustCompile(`\b(?:start|create|new)\s+group(?:\s+of\s+(\d+))?\b`)
	groupAddPattern   = regexp.MustCompile(`^(?:add|member|person)\b`)
	groupEndPattern   = regexp.MustCompile(`\b(?:end|finish)\s+group\b`)

	// Common transcription slips for "end group".
	groupMishears = strings.NewReplacer(
		"and group", "end group",
		"in group", "end group",
		"ant group", "end group",
		"en group", "end group",
		"finish the group", "finish group",
	)

	showResultsPhrases = phraseSet("show results", "zeige ergebnisse", "results", "recommend")
)

// handleGroupCommand applies start, end and add commands to the group.
func handleGroupCommand(g *entity.GroupState, text string) (string, bool) {
	t := groupMishears.Replace(strings.ToLower(strings.TrimSpace(text)))

	if m := groupStartPattern.FindStringSubmatch(t); m != nil {
		size, _ := strconv.Atoi(m[1])
		g.Start(size)
		if size > 0 {
			return fmt.Sprintf("Group mode started. Expecting %d people. Say 'add' to add a member.", size), true
		}
		return "Group mode started. Say 'add' to add a member.", true
	}

	if groupEndPattern.MatchString(t) {
		g.End()
		return "Group mode ended. Say 'show results' to merge preferences.", true
	}

	if g.Active && groupAddPattern.MatchString(t) {
		g.Add()
		return "OK. Describe this member's preferences (city, cuisine, time, and any accessibility needs).", true
	}

	return "", false
}

// captureMember feeds an utterance into the most recent group member.
func (m *Manager) captureMember(g *entity.GroupState, text string) string {
	member := g.Current()
	m.fillOpportunistic(member, text)
	applyCues(m.extract, member, text)

	if g.Size > 0 && len(g.Members) >= g.Size {
		return fmt.Sprintf("I've captured %d members. Say 'end group' to finalize or 'add' to add more.", g.Size)
	}
	return "Captured. Say 'add' for another member, or 'end group' to finalize."
}

// groupResults merges the captured members, ranks for them and clears the
// group.
func (m *Manager) groupResults(g *entity.GroupState, venues []entity.Venue) Reply {
	merged := Merge(*g)
	g.Clear()

	results := ranking.FilterAndRank(venues, merged, m.topK)
	if len(results) == 0 {
		return Reply{Text: noGroupMatchesReply, Step: StepGroupResults}
	}
	return Reply{Text: formatMatches(groupHeader, results), Results: results, Step: StepGroupResults}
}

func isShowResults(lower string) bool {
	_, ok := showResultsPhrases[lower]
	return ok
}

// Merge combines group members into one effective preference set. An
// accessibility need of any member binds the whole group. Cuisine is decided
// by majority with ties going to the value named first; city and time come
// from the first member that gave one. A declared group size wins for guests,
// then the sum of stated counts, then the headcount.
func Merge(g entity.GroupState) entity.UserPreferences {
	var merged entity.UserPreferences

	for _, flag := range entity.AccessFlags {
		for _, member := range g.Members {
			if member.Accessibility.Get(flag).IsTrue() {
				merged.Accessibility.Set(flag, true)
				break
			}
		}
	}

	merged.Cuisine = majorityCuisine(g.Members)

	for _, member := range g.Members {
		if merged.City == "" && member.City != "" {
			merged.City = member.City
		}
		if merged.Time == "" && member.Time != "" {
			merged.Time = member.Time
		}
	}

	switch {
	case g.Size > 0:
		merged.Guests = g.Size
	default:
		total := 0
		for _, member := range g.Members {
			if member.Guests > 0 {
				total += member.Guests
			}
		}
		if total > 0 {
			merged.Guests = total
		} else {
			merged.Guests = len(g.Members)
		}
	}

	return merged
}

func majorityCuisine(members []entity.UserPreferences) string {
	counts := make(map[string]int)
	var order []string
	for _, member := range members {
		cuisine := strings.ToLower(strings.TrimSpace(member.Cuisine))
		if cuisine == "" {
			continue
		}
		if counts[cuisine] == 0 {
			order = append(order, cuisine)
		}
		counts[cuisine]++
	}

	best := ""
	for _, cuisine := range order {
		if best == "" || counts[cuisine] > counts[best] {
			best = cuisine
		}
	}
	return best
}
