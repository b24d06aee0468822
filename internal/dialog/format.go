package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/octobees/tablemate/internal/service/ranking"
)

const (
	matchesHeader       = "Here are good matches:"
	groupHeader         = "Group matches:"
	noMatchesReply      = "I couldn't find any matches. Want me to broaden the search?"
	noGroupMatchesReply = "I couldn't find any matches for your group. Should I relax the constraints?"
	bullet              = "\n• "
)

// formatMatches renders the first few results as bullet lines.
func formatMatches(header string, results []ranking.Result) string {
	shown := results
	if len(shown) > shownLines {
		shown = shown[:shownLines]
	}
	lines := make([]string, 0, len(shown))
	for _, r := range shown {
		lines = append(lines, FormatLine(r))
	}
	return header + bullet + strings.Join(lines, bullet)
}

// FormatLine renders one result with its accessibility badges.
func FormatLine(r ranking.Result) string {
	var badges []string
	if r.AccessWheelchair {
		badges = append(badges, "♿ wheelchair")
	}
	if r.AccessStepFree {
		badges = append(badges, "⬆ step-free")
	}
	if r.AccessRestroom {
		badges = append(badges, "🚻 accessible restroom")
	}
	badge := "—"
	if len(badges) > 0 {
		badge = strings.Join(badges, " | ")
	}
	return fmt.Sprintf("%s (%s, %s, ★%s)  [%s]", r.Name, r.Cuisine, r.Price, formatRating(r.Rating), badge)
}

func formatRating(rating float64) string {
	if rating == float64(int64(rating)) {
		return strconv.FormatFloat(rating, 'f', 1, 64)
	}
	return strconv.FormatFloat(rating, 'f', -1, 64)
}
