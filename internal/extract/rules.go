package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/octobees/tablemate/internal/entity"
)

const ampmExpr = `(a\.m\.?|p\.m\.?|aem|pem|am|pm)`

var (
	timeWithMinutes  = regexp.MustCompile(`(?i)\b(\d{1,2})[:.](\d{2})(?:\s*` + ampmExpr + `)?(?:[^a-z]|$)`)
	timeWithMeridiem = regexp.MustCompile(`(?i)\b(\d{1,2})\s*` + ampmExpr + `(?:[^a-z]|$)`)
	timeWithClock    = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:uhr|o'?clock)\b`)
	timeAfterCue     = regexp.MustCompile(`(?i)\b(?:at|um|gegen)\s+(\d{1,2})\b(?:[^:.\d]|$)`)

	guestsBeforeNoun = regexp.MustCompile(`(?i)\b([\p{L}\d]+)\s+(?:people|persons|person|guests|pax|personen|leute|gäste|gaeste)\b`)
	guestsAfterCue   = regexp.MustCompile(`(?i)\b(?:table for|party of|for|für|fuer)\s+([\p{L}\d]+)(\s*(?:[:.]\d|uhr|o'?clock|am\b|pm\b|a\.m|p\.m))?`)

	cityPattern = regexp.MustCompile(`(?i)\b(?:in|at)\s+([a-zA-ZÀ-ÿ\-.' ]{2,})$`)

	wheelchairPattern = regexp.MustCompile(`(?i)(rollstuhl(?:\s*|-)?zugang|rollstuhl|barriere\s*frei|barrierefrei|barrierefreiheit|wheelchair)`)
	stepFreePattern   = regexp.MustCompile(`(?i)(stufenlos|ohne\s*stufen|rampe|ebenerdig|step\s*free|step-free)`)
	restroomPattern   = regexp.MustCompile(`(?i)(barrierefrei(?:es|er)?\s*wc|rollstuhl\s*wc|behinderten(?:\s*|-)?wc|behinderten(?:\s*|-)?toilette|accessible\s*restroom)`)
	negationPattern   = regexp.MustCompile(`(?i)\b(kein|keine|nicht|no|without)\b`)
)

// Rules is the default rule-based extractor for English and German input.
type Rules struct {
	lex            Lexicon
	numberPattern  *regexp.Regexp
	cuisinePattern *regexp.Regexp
	yes            map[string]struct{}
	no             map[string]struct{}
	neutral        map[string]struct{}
}

// NewRules compiles a rule set for the given lexicon.
func NewRules(lex Lexicon) *Rules {
	r := &Rules{
		lex:     lex,
		yes:     toSet(lex.Yes),
		no:      toSet(lex.No),
		neutral: toSet(lex.Neutral),
	}

	numberWords := make([]string, 0, len(lex.NumberWords))
	for w := range lex.NumberWords {
		numberWords = append(numberWords, w)
	}
	r.numberPattern = wordAlternation(numberWords)

	cuisineWords := append([]string{}, lex.Cuisines...)
	for w := range lex.CuisineSynonyms {
		cuisineWords = append(cuisineWords, w)
	}
	r.cuisinePattern = wordAlternation(cuisineWords)

	return r
}

var _ Extractor = (*Rules)(nil)

// Guests finds a party size between 1 and 20.
func (r *Rules) Guests(text string) (int, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return 0, false
	}

	if m := guestsBeforeNoun.FindStringSubmatch(t); m != nil {
		if n, ok := r.number(m[1]); ok {
			return n, true
		}
	}
	for _, m := range guestsAfterCue.FindAllStringSubmatch(t, -1) {
		if m[2] != "" {
			continue
		}
		if n, ok := r.number(m[1]); ok {
			return n, true
		}
	}
	if r.numberPattern != nil {
		if m := r.numberPattern.FindStringSubmatch(t); m != nil {
			return r.lex.NumberWords[m[1]], true
		}
	}
	return 0, false
}

// Time finds a clock time and returns it as HH:MM in 24-hour form.
// A bare number is not treated as a time.
func (r *Rules) Time(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}

	if m := timeWithMinutes.FindStringSubmatch(t); m != nil {
		if out, ok := formatClock(m[1], m[2], m[3]); ok {
			return out, true
		}
	}
	if m := timeWithMeridiem.FindStringSubmatch(t); m != nil {
		if out, ok := formatClock(m[1], "00", m[2]); ok {
			return out, true
		}
	}
	if m := timeWithClock.FindStringSubmatch(t); m != nil {
		if out, ok := formatClock(m[1], "00", ""); ok {
			return out, true
		}
	}
	if m := timeAfterCue.FindStringSubmatch(t); m != nil {
		if out, ok := formatClock(m[1], "00", ""); ok {
			return out, true
		}
	}
	return "", false
}

// City finds a place introduced by "in" or "at" at the end of the utterance.
func (r *Rules) City(text string) (string, bool) {
	t := strings.TrimRight(strings.TrimSpace(text), "?!.,; ")
	m := cityPattern.FindStringSubmatch(t)
	if m == nil {
		return "", false
	}
	city := strings.Trim(m[1], " .-'")
	if len([]rune(city)) < 2 {
		return "", false
	}
	return city, true
}

// Cuisine finds a known cuisine, mapping German names to their English form.
func (r *Rules) Cuisine(text string) (string, bool) {
	if r.cuisinePattern == nil {
		return "", false
	}
	m := r.cuisinePattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return "", false
	}
	return r.NormalizeCuisine(m[1]), true
}

// NormalizeCuisine lowercases a cuisine and resolves synonyms.
func (r *Rules) NormalizeCuisine(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if canonical, ok := r.lex.CuisineSynonyms[value]; ok {
		return canonical
	}
	return value
}

// YesNo classifies a reply. Indifference counts as no.
func (r *Rules) YesNo(text string) (bool, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, "!.?, ")
	if t == "" {
		return false, false
	}
	if _, ok := r.yes[t]; ok {
		return true, true
	}
	if _, ok := r.no[t]; ok {
		return false, true
	}
	if _, ok := r.neutral[t]; ok {
		return false, true
	}
	if hasLeadingWord(t, "yes") || hasLeadingWord(t, "ja") {
		return true, true
	}
	if hasLeadingWord(t, "no") || hasLeadingWord(t, "nein") {
		return false, true
	}
	return false, false
}

// AccessibilityCues detects stated accessibility needs. A negation anywhere in
// the utterance suppresses all cues.
func (r *Rules) AccessibilityCues(text string) map[entity.AccessFlag]bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.ReplaceAll(t, "zu gang", "zugang")
	if t == "" || negationPattern.MatchString(t) {
		return nil
	}

	cues := make(map[entity.AccessFlag]bool)
	if wheelchairPattern.MatchString(t) {
		cues[entity.AccessWheelchair] = true
	}
	if stepFreePattern.MatchString(t) {
		cues[entity.AccessStepFree] = true
	}
	if restroomPattern.MatchString(t) {
		cues[entity.AccessRestroom] = true
	}
	if len(cues) == 0 {
		return nil
	}
	return cues
}

func (r *Rules) number(token string) (int, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if n, err := strconv.Atoi(token); err == nil {
		if n >= 1 && n <= 20 {
			return n, true
		}
		return 0, false
	}
	if n, ok := r.lex.NumberWords[token]; ok {
		return n, true
	}
	return 0, false
}

func formatClock(hourRaw, minuteRaw, meridiem string) (string, bool) {
	hour, err := strconv.Atoi(hourRaw)
	if err != nil {
		return "", false
	}
	minute, err := strconv.Atoi(minuteRaw)
	if err != nil || minute < 0 || minute > 59 {
		return "", false
	}

	switch normalizeMeridiem(meridiem) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour < 0 || hour > 23 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func normalizeMeridiem(value string) string {
	value = strings.ToLower(strings.ReplaceAll(value, ".", ""))
	switch value {
	case "am", "aem":
		return "am"
	case "pm", "pem":
		return "pm"
	default:
		return ""
	}
}

func hasLeadingWord(text, word string) bool {
	if !strings.HasPrefix(text, word) {
		return false
	}
	rest := []rune(text[len(word):])
	return len(rest) == 0 || !unicode.IsLetter(rest[0])
}

// wordAlternation builds a whole-word pattern, longest words first.
func wordAlternation(words []string) *regexp.Regexp {
	cleaned := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		cleaned = append(cleaned, regexp.QuoteMeta(w))
	}
	if len(cleaned) == 0 {
		return nil
	}
	sort.Slice(cleaned, func(i, j int) bool {
		if len(cleaned[i]) != len(cleaned[j]) {
			return len(cleaned[i]) > len(cleaned[j])
		}
		return cleaned[i] < cleaned[j]
	})
	return regexp.MustCompile(`(?:^|[^\p{L}])(` + strings.Join(cleaned, "|") + `)(?:[^\p{L}]|$)`)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}
