package ranking

import (
	"sort"
	"strconv"
	"strings"

	"github.com/octobees/tablemate/internal/entity"
)

const (
	weightRating     = 0.70
	weightPopularity = 0.10

	boostWheelchair = 0.03
	boostStepFree   = 0.02
	boostRestroom   = 0.02
	boostCuisine    = 0.08
	boostCity       = 0.05

	fallbackRating     = 0.80
	fallbackPopularity = 0.10
	fallbackCuisine    = 0.06
	fallbackCity       = 0.04

	epsilon = 1e-9
)

var accessBoosts = map[entity.AccessFlag]float64{
	entity.AccessWheelchair: boostWheelchair,
	entity.AccessStepFree:   boostStepFree,
	entity.AccessRestroom:   boostRestroom,
}

// Result is a scored venue with the columns exposed to callers.
type Result struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	City             string  `json:"city"`
	Cuisine          string  `json:"cuisine"`
	Price            string  `json:"price"`
	Rating           float64 `json:"rating"`
	AccessWheelchair bool    `json:"access_wheelchair"`
	AccessStepFree   bool    `json:"access_step_free"`
	AccessRestroom   bool    `json:"access_restroom"`
	Score            float64 `json:"score"`
}

// FilterAndRank scores venues against the preferences and returns at most
// topK results, best first. Accessibility needs answered with yes are hard
// filters; if they remove every venue the ranking falls back to the whole
// catalogue without them. The input slice is never modified.
func FilterAndRank(venues []entity.Venue, prefs entity.UserPreferences, topK int) []Result {
	if len(venues) == 0 || topK <= 0 {
		return nil
	}

	norm := newNormalizer(venues)
	required := requiredFlags(prefs.Accessibility)

	results := make([]Result, 0, len(venues))
	for _, v := range venues {
		if !offersAll(v, required) {
			continue
		}
		score := weightRating*norm.rating(v) + weightPopularity*norm.popularity(v)
		for _, flag := range entity.AccessFlags {
			if !required[flag] && v.Offers(flag) {
				score += accessBoosts[flag]
			}
		}
		if matches(v.Cuisine, prefs.Cuisine) {
			score += boostCuisine
		}
		if matches(v.City, prefs.City) {
			score += boostCity
		}
		results = append(results, newResult(v, score))
	}

	if len(results) == 0 {
		for _, v := range venues {
			score := fallbackRating*norm.rating(v) + fallbackPopularity*norm.popularity(v)
			if matches(v.Cuisine, prefs.Cuisine) {
				score += fallbackCuisine
			}
			if matches(v.City, prefs.City) {
				score += fallbackCity
			}
			results = append(results, newResult(v, score))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return idLess(results[i].ID, results[j].ID)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

type normalizer struct {
	minRating, maxRating float64
	minCount, maxCount   float64
	hasCounts            bool
}

func newNormalizer(venues []entity.Venue) normalizer {
	n := normalizer{minRating: venues[0].Rating, maxRating: venues[0].Rating}
	for _, v := range venues {
		if v.Rating < n.minRating {
			n.minRating = v.Rating
		}
		if v.Rating > n.maxRating {
			n.maxRating = v.Rating
		}
		if v.RatingCount == nil {
			continue
		}
		count := float64(*v.RatingCount)
		if !n.hasCounts {
			n.minCount, n.maxCount = count, count
			n.hasCounts = true
			continue
		}
		if count < n.minCount {
			n.minCount = count
		}
		if count > n.maxCount {
			n.maxCount = count
		}
	}
	return n
}

func (n normalizer) rating(v entity.Venue) float64 {
	return (v.Rating - n.minRating) / (n.maxRating - n.minRating + epsilon)
}

func (n normalizer) popularity(v entity.Venue) float64 {
	if !n.hasCounts || v.RatingCount == nil {
		return 0
	}
	return (float64(*v.RatingCount) - n.minCount) / (n.maxCount - n.minCount + epsilon)
}

func requiredFlags(needs entity.AccessibilityNeeds) map[entity.AccessFlag]bool {
	required := make(map[entity.AccessFlag]bool, len(entity.AccessFlags))
	for _, flag := range entity.AccessFlags {
		if needs.Get(flag).IsTrue() {
			required[flag] = true
		}
	}
	return required
}

func offersAll(v entity.Venue, required map[entity.AccessFlag]bool) bool {
	for flag := range required {
		if !v.Offers(flag) {
			return false
		}
	}
	return true
}

func matches(value, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(value), want)
}

// idLess orders integer ids numerically ahead of all other ids, which
// compare lexically.
func idLess(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return ai < bi
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

func newResult(v entity.Venue, score float64) Result {
	return Result{
		ID:               v.ID,
		Name:             v.Name,
		City:             v.City,
		Cuisine:          v.Cuisine,
		Price:            v.Price,
		Rating:           v.Rating,
		AccessWheelchair: v.AccessWheelchair,
		AccessStepFree:   v.AccessStepFree,
		AccessRestroom:   v.AccessRestroom,
		Score:            score,
	}
}
