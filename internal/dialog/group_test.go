package dialog

import (
	"testing"

	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/service/ranking"
)

func member(city, cuisine string, guests int) entity.UserPreferences {
	return entity.UserPreferences{City: city, Cuisine: cuisine, Guests: guests}
}

func TestMerge_AccessibilityOR(t *testing.T) {
	needs := member("", "", 0)
	needs.Accessibility.Set(entity.AccessWheelchair, true)
	declines := member("", "", 0)
	declines.Accessibility.Set(entity.AccessWheelchair, false)

	merged := Merge(entity.GroupState{Members: []entity.UserPreferences{declines, member("", "", 0), needs}})

	if !merged.Accessibility.Wheelchair().IsTrue() {
		t.Fatalf("expected wheelchair=true, got %s", merged.Accessibility.Wheelchair())
	}
	if merged.Accessibility.StepFree().Known() {
		t.Fatalf("expected step-free unknown, got %s", merged.Accessibility.StepFree())
	}
}

func TestMerge_CuisineMajority(t *testing.T) {
	cases := []struct {
		cuisines []string
		want     string
	}{
		{[]string{"italian", "italian", "japanese"}, "italian"},
		{[]string{"italian", "japanese"}, "italian"},
		{[]string{"", "japanese", "sushi", "sushi"}, "sushi"},
		{[]string{"", ""}, ""},
	}
	for _, tc := range cases {
		var g entity.GroupState
		for _, c := range tc.cuisines {
			g.Members = append(g.Members, member("", c, 0))
		}
		if got := Merge(g).Cuisine; got != tc.want {
			t.Fatalf("cuisines %v: expected %q, got %q", tc.cuisines, tc.want, got)
		}
	}
}

func TestMerge_CityAndTimeFirstComeFirstServed(t *testing.T) {
	first := member("", "", 0)
	first.Time = "18:30"
	second := member("Berlin", "", 0)
	second.Time = "20:00"
	third := member("Munich", "", 0)

	merged := Merge(entity.GroupState{Members: []entity.UserPreferences{first, second, third}})

	if merged.City != "Berlin" {
		t.Fatalf("expected Berlin, got %q", merged.City)
	}
	if merged.Time != "18:30" {
		t.Fatalf("expected 18:30, got %q", merged.Time)
	}
}

func TestMerge_Guests(t *testing.T) {
	members := []entity.UserPreferences{member("", "", 2), member("", "", 0), member("", "", 3)}

	if got := Merge(entity.GroupState{Size: 4, Members: members}).Guests; got != 4 {
		t.Fatalf("expected declared size 4, got %d", got)
	}
	if got := Merge(entity.GroupState{Members: members}).Guests; got != 5 {
		t.Fatalf("expected summed guests 5, got %d", got)
	}
	headcount := []entity.UserPreferences{member("", "", 0), member("", "", 0), member("", "", 0)}
	if got := Merge(entity.GroupState{Members: headcount}).Guests; got != 3 {
		t.Fatalf("expected headcount 3, got %d", got)
	}
}

func TestFormatLine(t *testing.T) {
	cases := []struct {
		result ranking.Result
		want   string
	}{
		{
			ranking.Result{Name: "Roma", Cuisine: "italian", Price: "$$", Rating: 4, AccessWheelchair: true, AccessRestroom: true},
			"Roma (italian, $$, ★4.0)  [♿ wheelchair | 🚻 accessible restroom]",
		},
		{
			ranking.Result{Name: "Ko", Cuisine: "sushi", Price: "$$$", Rating: 4.75},
			"Ko (sushi, $$$, ★4.75)  [—]",
		},
	}
	for _, tc := range cases {
		if got := FormatLine(tc.result); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestFormatMatches_ShowsAtMostThree(t *testing.T) {
	results := make([]ranking.Result, 5)
	for i := range results {
		results[i] = ranking.Result{Name: "V", Cuisine: "c", Price: "$", Rating: 4}
	}

	text := formatMatches(matchesHeader, results)

	if got := countBullets(text); got != shownLines {
		t.Fatalf("expected %d lines, got %d", shownLines, got)
	}
}

func countBullets(text string) int {
	n := 0
	for _, r := range text {
		if r == '•' {
			n++
		}
	}
	return n
}
