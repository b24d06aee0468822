package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/extract"
)

type stubStore struct {
	save   func(ctx context.Context, owner string, prefs entity.UserPreferences) error
	load   func(ctx context.Context, owner string) (*entity.UserPreferences, error)
	delete func(ctx context.Context, owner string) (bool, error)
}

func (s *stubStore) Save(ctx context.Context, owner string, prefs entity.UserPreferences) error {
	if s.save != nil {
		return s.save(ctx, owner, prefs)
	}
	return errors.New("save not implemented")
}

func (s *stubStore) Load(ctx context.Context, owner string) (*entity.UserPreferences, error) {
	if s.load != nil {
		return s.load(ctx, owner)
	}
	return nil, errors.New("load not implemented")
}

func (s *stubStore) Delete(ctx context.Context, owner string) (bool, error) {
	if s.delete != nil {
		return s.delete(ctx, owner)
	}
	return false, errors.New("delete not implemented")
}

func newTestManager(opts ...Option) *Manager {
	return NewManager(extract.NewRules(extract.DefaultLexicon()), opts...)
}

func testVenues() []entity.Venue {
	return []entity.Venue{
		{ID: "1", Name: "Trattoria Roma", City: "Berlin", Cuisine: "italian", Price: "$$", Rating: 4.5, AccessWheelchair: true},
		{ID: "2", Name: "Pasta Nord", City: "Berlin", Cuisine: "italian", Price: "$", Rating: 4.0},
		{ID: "3", Name: "Sushi Ko", City: "Munich", Cuisine: "sushi", Price: "$$$", Rating: 4.8},
	}
}

func filledPrefs() entity.UserPreferences {
	return entity.UserPreferences{City: "Berlin", Cuisine: "italian", Guests: 2, Time: "19:00"}
}

func TestHandleTurn_FullConversation(t *testing.T) {
	m := newTestManager()
	st := &State{Owner: "s1"}
	venues := testVenues()

	steps := []struct {
		utterance string
		step      Step
		text      string
	}{
		{"book a table in Berlin", StepAskRequired, requiredPrompts[entity.SlotCuisine]},
		{"Italian", StepAskRequired, requiredPrompts[entity.SlotGuests]},
		{"4", StepAskRequired, requiredPrompts[entity.SlotTime]},
		{"7 pm", StepAskAccess, accessQuestions[entity.AccessWheelchair]},
		{"yes", StepAskAccess, accessQuestions[entity.AccessStepFree]},
		{"no", StepAskAccess, accessQuestions[entity.AccessRestroom]},
	}
	for _, s := range steps {
		reply := m.HandleTurn(context.Background(), st, s.utterance, venues)
		if reply.Step != s.step {
			t.Fatalf("%q: expected step %s, got %s (%q)", s.utterance, s.step, reply.Step, reply.Text)
		}
		if reply.Text != s.text {
			t.Fatalf("%q: expected %q, got %q", s.utterance, s.text, reply.Text)
		}
	}

	reply := m.HandleTurn(context.Background(), st, "no", venues)
	if reply.Step != StepResults {
		t.Fatalf("expected results, got %s (%q)", reply.Step, reply.Text)
	}
	if len(reply.Results) != 1 || reply.Results[0].ID != "1" {
		t.Fatalf("expected only the wheelchair venue, got %+v", reply.Results)
	}
	if len(st.Offered) != 1 || st.Offered[0] != "1" {
		t.Fatalf("expected offered ids recorded, got %v", st.Offered)
	}
	if !strings.HasPrefix(reply.Text, "Here are good matches:\n• Trattoria Roma (italian, $$, ★4.5)") {
		t.Fatalf("unexpected reply text %q", reply.Text)
	}

	p := st.Prefs
	if p.City != "Berlin" || p.Cuisine != "italian" || p.Guests != 4 || p.Time != "19:00" {
		t.Fatalf("unexpected preferences %+v", p)
	}
	if !p.Accessibility.Wheelchair().IsTrue() || p.Accessibility.StepFree() != entity.No || p.Accessibility.Restroom() != entity.No {
		t.Fatalf("unexpected accessibility %+v", p.Accessibility)
	}
}

func TestHandleTurn_GuestsMissBudget(t *testing.T) {
	m := newTestManager()
	st := &State{Prefs: entity.UserPreferences{City: "Berlin", Cuisine: "italian", PendingRequired: entity.SlotGuests}}

	reply := m.HandleTurn(context.Background(), st, "hmm not sure", testVenues())
	if reply.Step != StepReask {
		t.Fatalf("expected reask, got %s", reply.Step)
	}
	if !strings.HasSuffix(reply.Text, "(you can also say 'skip')") {
		t.Fatalf("expected skip hint, got %q", reply.Text)
	}
	if st.Prefs.RequiredMisses != 1 {
		t.Fatalf("expected 1 miss, got %d", st.Prefs.RequiredMisses)
	}

	reply = m.HandleTurn(context.Background(), st, "hmm not sure", testVenues())
	if st.Prefs.Guests != 0 {
		t.Fatalf("expected guests unset, got %d", st.Prefs.Guests)
	}
	if st.Prefs.RequiredMisses != 0 {
		t.Fatalf("expected misses reset, got %d", st.Prefs.RequiredMisses)
	}
	if reply.Step != StepAskRequired || st.Prefs.PendingRequired != entity.SlotTime {
		t.Fatalf("expected time to be asked next, got %s pending %s", reply.Step, st.Prefs.PendingRequired)
	}
}

func TestHandleTurn_AbandonedSlotIsAskedBeforeRanking(t *testing.T) {
	m := newTestManager()
	prefs := entity.UserPreferences{City: "Berlin", Cuisine: "italian", Time: "20:00", PendingRequired: entity.SlotGuests, RequiredMisses: 1}
	prefs.Accessibility = entity.NewAccessibilityNeeds(entity.No, entity.No, entity.No)
	st := &State{Prefs: prefs}

	reply := m.HandleTurn(context.Background(), st, "whatever you think", testVenues())

	if reply.Step != StepAskRequired || reply.Text != requiredPrompts[entity.SlotGuests] {
		t.Fatalf("expected guests asked again, got %s (%q)", reply.Step, reply.Text)
	}
	if len(reply.Results) != 0 {
		t.Fatalf("expected no ranking with guests unresolved, got %+v", reply.Results)
	}
	if st.Prefs.PendingRequired != entity.SlotGuests || st.Prefs.RequiredMisses != 0 || st.Prefs.Guests != 0 {
		t.Fatalf("expected a fresh guests question, got %+v", st.Prefs)
	}

	reply = m.HandleTurn(context.Background(), st, "4", testVenues())
	if reply.Step != StepResults || st.Prefs.Guests != 4 {
		t.Fatalf("expected results for 4 guests, got %s guests=%d", reply.Step, st.Prefs.Guests)
	}
}

func TestHandleTurn_AbandonedSlotDefersToAccessQuestion(t *testing.T) {
	m := newTestManager()
	st := &State{Prefs: entity.UserPreferences{City: "Berlin", Cuisine: "italian", Time: "20:00", PendingRequired: entity.SlotGuests, RequiredMisses: 1}}

	reply := m.HandleTurn(context.Background(), st, "hmm", testVenues())

	if reply.Step != StepAskAccess || reply.Text != accessQuestions[entity.AccessWheelchair] {
		t.Fatalf("expected wheelchair question, got %s (%q)", reply.Step, reply.Text)
	}
	if st.Prefs.Guests != 0 || st.Prefs.Skipped.Has(entity.SlotGuests) {
		t.Fatalf("expected guests left unresolved, got %+v", st.Prefs)
	}
}

func TestHandleTurn_IndifferenceOnLastMissWaivesPendingSlot(t *testing.T) {
	m := newTestManager()
	prefs := entity.UserPreferences{City: "Berlin", Cuisine: "italian", PendingRequired: entity.SlotGuests, RequiredMisses: 1}
	prefs.Accessibility = entity.NewAccessibilityNeeds(entity.No, entity.No, entity.No)
	st := &State{Prefs: prefs}

	reply := m.HandleTurn(context.Background(), st, "dont care", testVenues())

	if st.Prefs.Guests != defaultGuests || !st.Prefs.Skipped.Has(entity.SlotGuests) {
		t.Fatalf("expected guests waived to %d, got %+v", defaultGuests, st.Prefs)
	}
	if st.Prefs.Time != "" || st.Prefs.Skipped.Has(entity.SlotTime) {
		t.Fatalf("expected time untouched, got %+v", st.Prefs)
	}
	if reply.Step != StepAskRequired || reply.Text != requiredPrompts[entity.SlotTime] {
		t.Fatalf("expected time asked, got %s (%q)", reply.Step, reply.Text)
	}
}

func TestHandleTurn_IndifferencePhrasesWhilePending(t *testing.T) {
	for _, phrase := range []string{"skip", "egal", "doesn't matter", "dont care", "don't care"} {
		t.Run(phrase, func(t *testing.T) {
			m := newTestManager()
			st := &State{Prefs: entity.UserPreferences{City: "Berlin", PendingRequired: entity.SlotCuisine}}

			m.HandleTurn(context.Background(), st, phrase, testVenues())

			if !st.Prefs.Skipped.Has(entity.SlotCuisine) || st.Prefs.RequiredMisses != 0 {
				t.Fatalf("expected cuisine waived without a miss, got %+v", st.Prefs)
			}
			if st.Prefs.PendingRequired != entity.SlotGuests {
				t.Fatalf("expected guests asked next, got %s", st.Prefs.PendingRequired)
			}
		})
	}
}

func TestHandleTurn_SkipPendingSlot(t *testing.T) {
	m := newTestManager()
	st := &State{Prefs: entity.UserPreferences{PendingRequired: entity.SlotCity}}

	reply := m.HandleTurn(context.Background(), st, "skip", testVenues())

	if st.Prefs.City != "" {
		t.Fatalf("expected skip not to become a city, got %q", st.Prefs.City)
	}
	if !st.Prefs.Skipped.Has(entity.SlotCity) {
		t.Fatalf("expected city marked as skipped")
	}
	if reply.Step != StepAskRequired || reply.Text != requiredPrompts[entity.SlotCuisine] {
		t.Fatalf("expected cuisine asked, got %s (%q)", reply.Step, reply.Text)
	}
	if st.Prefs.Skipped.Has(entity.SlotCuisine) {
		t.Fatalf("one skip must not waive two slots")
	}
}

func TestHandleTurn_SkipAtAskStepAppliesDefault(t *testing.T) {
	m := newTestManager()
	st := &State{Prefs: entity.UserPreferences{City: "Berlin", Cuisine: "italian"}}

	reply := m.HandleTurn(context.Background(), st, "don't care", testVenues())

	if st.Prefs.Guests != defaultGuests {
		t.Fatalf("expected default guests %d, got %d", defaultGuests, st.Prefs.Guests)
	}
	if st.Prefs.Skipped.Has(entity.SlotTime) {
		t.Fatalf("one skip must not waive two slots")
	}
	if reply.Step != StepAskRequired || st.Prefs.PendingRequired != entity.SlotTime {
		t.Fatalf("expected time asked, got %s pending %s", reply.Step, st.Prefs.PendingRequired)
	}
}

func TestHandleTurn_SkipLastMissingSlotRanks(t *testing.T) {
	m := newTestManager()
	prefs := entity.UserPreferences{City: "Berlin", Cuisine: "italian", Guests: 2}
	prefs.Accessibility = entity.NewAccessibilityNeeds(entity.No, entity.No, entity.No)
	st := &State{Prefs: prefs}

	reply := m.HandleTurn(context.Background(), st, "egal", testVenues())

	if st.Prefs.Time != defaultTime {
		t.Fatalf("expected default time %q, got %q", defaultTime, st.Prefs.Time)
	}
	if reply.Step != StepResults {
		t.Fatalf("expected results, got %s (%q)", reply.Step, reply.Text)
	}
}

func TestHandleTurn_BareHourAnswer(t *testing.T) {
	m := newTestManager()
	prefs := entity.UserPreferences{City: "Berlin", Cuisine: "italian", Guests: 2, PendingRequired: entity.SlotTime}
	st := &State{Prefs: prefs}

	m.HandleTurn(context.Background(), st, "7", testVenues())

	if st.Prefs.Time != "07:00" {
		t.Fatalf("expected 07:00, got %q", st.Prefs.Time)
	}
}

func TestHandleTurn_AccessNeutralIsNo(t *testing.T) {
	m := newTestManager()
	prefs := filledPrefs()
	prefs.PendingAccess = entity.AccessWheelchair
	st := &State{Prefs: prefs}

	reply := m.HandleTurn(context.Background(), st, "egal", testVenues())

	if st.Prefs.Accessibility.Wheelchair() != entity.No {
		t.Fatalf("expected wheelchair=false, got %s", st.Prefs.Accessibility.Wheelchair())
	}
	if reply.Text != accessQuestions[entity.AccessStepFree] {
		t.Fatalf("expected step-free question, got %q", reply.Text)
	}
}

func TestHandleTurn_AccessMissBudgetDefaultsFalse(t *testing.T) {
	m := newTestManager()
	prefs := filledPrefs()
	prefs.PendingAccess = entity.AccessWheelchair
	st := &State{Prefs: prefs}

	reply := m.HandleTurn(context.Background(), st, "hmm", testVenues())
	if reply.Step != StepAccessReask || reply.Text != accessQuestions[entity.AccessWheelchair]+accessReaskHint {
		t.Fatalf("expected wheelchair re-ask, got %s (%q)", reply.Step, reply.Text)
	}

	reply = m.HandleTurn(context.Background(), st, "hmm", testVenues())
	if st.Prefs.Accessibility.Wheelchair() != entity.No {
		t.Fatalf("expected default false, got %s", st.Prefs.Accessibility.Wheelchair())
	}
	if st.Prefs.PendingAccess != entity.AccessStepFree || st.Prefs.AccessMisses != 0 {
		t.Fatalf("expected fresh step-free question, got %s misses %d", st.Prefs.PendingAccess, st.Prefs.AccessMisses)
	}
	if reply.Step != StepAskAccess {
		t.Fatalf("expected ask_access, got %s", reply.Step)
	}
}

func TestHandleTurn_KeywordCueBypassesQuestion(t *testing.T) {
	m := newTestManager()
	st := &State{Prefs: filledPrefs()}

	reply := m.HandleTurn(context.Background(), st, "we need wheelchair access", testVenues())

	if !st.Prefs.Accessibility.Wheelchair().IsTrue() {
		t.Fatalf("expected wheelchair=true from cue")
	}
	if reply.Text != accessQuestions[entity.AccessStepFree] {
		t.Fatalf("expected step-free question next, got %q", reply.Text)
	}
}

func TestHandleTurn_SinglePendingQuestion(t *testing.T) {
	m := newTestManager()
	st := &State{}
	if reply := m.HandleTurn(context.Background(), st, "hello", testVenues()); reply.Text != requiredPrompts[entity.SlotCity] {
		t.Fatalf("expected city asked first, got %q", reply.Text)
	}
	for _, u := range []string{"in Berlin", "sushi", "zwei personen", "um 19 uhr", "ja", "nein", "nein"} {
		m.HandleTurn(context.Background(), st, u, testVenues())
		if st.Prefs.PendingRequired != entity.SlotNone && st.Prefs.PendingAccess != entity.AccessNone {
			t.Fatalf("%q: two questions pending: %+v", u, st.Prefs)
		}
	}
	if st.Prefs.Guests != 2 || st.Prefs.Time != "19:00" || st.Prefs.Cuisine != "sushi" {
		t.Fatalf("unexpected preferences %+v", st.Prefs)
	}
}

func TestFillOpportunistic_NeverOverwrites(t *testing.T) {
	m := newTestManager()
	prefs := entity.UserPreferences{City: "Munich", Cuisine: "sushi", Guests: 3, Time: "18:00"}

	for i := 0; i < 2; i++ {
		m.fillOpportunistic(&prefs, "italian for 6 people at 8 pm in Berlin")
	}

	if prefs.City != "Munich" || prefs.Cuisine != "sushi" || prefs.Guests != 3 || prefs.Time != "18:00" {
		t.Fatalf("expected preferences untouched, got %+v", prefs)
	}
}

func TestHandleTurn_NoResults(t *testing.T) {
	m := newTestManager()
	prefs := filledPrefs()
	prefs.Accessibility = entity.NewAccessibilityNeeds(entity.No, entity.No, entity.No)
	st := &State{Prefs: prefs}

	reply := m.HandleTurn(context.Background(), st, "ok", nil)

	if reply.Step != StepNoResults || reply.Text != noMatchesReply {
		t.Fatalf("expected no-results reply, got %s (%q)", reply.Step, reply.Text)
	}
}

func TestHandleTurn_PrivacyCommands(t *testing.T) {
	var saved entity.UserPreferences
	store := &stubStore{
		save: func(ctx context.Context, owner string, prefs entity.UserPreferences) error {
			if owner != "owner-1" {
				t.Fatalf("expected owner-1, got %s", owner)
			}
			saved = prefs
			return nil
		},
		load: func(ctx context.Context, owner string) (*entity.UserPreferences, error) {
			p := entity.UserPreferences{City: "Hamburg", PendingAccess: entity.AccessRestroom}
			return &p, nil
		},
		delete: func(ctx context.Context, owner string) (bool, error) {
			return false, nil
		},
	}
	m := newTestManager(WithStore(store))
	prefs := filledPrefs()
	prefs.PendingAccess = entity.AccessWheelchair
	st := &State{Owner: "owner-1", Prefs: prefs}

	if reply := m.HandleTurn(context.Background(), st, "Please remember my preferences", nil); reply.Text != savedReply {
		t.Fatalf("expected save confirmation, got %q", reply.Text)
	}
	if saved.City != "Berlin" || saved.PendingAccess != entity.AccessNone {
		t.Fatalf("expected stable preferences saved, got %+v", saved)
	}

	if reply := m.HandleTurn(context.Background(), st, "load my preferences", nil); reply.Text != loadedReply {
		t.Fatalf("expected load confirmation, got %q", reply.Text)
	}
	if st.Prefs.City != "Hamburg" || st.Prefs.PendingAccess != entity.AccessNone {
		t.Fatalf("expected loaded preferences without cursor, got %+v", st.Prefs)
	}

	if reply := m.HandleTurn(context.Background(), st, "delete my data", nil); reply.Text != noDataReply {
		t.Fatalf("expected no-data reply, got %q", reply.Text)
	}

	if reply := m.HandleTurn(context.Background(), st, "what do you store?", nil); reply.Text != disclosureReply || reply.Step != StepPrivacy {
		t.Fatalf("expected disclosure, got %q", reply.Text)
	}
}

func TestHandleTurn_PrivacyStoreFailures(t *testing.T) {
	store := &stubStore{}
	m := newTestManager(WithStore(store))
	st := &State{Owner: "owner-1"}

	if reply := m.HandleTurn(context.Background(), st, "remember my preferences", nil); reply.Text != saveFailedReply {
		t.Fatalf("expected save failure reply, got %q", reply.Text)
	}
	if reply := m.HandleTurn(context.Background(), st, "lade meine daten", nil); reply.Text != nothingStored {
		t.Fatalf("expected nothing-stored reply, got %q", reply.Text)
	}
	if reply := m.HandleTurn(context.Background(), st, "lösche meine daten", nil); reply.Text != noDataReply {
		t.Fatalf("expected no-data reply, got %q", reply.Text)
	}
}

func TestHandleTurn_GroupFlow(t *testing.T) {
	m := newTestManager()
	st := &State{}
	venues := testVenues()

	turns := []struct {
		utterance string
		step      Step
	}{
		{"start group of 2", StepGroupCommand},
		{"add", StepGroupCommand},
		{"italian food in Berlin", StepGroupCapture},
		{"add", StepGroupCommand},
		{"japanese and wheelchair access", StepGroupCapture},
		{"end group", StepGroupCommand},
	}
	for _, tc := range turns {
		reply := m.HandleTurn(context.Background(), st, tc.utterance, venues)
		if reply.Step != tc.step {
			t.Fatalf("%q: expected %s, got %s (%q)", tc.utterance, tc.step, reply.Step, reply.Text)
		}
	}
	if st.Group.Active {
		t.Fatalf("expected group mode ended")
	}
	if len(st.Group.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(st.Group.Members))
	}

	reply := m.HandleTurn(context.Background(), st, "show results", venues)
	if reply.Step != StepGroupResults {
		t.Fatalf("expected group results, got %s", reply.Step)
	}
	if len(reply.Results) != 1 || reply.Results[0].ID != "1" {
		t.Fatalf("expected wheelchair venue only, got %+v", reply.Results)
	}
	if !strings.HasPrefix(reply.Text, "Group matches:\n• ") {
		t.Fatalf("unexpected text %q", reply.Text)
	}
	if len(st.Group.Members) != 0 {
		t.Fatalf("expected members cleared, got %d", len(st.Group.Members))
	}
}

func TestHandleGroupCommand_Mishear(t *testing.T) {
	g := entity.GroupState{Active: true}
	if _, ok := handleGroupCommand(&g, "and group"); !ok {
		t.Fatalf("expected mishear to end group")
	}
	if g.Active {
		t.Fatalf("expected group inactive")
	}
}

func TestHandleTurn_GroupCaptureMentioningPerson(t *testing.T) {
	m := newTestManager()
	st := &State{}
	m.HandleTurn(context.Background(), st, "start group", nil)
	m.HandleTurn(context.Background(), st, "add", nil)

	reply := m.HandleTurn(context.Background(), st, "one person wants sushi in Munich", nil)

	if reply.Step != StepGroupCapture {
		t.Fatalf("expected capture, got %s (%q)", reply.Step, reply.Text)
	}
	if len(st.Group.Members) != 1 || st.Group.Members[0].Cuisine != "sushi" || st.Group.Members[0].City != "Munich" {
		t.Fatalf("expected member captured, got %+v", st.Group.Members)
	}
}

func TestHandleTurn_FirstPromptIsCity(t *testing.T) {
	for _, u := range []string{"hi", "I want to eat", "ok"} {
		m := newTestManager()
		st := &State{}
		reply := m.HandleTurn(context.Background(), st, u, testVenues())
		if reply.Step != StepAskRequired || reply.Text != requiredPrompts[entity.SlotCity] {
			t.Fatalf("%q: expected city prompt, got %s (%q)", u, reply.Step, reply.Text)
		}
	}
}

func TestHandleGroupCommand_AddRequiresActiveGroup(t *testing.T) {
	var g entity.GroupState
	if _, ok := handleGroupCommand(&g, "add"); ok {
		t.Fatalf("expected add to be ignored outside group mode")
	}
}
