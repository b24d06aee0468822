package entity

import (
	"encoding/json"
	"fmt"
)

// TriState is a boolean that may not have been answered yet.
type TriState uint8

const (
	Unknown TriState = iota
	Yes
	No
)

// TriFromBool converts an answered boolean.
func TriFromBool(v bool) TriState {
	if v {
		return Yes
	}
	return No
}

// Known reports whether the value has been answered.
func (t TriState) Known() bool { return t != Unknown }

// IsTrue reports whether the value was answered with yes.
func (t TriState) IsTrue() bool { return t == Yes }

func (t TriState) String() string {
	switch t {
	case Yes:
		return "true"
	case No:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalText encodes the value as "true", "false" or "unknown".
func (t TriState) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the encodings produced by MarshalText.
func (t *TriState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "true":
		*t = Yes
	case "false":
		*t = No
	case "unknown", "":
		*t = Unknown
	default:
		return fmt.Errorf("invalid tri-state value %q", string(b))
	}
	return nil
}

// AccessFlag names one accessibility need.
type AccessFlag uint8

const (
	AccessNone AccessFlag = iota
	AccessWheelchair
	AccessStepFree
	AccessRestroom
)

// AccessFlags lists the flags in the order they are asked.
var AccessFlags = []AccessFlag{AccessWheelchair, AccessStepFree, AccessRestroom}

func (f AccessFlag) String() string {
	switch f {
	case AccessWheelchair:
		return "wheelchair"
	case AccessStepFree:
		return "step_free"
	case AccessRestroom:
		return "restroom"
	default:
		return "none"
	}
}

// AccessibilityNeeds holds the three accessibility answers of one participant.
// Values only move away from Unknown.
type AccessibilityNeeds struct {
	wheelchair TriState
	stepFree   TriState
	restroom   TriState
}

// NewAccessibilityNeeds builds a record with explicit values, mainly for tests and decoding.
func NewAccessibilityNeeds(wheelchair, stepFree, restroom TriState) AccessibilityNeeds {
	return AccessibilityNeeds{wheelchair: wheelchair, stepFree: stepFree, restroom: restroom}
}

func (a AccessibilityNeeds) Wheelchair() TriState { return a.wheelchair }
func (a AccessibilityNeeds) StepFree() TriState   { return a.stepFree }
func (a AccessibilityNeeds) Restroom() TriState   { return a.restroom }

// Get returns the value of a flag.
func (a AccessibilityNeeds) Get(flag AccessFlag) TriState {
	switch flag {
	case AccessWheelchair:
		return a.wheelchair
	case AccessStepFree:
		return a.stepFree
	case AccessRestroom:
		return a.restroom
	default:
		return Unknown
	}
}

// Set records an answer for a flag.
func (a *AccessibilityNeeds) Set(flag AccessFlag, value bool) {
	v := TriFromBool(value)
	switch flag {
	case AccessWheelchair:
		a.wheelchair = v
	case AccessStepFree:
		a.stepFree = v
	case AccessRestroom:
		a.restroom = v
	}
}

// SetIfUnknown records an answer only when the flag has not been answered.
func (a *AccessibilityNeeds) SetIfUnknown(flag AccessFlag, value bool) bool {
	if a.Get(flag).Known() {
		return false
	}
	a.Set(flag, value)
	return true
}

// NextUnknown returns the first unanswered flag, or AccessNone.
func (a AccessibilityNeeds) NextUnknown() AccessFlag {
	for _, flag := range AccessFlags {
		if !a.Get(flag).Known() {
			return flag
		}
	}
	return AccessNone
}

type accessibilityJSON struct {
	Wheelchair TriState `json:"wheelchair"`
	StepFree   TriState `json:"step_free"`
	Restroom   TriState `json:"restroom"`
}

// MarshalJSON implements json.Marshaler.
func (a AccessibilityNeeds) MarshalJSON() ([]byte, error) {
	return json.Marshal(accessibilityJSON{Wheelchair: a.wheelchair, StepFree: a.stepFree, Restroom: a.restroom})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AccessibilityNeeds) UnmarshalJSON(data []byte) error {
	var raw accessibilityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = NewAccessibilityNeeds(raw.Wheelchair, raw.StepFree, raw.Restroom)
	return nil
}

// Slot names a required booking slot.
type Slot uint8

const (
	SlotNone Slot = iota
	SlotCity
	SlotCuisine
	SlotGuests
	SlotTime
)

// RequiredSlots lists the slots in the order they are asked.
var RequiredSlots = []Slot{SlotCity, SlotCuisine, SlotGuests, SlotTime}

func (s Slot) String() string {
	switch s {
	case SlotCity:
		return "city"
	case SlotCuisine:
		return "cuisine"
	case SlotGuests:
		return "guests"
	case SlotTime:
		return "time"
	default:
		return "none"
	}
}

// SlotSet is a small bitset of slots.
type SlotSet uint8

// Has reports whether the slot is in the set.
func (s SlotSet) Has(slot Slot) bool { return s&(1<<slot) != 0 }

// With returns the set including slot.
func (s SlotSet) With(slot Slot) SlotSet { return s | 1<<slot }

// UserPreferences are the constraints of one conversational participant.
type UserPreferences struct {
	City          string             `json:"city,omitempty"`
	Cuisine       string             `json:"cuisine,omitempty"`
	Guests        int                `json:"guests,omitempty"`
	Time          string             `json:"time,omitempty"`
	Accessibility AccessibilityNeeds `json:"accessibility"`
	Skipped       SlotSet            `json:"skipped,omitempty"`

	PendingRequired Slot       `json:"pending_required,omitempty"`
	RequiredMisses  int        `json:"required_misses,omitempty"`
	PendingAccess   AccessFlag `json:"pending_access,omitempty"`
	AccessMisses    int        `json:"access_misses,omitempty"`
}

// HasValue reports whether a slot holds a concrete value.
func (p UserPreferences) HasValue(slot Slot) bool {
	switch slot {
	case SlotCity:
		return p.City != ""
	case SlotCuisine:
		return p.Cuisine != ""
	case SlotGuests:
		return p.Guests > 0
	case SlotTime:
		return p.Time != ""
	default:
		return false
	}
}

// Resolved reports whether a slot has a value or was waived.
func (p UserPreferences) Resolved(slot Slot) bool {
	return p.HasValue(slot) || p.Skipped.Has(slot)
}

// NextMissing returns the first unresolved required slot other than except.
func (p UserPreferences) NextMissing(except Slot) Slot {
	for _, slot := range RequiredSlots {
		if slot == except {
			continue
		}
		if !p.Resolved(slot) {
			return slot
		}
	}
	return SlotNone
}

// ClearPending drops any open question and its miss counters.
func (p *UserPreferences) ClearPending() {
	p.PendingRequired = SlotNone
	p.RequiredMisses = 0
	p.PendingAccess = AccessNone
	p.AccessMisses = 0
}

// Stable returns a copy without dialog cursor state.
func (p UserPreferences) Stable() UserPreferences {
	p.ClearPending()
	return p
}
