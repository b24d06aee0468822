package dto

// VenueFilter contains query parameters for venue listing endpoints.
type VenueFilter struct {
	City      string
	Cuisine   string
	MinRating *float64
	Page      int
	PerPage   int
}

// RankRequest asks for a ranking without running a conversation.
type RankRequest struct {
	City          string               `json:"city"`
	Cuisine       string               `json:"cuisine"`
	Accessibility AccessibilityPayload `json:"accessibility"`
	TopK          int                  `json:"top_k"`
}

// AccessibilityPayload lists the needs a caller requires. Omitted means unknown.
type AccessibilityPayload struct {
	Wheelchair *bool `json:"wheelchair,omitempty"`
	StepFree   *bool `json:"step_free,omitempty"`
	Restroom   *bool `json:"restroom,omitempty"`
}
