package dto

// TurnRequest carries one user utterance.
type TurnRequest struct {
	Text string `json:"text"`
}

// ConversationResponse identifies a conversation.
type ConversationResponse struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

// BookingRequest asks the reservation backend to hold a table.
type BookingRequest struct {
	VenueID string `json:"venue_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}
