package entity

// GroupState tracks a group session inside one conversation.
type GroupState struct {
	Active  bool              `json:"active"`
	Size    int               `json:"size,omitempty"`
	Members []UserPreferences `json:"members,omitempty"`
}

// Start begins a new group session, discarding previous members.
func (g *GroupState) Start(size int) {
	if size < 0 {
		size = 0
	}
	g.Active = true
	g.Size = size
	g.Members = nil
}

// Add appends an empty member and returns it as the capture target.
func (g *GroupState) Add() *UserPreferences {
	g.Members = append(g.Members, UserPreferences{})
	return &g.Members[len(g.Members)-1]
}

// Current returns the most recent member, creating one if none exists.
func (g *GroupState) Current() *UserPreferences {
	if len(g.Members) == 0 {
		return g.Add()
	}
	return &g.Members[len(g.Members)-1]
}

// End leaves capture mode. Members are kept until they are merged.
func (g *GroupState) End() {
	g.Active = false
}

// Clear drops all captured members.
func (g *GroupState) Clear() {
	g.Members = nil
}
