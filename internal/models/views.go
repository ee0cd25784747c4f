package models

import (
	"time"

	"github.com/google/uuid"
)

// OptionTally is a poll option together with its vote count
type OptionTally struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Position int       `json:"position"`
	Votes    int       `json:"votes"`
}

// PollSummary is the read shape of a poll used by the API and realtime frames
type PollSummary struct {
	ID         uuid.UUID     `json:"id"`
	EventID    uuid.UUID     `json:"eventId"`
	Question   string        `json:"question"`
	CloseAt    *time.Time    `json:"closeAt,omitempty"`
	IsClosed   bool          `json:"isClosed"`
	CreatedAt  time.Time     `json:"createdAt"`
	Options    []OptionTally `json:"options"`
	TotalVotes int           `json:"totalVotes"`
}

// Winner returns the option with the strictly highest count. Options are
// assumed ordered by Position, so the earliest option wins a tie, including
// the all-zero case.
func (p PollSummary) Winner() *OptionTally {
	var winner *OptionTally
	maxVotes := -1
	for i := range p.Options {
		if p.Options[i].Votes > maxVotes {
			maxVotes = p.Options[i].Votes
			winner = &p.Options[i]
		}
	}
	if winner == nil {
		return nil
	}
	w := *winner
	return &w
}

// MessageView is a chat message with its author's display name
type MessageView struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName"`
	EventID   uuid.UUID `json:"eventId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Attendee is an RSVP joined with the participant's name
type Attendee struct {
	UserID             uuid.UUID  `json:"userId"`
	Name               string     `json:"name"`
	Email              string     `json:"email,omitempty"`
	Status             RSVPStatus `json:"status"`
	HasPlusOne         bool       `json:"hasPlusOne"`
	PlusOneName        *string    `json:"plusOneName,omitempty"`
	Comment            *string    `json:"comment,omitempty"`
	DietaryPatterns    []string   `json:"dietaryPatterns"`
	ReligiousDietary   []string   `json:"religiousDietary"`
	Allergies          []string   `json:"allergies"`
	LifestyleChoices   []string   `json:"lifestyleChoices"`
	IntensityPrefs     []string   `json:"intensityPrefs"`
	AlcoholPrefs       []string   `json:"alcoholPrefs"`
	CustomDietaryNotes *string    `json:"customDietaryNotes,omitempty"`
	JoinedAt           time.Time  `json:"joinedAt"`
}

// EventWithAttendees is an event plus its confirmed (YES) attendees
type EventWithAttendees struct {
	Event
	CreatorName   string     `json:"creatorName"`
	Attendees     []Attendee `json:"attendees"`
	AttendeeCount int        `json:"attendeeCount"`
}

// RSVPCounts aggregates responses for an event
type RSVPCounts struct {
	Yes            int `json:"yes"`
	Maybe          int `json:"maybe"`
	No             int `json:"no"`
	PlusOnes       int `json:"plusOnes"`
	TotalAttending int `json:"totalAttending"`
}

// Dashboard groups a user's events
type Dashboard struct {
	Created       []Event `json:"created"`
	Participating []Event `json:"participating"`
	Upcoming      []Event `json:"upcoming"`
}
