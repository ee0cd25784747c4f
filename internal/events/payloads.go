package events

import (
	"time"

	"example.com/connectsphere/internal/models"

	"github.com/google/uuid"
)

// RSVPChange is carried by RSVP_UPDATED and RSVP_REMOVED
type RSVPChange struct {
	EventID     uuid.UUID         `json:"eventId"`
	EventTitle  string            `json:"eventTitle"`
	CreatorID   uuid.UUID         `json:"creatorId"`
	RSVPID      uuid.UUID         `json:"rsvpId,omitempty"`
	UserID      uuid.UUID         `json:"userId"`
	UserName    string            `json:"userName"`
	Status      models.RSVPStatus `json:"status,omitempty"`
	HasPlusOne  bool              `json:"hasPlusOne"`
	PlusOneName *string           `json:"plusOneName,omitempty"`
	Created     bool              `json:"created,omitempty"`
}

// MessagePosted is carried by NEW_MESSAGE
type MessagePosted struct {
	EventID   uuid.UUID `json:"eventId"`
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageRemoved is carried by MESSAGE_DELETED
type MessageRemoved struct {
	EventID   uuid.UUID `json:"eventId"`
	MessageID uuid.UUID `json:"messageId"`
	DeletedBy uuid.UUID `json:"deletedBy"`
}

// PollOpened is carried by POLL_CREATED
type PollOpened struct {
	EventID  uuid.UUID          `json:"eventId"`
	PollID   uuid.UUID          `json:"pollId"`
	Question string             `json:"question"`
	Poll     models.PollSummary `json:"poll"`
}

// PollVoted is carried by POLL_VOTE
type PollVoted struct {
	EventID  uuid.UUID          `json:"eventId"`
	PollID   uuid.UUID          `json:"pollId"`
	Poll     models.PollSummary `json:"poll"`
	UserID   uuid.UUID          `json:"userId"`
	UserName string             `json:"userName"`
	OptionID uuid.UUID          `json:"optionId"`
}

// PollFinished is carried by POLL_CLOSED
type PollFinished struct {
	EventID       uuid.UUID           `json:"eventId"`
	PollID        uuid.UUID           `json:"pollId"`
	Question      string              `json:"question"`
	Poll          models.PollSummary  `json:"poll"`
	WinningOption *models.OptionTally `json:"winningOption"`
}

// PollRemoved is carried by POLL_DELETED
type PollRemoved struct {
	EventID uuid.UUID `json:"eventId"`
	PollID  uuid.UUID `json:"pollId"`
}

// ParticipantRemoved is carried by PARTICIPANT_KICKED. UserID is the
// creator who removed KickedUserID.
type ParticipantRemoved struct {
	EventID      uuid.UUID `json:"eventId"`
	EventTitle   string    `json:"eventTitle"`
	UserID       uuid.UUID `json:"userId"`
	KickedUserID uuid.UUID `json:"kickedUserId"`
	UserName     string    `json:"userName"`
}

// KickedFrame is the socket frame for a kick, naming the removed user as
// userId and the creator as kickedBy
type KickedFrame struct {
	EventID    uuid.UUID `json:"eventId"`
	EventTitle string    `json:"eventTitle"`
	UserID     uuid.UUID `json:"userId"`
	UserName   string    `json:"userName"`
	KickedBy   uuid.UUID `json:"kickedBy"`
}

// Frame converts the channel payload to its socket frame
func (p ParticipantRemoved) Frame() KickedFrame {
	return KickedFrame{
		EventID:    p.EventID,
		EventTitle: p.EventTitle,
		UserID:     p.KickedUserID,
		UserName:   p.UserName,
		KickedBy:   p.UserID,
	}
}

// ParticipantDeparted is carried by PARTICIPANT_LEFT
type ParticipantDeparted struct {
	EventID    uuid.UUID `json:"eventId"`
	EventTitle string    `json:"eventTitle"`
	CreatorID  uuid.UUID `json:"creatorId"`
	UserID     uuid.UUID `json:"userId"`
	UserName   string    `json:"userName"`
}
