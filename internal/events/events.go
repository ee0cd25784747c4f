// Package events defines the typed messages published on per-event channels
// after a domain action commits.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Type identifies a channel event
type Type string

const (
	RSVPUpdated       Type = "RSVP_UPDATED"
	RSVPRemoved       Type = "RSVP_REMOVED"
	NewMessage        Type = "NEW_MESSAGE"
	MessageDeleted    Type = "MESSAGE_DELETED"
	PollCreated       Type = "POLL_CREATED"
	PollVote          Type = "POLL_VOTE"
	PollClosed        Type = "POLL_CLOSED"
	PollDeleted       Type = "POLL_DELETED"
	ParticipantKicked Type = "PARTICIPANT_KICKED"
	ParticipantLeft   Type = "PARTICIPANT_LEFT"
)

// Category is the channel suffix an event type is published under
type Category string

const (
	CategoryRSVP        Category = "rsvp"
	CategoryChat        Category = "chat"
	CategoryPoll        Category = "poll"
	CategoryParticipant Category = "participant"
)

// Categories lists every channel category
var Categories = []Category{CategoryRSVP, CategoryChat, CategoryPoll, CategoryParticipant}

// Category returns the channel category of t
func (t Type) Category() Category {
	switch t {
	case RSVPUpdated, RSVPRemoved:
		return CategoryRSVP
	case NewMessage, MessageDeleted:
		return CategoryChat
	case PollCreated, PollVote, PollClosed, PollDeleted:
		return CategoryPoll
	case ParticipantKicked, ParticipantLeft:
		return CategoryParticipant
	}
	return ""
}

// Channel returns the channel name for an event and category
func Channel(eventID uuid.UUID, c Category) string {
	return fmt.Sprintf("event:%s:%s", eventID.String(), c)
}

// Pattern returns the subscription pattern matching every event's channel of category c
func Pattern(c Category) string {
	return fmt.Sprintf("event:*:%s", c)
}

// Envelope is the wire form of every channel event. On the wire the
// type-specific fields sit beside type, eventId and timestamp in one flat
// object; in memory they are kept apart in Data. Origin names the publishing
// process.
type Envelope struct {
	Type      Type
	EventID   uuid.UUID
	Timestamp time.Time
	Origin    string
	Data      json.RawMessage
}

type header struct {
	Type      Type      `json:"type"`
	EventID   uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin,omitempty"`
}

// MarshalJSON flattens the payload fields into the envelope object
func (e Envelope) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &fields); err != nil {
			return nil, errors.Wrapf(err, "%s payload is not an object", e.Type)
		}
	}
	head, err := json.Marshal(header{Type: e.Type, EventID: e.EventID, Timestamp: e.Timestamp, Origin: e.Origin})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(head, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON splits a flat envelope object back into header and payload.
// eventId stays in the payload since every payload carries it.
func (e *Envelope) UnmarshalJSON(raw []byte) error {
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	delete(fields, "type")
	delete(fields, "timestamp")
	delete(fields, "origin")
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	*e = Envelope{Type: h.Type, EventID: h.EventID, Timestamp: h.Timestamp, Origin: h.Origin, Data: data}
	return nil
}

// New builds an envelope around payload
func New(t Type, eventID uuid.UUID, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "failed to marshal %s payload", t)
	}
	return Envelope{
		Type:      t,
		EventID:   eventID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// Channel returns the channel the envelope is published on
func (e Envelope) Channel() string {
	return Channel(e.EventID, e.Type.Category())
}

// Decode unmarshals the payload into dest
func (e Envelope) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return errors.Wrapf(err, "failed to decode %s payload", e.Type)
	}
	return nil
}

// Parse decodes an envelope received from the store
func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "failed to decode channel event")
	}
	if env.Type.Category() == "" {
		return Envelope{}, errors.Errorf("unknown channel event type %q", env.Type)
	}
	if env.EventID == uuid.Nil {
		return Envelope{}, errors.New("channel event has no eventId")
	}
	return env, nil
}
