// Package realtimetest provides a Broadcaster that records emissions for tests.
package realtimetest

import (
	"encoding/json"
	"sync"

	"example.com/connectsphere/internal/realtime"

	"github.com/google/uuid"
)

// Emission is one recorded frame
type Emission struct {
	Group   string
	Kind    string
	Payload json.RawMessage
}

// Decode unmarshals the payload into dest
func (e Emission) Decode(dest interface{}) error {
	return json.Unmarshal(e.Payload, dest)
}

// Recorder implements realtime.Broadcaster
type Recorder struct {
	mu        sync.Mutex
	emissions []Emission
}

var _ realtime.Broadcaster = (*Recorder)(nil)

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// EmitToEvent records a frame for an event room
func (r *Recorder) EmitToEvent(eventID uuid.UUID, kind string, payload interface{}) {
	r.record(realtime.EventGroup(eventID), kind, payload)
}

// EmitToUser records a frame for a user room
func (r *Recorder) EmitToUser(userID uuid.UUID, kind string, payload interface{}) {
	r.record(realtime.UserGroup(userID), kind, payload)
}

func (r *Recorder) record(group, kind string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = append(r.emissions, Emission{Group: group, Kind: kind, Payload: data})
}

// Emissions returns every recorded frame in order
func (r *Recorder) Emissions() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emission(nil), r.emissions...)
}

// Kinds returns the kinds of every recorded frame in order
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.emissions))
	for i, e := range r.emissions {
		kinds[i] = e.Kind
	}
	return kinds
}

// Find returns the recorded frames of one kind
func (r *Recorder) Find(kind string) []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []Emission
	for _, e := range r.emissions {
		if e.Kind == kind {
			found = append(found, e)
		}
	}
	return found
}

// Reset forgets every recorded frame
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = nil
}
