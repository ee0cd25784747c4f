package services

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// EventChange is an edit to an event derived from a closed poll
type EventChange struct {
	Datetime     *time.Time
	LocationText *string
}

// InferEventChange guesses what a poll was deciding from its question. Time
// questions ("time", "when") move the event when the winning text parses as a
// date; place questions ("where", "location") set the location text. A
// question can match both.
func InferEventChange(question, winner string) (EventChange, bool) {
	q := strings.ToLower(question)
	text := strings.TrimSpace(winner)
	if text == "" {
		return EventChange{}, false
	}

	var change EventChange
	if strings.Contains(q, "time") || strings.Contains(q, "when") {
		if t, err := dateparse.ParseIn(text, time.UTC); err == nil {
			t = t.UTC()
			change.Datetime = &t
		}
	}
	if strings.Contains(q, "where") || strings.Contains(q, "location") {
		change.LocationText = &text
	}

	return change, change.Datetime != nil || change.LocationText != nil
}
