package realtime

import (
	"example.com/connectsphere/internal/events"
)

// Fanout pushes the realtime frames that correspond to a channel event. The
// event room always receives the primary frame; RSVP, kick and leave events
// also notify one user directly.
func Fanout(b Broadcaster, env events.Envelope) error {
	switch env.Type {
	case events.RSVPUpdated, events.RSVPRemoved:
		var p events.RSVPChange
		if err := env.Decode(&p); err != nil {
			return err
		}
		roomKind, creatorKind := KindRSVPUpdated, KindEventRSVPUpdated
		if env.Type == events.RSVPRemoved {
			roomKind, creatorKind = KindRSVPRemoved, KindEventRSVPRemoved
		}
		b.EmitToEvent(env.EventID, roomKind, env.Data)
		if p.CreatorID != p.UserID {
			b.EmitToUser(p.CreatorID, creatorKind, env.Data)
		}
	case events.NewMessage:
		b.EmitToEvent(env.EventID, KindNewMessage, env.Data)
	case events.MessageDeleted:
		b.EmitToEvent(env.EventID, KindMessageDeleted, env.Data)
	case events.PollCreated:
		b.EmitToEvent(env.EventID, KindPollCreated, env.Data)
	case events.PollVote:
		b.EmitToEvent(env.EventID, KindPollVote, env.Data)
	case events.PollClosed:
		b.EmitToEvent(env.EventID, KindPollClosed, env.Data)
	case events.PollDeleted:
		b.EmitToEvent(env.EventID, KindPollDeleted, env.Data)
	case events.ParticipantKicked:
		var p events.ParticipantRemoved
		if err := env.Decode(&p); err != nil {
			return err
		}
		frame := p.Frame()
		b.EmitToEvent(env.EventID, KindParticipantKicked, frame)
		b.EmitToUser(p.KickedUserID, KindKickedFromEvent, frame)
	case events.ParticipantLeft:
		var p events.ParticipantDeparted
		if err := env.Decode(&p); err != nil {
			return err
		}
		b.EmitToEvent(env.EventID, KindParticipantLeft, env.Data)
		b.EmitToUser(p.CreatorID, KindParticipantLeftEvent, env.Data)
	}
	return nil
}
