package services

import (
	"context"
	"strings"
	"time"

	"example.com/connectsphere/internal/events"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/repositories"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 200
	maxMessageLength   = 2000
)

// ChatService manages event chat
type ChatService struct {
	base
}

// NewChatService creates a new chat service
func NewChatService(d Deps) *ChatService {
	return &ChatService{base: newBase(d)}
}

// Send posts a message. Only the creator and users holding an RSVP may chat.
func (s *ChatService) Send(ctx context.Context, userID, eventID uuid.UUID, text string) (_ *models.MessageView, err error) {
	ctx, done := s.begin(ctx, "chat.send")
	defer done(&err)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Invalid("Message text is required")
	}
	if len(text) > maxMessageLength {
		return nil, Invalid("Message text is too long")
	}

	event, err := loadEvent(ctx, s.repos, eventID)
	if err != nil {
		return nil, err
	}
	ok, err := hasAccess(ctx, s.repos, event, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Forbidden("You must RSVP to this event before sending messages")
	}

	msg := &models.Message{EventID: eventID, UserID: userID, Text: text}
	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.Messages.Create(ctx, msg)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to save message")
	}

	view := s.view(msg, userName(ctx, s.repos, userID))
	s.dispatcher.Dispatch(ctx, events.NewMessage, eventID, events.MessagePosted{
		EventID:   eventID,
		ID:        view.ID,
		Text:      view.Text,
		UserID:    view.UserID,
		UserName:  view.UserName,
		CreatedAt: view.CreatedAt,
	})

	log.Debug().Str("event_id", eventID.String()).Str("user_id", userID.String()).Msg("Message sent")
	return view, nil
}

// List returns a page of messages in chronological order. The page holds the
// newest messages older than before, when given.
func (s *ChatService) List(ctx context.Context, userID, eventID uuid.UUID, before *time.Time, limit int) ([]models.MessageView, error) {
	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}

	event, err := loadEvent(ctx, s.repos, eventID)
	if err != nil {
		return nil, err
	}
	ok, err := hasAccess(ctx, s.repos, event, userID)
	if err != nil {
		return nil, err
	}
	if !ok && !event.IsPublic {
		return nil, Forbidden("You must RSVP to this event to read its messages")
	}

	msgs, err := s.repos.Messages.ListRecent(ctx, eventID, before, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}

	ids := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.UserID)
	}
	users, err := s.repos.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load message authors")
	}

	views := make([]models.MessageView, len(msgs))
	for i := range msgs {
		// newest-first from the store, oldest-first to the caller
		views[len(msgs)-1-i] = *s.view(&msgs[i], users[msgs[i].UserID].Name)
	}
	return views, nil
}

// Delete removes a message. Its author and the event creator may do so.
func (s *ChatService) Delete(ctx context.Context, userID, messageID uuid.UUID) (err error) {
	ctx, done := s.begin(ctx, "chat.delete")
	defer done(&err)

	msg, err := s.repos.Messages.GetByID(ctx, messageID)
	if err != nil {
		return notFoundOr(err, "Message not found", "failed to load message")
	}
	event, err := loadEvent(ctx, s.repos, msg.EventID)
	if err != nil {
		return err
	}
	if msg.UserID != userID && event.CreatorID != userID {
		return Forbidden("Only the author or the event creator can delete this message")
	}

	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.Messages.Delete(ctx, messageID)
	})
	if err != nil {
		return notFoundOr(err, "Message not found", "failed to delete message")
	}

	s.dispatcher.Dispatch(ctx, events.MessageDeleted, msg.EventID, events.MessageRemoved{
		EventID:   msg.EventID,
		MessageID: messageID,
		DeletedBy: userID,
	})
	return nil
}

func (s *ChatService) view(msg *models.Message, name string) *models.MessageView {
	var v models.MessageView
	if err := copier.Copy(&v, msg); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID.String()).Msg("Failed to map message")
	}
	v.UserName = name
	return &v
}
