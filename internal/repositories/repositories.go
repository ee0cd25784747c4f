package repositories

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Common repository errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrPollClosed   = errors.New("poll is closed")
)

// translate maps driver errors onto the repository sentinels and wraps the rest
func translate(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return errors.Wrap(err, msg)
	}
}

// Repositories bundles every repository over the same pair of handles
type Repositories struct {
	Users    *UserRepository
	Events   *EventRepository
	RSVPs    *RSVPRepository
	Messages *MessageRepository
	Polls    *PollRepository
}

// New creates all repositories
func New(db *gorm.DB, readOnlyDB *gorm.DB) *Repositories {
	return &Repositories{
		Users:    NewUserRepository(db, readOnlyDB),
		Events:   NewEventRepository(db, readOnlyDB),
		RSVPs:    NewRSVPRepository(db, readOnlyDB),
		Messages: NewMessageRepository(db, readOnlyDB),
		Polls:    NewPollRepository(db, readOnlyDB),
	}
}

// WithTx returns repositories bound to tx for both reads and writes, so reads
// inside a transaction observe its own writes.
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return New(tx, tx)
}
