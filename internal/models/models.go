package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventCategory classifies an event and drives which dietary sections are shown
type EventCategory string

const (
	CategoryMeal         EventCategory = "meal"
	CategoryPotluck      EventCategory = "potluck"
	CategoryDrinks       EventCategory = "drinks"
	CategoryActivity     EventCategory = "activity"
	CategoryCelebration  EventCategory = "celebration"
	CategoryProfessional EventCategory = "professional"
	CategoryOther        EventCategory = "other"
)

// ServesFoodOrDrinks reports whether events of this category involve food or drinks
func (c EventCategory) ServesFoodOrDrinks() bool {
	switch c {
	case CategoryMeal, CategoryPotluck, CategoryDrinks:
		return true
	default:
		return false
	}
}

// Valid reports whether c is a known category
func (c EventCategory) Valid() bool {
	switch c {
	case CategoryMeal, CategoryPotluck, CategoryDrinks, CategoryActivity,
		CategoryCelebration, CategoryProfessional, CategoryOther:
		return true
	}
	return false
}

// RSVPStatus is a participant's answer to an invitation
type RSVPStatus string

const (
	RSVPYes   RSVPStatus = "YES"
	RSVPMaybe RSVPStatus = "MAYBE"
	RSVPNo    RSVPStatus = "NO"
)

// Valid reports whether s is one of YES, MAYBE or NO
func (s RSVPStatus) Valid() bool {
	return s == RSVPYes || s == RSVPMaybe || s == RSVPNo
}

// User is an account that can create and join events
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	Name         string    `gorm:"not null" json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
}

// BeforeCreate assigns an ID when missing
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Event is a planned gathering owned by its creator
type Event struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
	Title           string        `gorm:"not null" json:"title"`
	Description     *string       `json:"description,omitempty"`
	Datetime        time.Time     `gorm:"not null;index" json:"datetime"`
	LocationText    string        `json:"locationText"`
	Latitude        *float64      `json:"latitude,omitempty"`
	Longitude       *float64      `json:"longitude,omitempty"`
	CreatorID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"creatorId"`
	IsPublic        bool          `gorm:"not null" json:"isPublic"`
	Category        EventCategory `gorm:"not null;default:other" json:"category"`
	HasFoodOrDrinks bool          `gorm:"not null" json:"hasFoodOrDrinks"`
}

// BeforeSave keeps HasFoodOrDrinks derived from the category on every write
func (e *Event) BeforeSave(tx *gorm.DB) error {
	if e.Category == "" {
		e.Category = CategoryOther
	}
	e.HasFoodOrDrinks = e.Category.ServesFoodOrDrinks()
	return nil
}

// BeforeCreate assigns an ID when missing
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// RSVP is a user's response to an event. At most one exists per (user, event).
type RSVP struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt          time.Time                   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time                   `gorm:"autoUpdateTime" json:"updatedAt"`
	UserID             uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_rsvp_user_event" json:"userId"`
	EventID            uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_rsvp_user_event;index" json:"eventId"`
	Status             RSVPStatus                  `gorm:"not null" json:"status"`
	HasPlusOne         bool                        `gorm:"not null" json:"hasPlusOne"`
	PlusOneName        *string                     `json:"plusOneName,omitempty"`
	Comment            *string                     `json:"comment,omitempty"`
	DietaryPatterns    datatypes.JSONSlice[string] `json:"dietaryPatterns"`
	ReligiousDietary   datatypes.JSONSlice[string] `json:"religiousDietary"`
	Allergies          datatypes.JSONSlice[string] `json:"allergies"`
	LifestyleChoices   datatypes.JSONSlice[string] `json:"lifestyleChoices"`
	IntensityPrefs     datatypes.JSONSlice[string] `json:"intensityPrefs"`
	AlcoholPrefs       datatypes.JSONSlice[string] `json:"alcoholPrefs"`
	CustomDietaryNotes *string                     `json:"customDietaryNotes,omitempty"`
}

// TableName overrides the pluralised default "rsvps"
func (RSVP) TableName() string {
	return "rsvps"
}

// BeforeCreate assigns an ID when missing
func (r *RSVP) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Message is a chat line posted to an event
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index" json:"eventId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"userId"`
	Text      string    `gorm:"not null" json:"text"`
}

// BeforeCreate assigns an ID when missing
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Poll is a question with ordered options. IsClosed only ever goes from false to true.
type Poll struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
	EventID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"eventId"`
	Question  string       `gorm:"not null" json:"question"`
	CloseAt   *time.Time   `gorm:"index" json:"closeAt,omitempty"`
	IsClosed  bool         `gorm:"not null;index" json:"isClosed"`
	ClosedAt  *time.Time   `json:"closedAt,omitempty"`
	Options   []PollOption `gorm:"foreignKey:PollID" json:"options"`
}

// BeforeCreate assigns an ID when missing
func (p *Poll) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PollOption is one answer of a poll; Position preserves insertion order
type PollOption struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PollID   uuid.UUID `gorm:"type:uuid;not null;index" json:"pollId"`
	Text     string    `gorm:"not null" json:"text"`
	Position int       `gorm:"not null" json:"position"`
}

// BeforeCreate assigns an ID when missing
func (o *PollOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// PollVote records one user's choice; unique per (poll, user)
type PollVote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	PollID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vote_poll_user" json:"pollId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vote_poll_user" json:"userId"`
	OptionID  uuid.UUID `gorm:"type:uuid;not null;index" json:"optionId"`
}

// BeforeCreate assigns an ID when missing
func (v *PollVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// SetupModels runs schema migrations for every persisted type
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Event{},
		&RSVP{},
		&Message{},
		&Poll{},
		&PollOption{},
		&PollVote{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to migrate models")
	}
	return nil
}
