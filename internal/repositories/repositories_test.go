package repositories

import (
	"context"
	"testing"
	"time"

	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedEvent(t *testing.T, repos *Repositories) (*models.User, *models.Event) {
	t.Helper()
	ctx := context.Background()

	creator := &models.User{Email: uuid.NewString() + "@example.com", Name: "Creator", PasswordHash: "x"}
	require.NoError(t, repos.Users.Create(ctx, creator))

	event := &models.Event{
		Title:     "Dinner",
		Datetime:  time.Now().Add(48 * time.Hour).UTC(),
		CreatorID: creator.ID,
		Category:  models.CategoryMeal,
	}
	require.NoError(t, repos.Events.Create(ctx, event))
	return creator, event
}

func TestRSVPUniquePerUserAndEvent(t *testing.T) {
	db := testutil.NewDB(t)
	repos := New(db, db)
	ctx := context.Background()
	_, event := seedEvent(t, repos)
	userID := uuid.New()

	require.NoError(t, repos.RSVPs.Create(ctx, &models.RSVP{EventID: event.ID, UserID: userID, Status: models.RSVPYes}))
	err := repos.RSVPs.Create(ctx, &models.RSVP{EventID: event.ID, UserID: userID, Status: models.RSVPNo})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	ids, err := repos.RSVPs.ParticipantIDs(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, ids)
}

func TestRSVPDeleteMissing(t *testing.T) {
	db := testutil.NewDB(t)
	repos := New(db, db)

	err := repos.RSVPs.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventCreateDerivesFoodFlag(t *testing.T) {
	db := testutil.NewDB(t)
	repos := New(db, db)
	_, event := seedEvent(t, repos)

	stored, err := repos.Events.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasFoodOrDrinks)

	stored.Category = models.CategoryActivity
	require.NoError(t, repos.Events.Save(context.Background(), stored))

	stored, err = repos.Events.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasFoodOrDrinks)
}

func TestPollMarkClosedIsMonotonic(t *testing.T) {
	db := testutil.NewDB(t)
	repos := New(db, db)
	ctx := context.Background()
	_, event := seedEvent(t, repos)

	poll := &models.Poll{EventID: event.ID, Question: "When?", Options: []models.PollOption{{Text: "Fri"}, {Text: "Sat"}}}
	require.NoError(t, repos.Polls.Create(ctx, poll))

	closed, err := repos.Polls.MarkClosed(ctx, poll.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = repos.Polls.MarkClosed(ctx, poll.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, closed)

	stored, err := repos.Polls.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsClosed)
	require.Len(t, stored.Options, 2)
	assert.Equal(t, "Fri", stored.Options[0].Text)
	assert.Equal(t, 1, stored.Options[1].Position)
}

func TestPollReplaceVoteKeepsOneVotePerUser(t *testing.T) {
	db := testutil.NewDB(t)
	repos := New(db, db)
	ctx := context.Background()
	_, event := seedEvent(t, repos)

	poll := &models.Poll{EventID: event.ID, Question: "Where?", Options: []models.PollOption{{Text: "Park"}, {Text: "Cafe"}}}
	require.NoError(t, repos.Polls.Create(ctx, poll))
	voter := uuid.New()

	for _, option := range []models.PollOption{poll.Options[0], poll.Options[1], poll.Options[0]} {
		err := db.Transaction(func(tx *gorm.DB) error {
			return repos.WithTx(tx).Polls.ReplaceVote(ctx, &models.PollVote{PollID: poll.ID, UserID: voter, OptionID: option.ID})
		})
		require.NoError(t, err)
	}

	summary, err := repos.Polls.Summary(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalVotes)
	assert.Equal(t, 1, summary.Options[0].Votes)
	assert.Equal(t, 0, summary.Options[1].Votes)
}

func TestPollReplaceVoteRejectsClosedPoll(t *testing.T) {
	db := testutil.NewDB(t)
	repos := New(db, db)
	ctx := context.Background()
	_, event := seedEvent(t, repos)

	poll := &models.Poll{EventID: event.ID, Question: "Where?", Options: []models.PollOption{{Text: "Park"}, {Text: "Cafe"}}}
	require.NoError(t, repos.Polls.Create(ctx, poll))

	closed, err := repos.Polls.MarkClosed(ctx, poll.ID, time.Now())
	require.NoError(t, err)
	require.True(t, closed)

	err = db.Transaction(func(tx *gorm.DB) error {
		return repos.WithTx(tx).Polls.ReplaceVote(ctx, &models.PollVote{PollID: poll.ID, UserID: uuid.New(), OptionID: poll.Options[0].ID})
	})
	assert.ErrorIs(t, err, ErrPollClosed)

	summary, err := repos.Polls.Summary(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalVotes)
}

func TestEventDeleteCascade(t *testing.T) {
	db := testutil.NewDB(t)
	repos := New(db, db)
	ctx := context.Background()
	creator, event := seedEvent(t, repos)

	poll := &models.Poll{EventID: event.ID, Question: "Q", Options: []models.PollOption{{Text: "a"}, {Text: "b"}}}
	require.NoError(t, repos.Polls.Create(ctx, poll))
	require.NoError(t, repos.RSVPs.Create(ctx, &models.RSVP{EventID: event.ID, UserID: uuid.New(), Status: models.RSVPYes}))
	require.NoError(t, repos.Messages.Create(ctx, &models.Message{EventID: event.ID, UserID: creator.ID, Text: "hi"}))

	err := db.Transaction(func(tx *gorm.DB) error {
		return repos.WithTx(tx).Events.DeleteCascade(ctx, event.ID)
	})
	require.NoError(t, err)

	_, err = repos.Events.GetByID(ctx, event.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repos.Polls.GetByID(ctx, poll.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var options int64
	require.NoError(t, db.Model(&models.PollOption{}).Count(&options).Error)
	assert.Zero(t, options)

	msgs, err := repos.Messages.ListRecent(ctx, event.ID, nil, 50)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessagesListRecentNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repos := New(db, db)
	ctx := context.Background()
	creator, event := seedEvent(t, repos)

	base := time.Now().UTC().Add(-time.Hour)
	for i, text := range []string{"one", "two", "three"} {
		msg := &models.Message{EventID: event.ID, UserID: creator.ID, Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repos.Messages.Create(ctx, msg))
	}

	msgs, err := repos.Messages.ListRecent(ctx, event.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "three", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)

	before := base.Add(90 * time.Second)
	msgs, err = repos.Messages.ListRecent(ctx, event.ID, &before, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one", msgs[0].Text)
}
