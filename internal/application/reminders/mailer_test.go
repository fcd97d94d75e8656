package reminders

import (
	"context"
	"testing"
	"time"

	"hodhod-backend/internal/application/events"
	"hodhod-backend/internal/domain"
	"hodhod-backend/internal/pkg/clock"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEmail struct {
	To      string
	Title   string
	Minutes int
	Price   string
}

type recorderMailer struct {
	sent []recordedEmail
}

func (m *recorderMailer) SendOutbid(ctx context.Context, toEmail, name, auctionTitle, minAcceptable string) error {
	return nil
}

func (m *recorderMailer) SendEndingSoon(ctx context.Context, toEmail, name, auctionTitle string, minutesLeft int, currentPrice string) error {
	m.sent = append(m.sent, recordedEmail{To: toEmail, Title: auctionTitle, Minutes: minutesLeft, Price: currentPrice})
	return nil
}

func (m *recorderMailer) SendAuctionWon(ctx context.Context, toEmail, name, auctionTitle, finalPrice string) error {
	return nil
}

func setupMailingScheduler(t *testing.T) (*Scheduler, *gorm.DB, *recorderMailer) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Auction{}, &domain.AuctionEvent{}, &domain.User{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	mailer := &recorderMailer{}
	return &Scheduler{
		DB:      db,
		Rdb:     rdb,
		Events:  &events.Publisher{DB: db},
		Clock:   clock.NewMock(remindNow),
		Offsets: []int{15},
		Mailer:  mailer,
	}, db, mailer
}

func TestRun_EmailsTopBidder(t *testing.T) {
	s, db, mailer := setupMailingScheduler(t)
	bidder := &domain.User{Fullname: "Noura Al-Mutairi", Email: "noura@elhodhod.com", PasswordHash: "x", Role: "buyer"}
	require.NoError(t, db.Create(bidder).Error)

	a := seedEnding(t, db, remindNow.Add(10*time.Minute), &bidder.UserID)
	require.NoError(t, s.Run(context.Background()))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "noura@elhodhod.com", mailer.sent[0].To)
	assert.Equal(t, a.Title, mailer.sent[0].Title)
	assert.Equal(t, 15, mailer.sent[0].Minutes)
	assert.Equal(t, "120.000", mailer.sent[0].Price)

	// dedupe applies to emails too
	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, mailer.sent, 1)
}

func TestRun_EmailSkippedWhenBidderMissing(t *testing.T) {
	s, db, mailer := setupMailingScheduler(t)
	ghost := uuid.New()
	a := seedEnding(t, db, remindNow.Add(10*time.Minute), &ghost)

	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, mailer.sent)
	// the reminder event still fires
	assert.Equal(t, int64(1), reminderCount(t, db, a.AuctionID))
}
