package auctions

import (
	"context"
	"testing"

	"hodhod-backend/internal/domain"
	"hodhod-backend/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	Kind  string
	To    string
	Title string
	Value string
}

type stubMailer struct {
	sent []sentMail
}

func (m *stubMailer) SendOutbid(ctx context.Context, toEmail, name, auctionTitle, minAcceptable string) error {
	m.sent = append(m.sent, sentMail{Kind: "outbid", To: toEmail, Title: auctionTitle, Value: minAcceptable})
	return nil
}

func (m *stubMailer) SendEndingSoon(ctx context.Context, toEmail, name, auctionTitle string, minutesLeft int, currentPrice string) error {
	return nil
}

func (m *stubMailer) SendAuctionWon(ctx context.Context, toEmail, name, auctionTitle, finalPrice string) error {
	m.sent = append(m.sent, sentMail{Kind: "won", To: toEmail, Title: auctionTitle, Value: finalPrice})
	return nil
}

func seedBidderUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	u := &domain.User{Fullname: "Bader Al-Rashidi", Email: email, PasswordHash: "x", Role: "buyer"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func setupMailingService(t *testing.T) (*Service, *gorm.DB, *clock.Mock, *stubMailer) {
	svc, db, mock, _ := setupService(t)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	mailer := &stubMailer{}
	svc.Mailer = mailer
	return svc, db, mock, mailer
}

func TestPlaceBid_OutbidEmailsPreviousLeader(t *testing.T) {
	svc, db, _, mailer := setupMailingService(t)
	ctx := context.Background()
	a := seedActive(t, db)
	first := seedBidderUser(t, db, "bader@elhodhod.com")
	second := uuid.New()

	_, err := svc.PlaceBid(ctx, a.AuctionID, first.UserID, dec("100"), false)
	require.NoError(t, err)
	assert.Empty(t, mailer.sent) // nobody to outbid yet

	_, err = svc.PlaceBid(ctx, a.AuctionID, second, dec("110"), false)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "outbid", mailer.sent[0].Kind)
	assert.Equal(t, "bader@elhodhod.com", mailer.sent[0].To)
	assert.Equal(t, "120.000", mailer.sent[0].Value)
}

func TestPlaceBid_RaisingOwnBidSendsNoEmail(t *testing.T) {
	svc, db, _, mailer := setupMailingService(t)
	ctx := context.Background()
	a := seedActive(t, db)
	bidder := seedBidderUser(t, db, "bader@elhodhod.com")

	_, err := svc.PlaceBid(ctx, a.AuctionID, bidder.UserID, dec("100"), false)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, a.AuctionID, bidder.UserID, dec("110"), false)
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestClose_SoldEmailsWinner(t *testing.T) {
	svc, db, mock, mailer := setupMailingService(t)
	ctx := context.Background()
	a := seedActive(t, db)
	winner := seedBidderUser(t, db, "winner@elhodhod.com")

	_, err := svc.PlaceBid(ctx, a.AuctionID, winner.UserID, dec("130"), false)
	require.NoError(t, err)

	mock.Set(a.EndsAt)
	require.NoError(t, svc.Close(ctx, a.AuctionID))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "won", mailer.sent[0].Kind)
	assert.Equal(t, "winner@elhodhod.com", mailer.sent[0].To)
	assert.Equal(t, "130.000", mailer.sent[0].Value)
}

func TestBuyNow_EmailsWinnerImmediately(t *testing.T) {
	svc, db, _, mailer := setupMailingService(t)
	ctx := context.Background()
	a := seedActive(t, db, func(a *domain.Auction) {
		a.BuyNowPrice = decimal.NewNullDecimal(dec("200"))
	})
	winner := seedBidderUser(t, db, "winner@elhodhod.com")

	_, err := svc.PlaceBid(ctx, a.AuctionID, winner.UserID, dec("200"), true)
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "won", mailer.sent[0].Kind)
	assert.Equal(t, "200.000", mailer.sent[0].Value)
}
