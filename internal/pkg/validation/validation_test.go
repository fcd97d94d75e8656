package validation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("user@elhodhod.com"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("a b@c.com"))
}

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("Str0ng!pass"))
	assert.False(t, IsValidPassword("short1!"))
	assert.False(t, IsValidPassword("lettersonly!"))
	assert.False(t, IsValidPassword("12345678!"))
}

func TestValidateAuctionParams(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	valid := AuctionParams{
		StartPrice:   d("100"),
		MinIncrement: d("10"),
		StartsAt:     now.Add(time.Hour),
		EndsAt:       now.Add(24 * time.Hour),
	}

	cases := []struct {
		name    string
		mutate  func(*AuctionParams)
		wantErr string
	}{
		{"valid", func(p *AuctionParams) {}, ""},
		{"negative start", func(p *AuctionParams) { p.StartPrice = d("-1") }, "start_price must be non-negative"},
		{"zero increment", func(p *AuctionParams) { p.MinIncrement = d("0") }, "min_increment must be positive"},
		{"reserve below start", func(p *AuctionParams) { p.ReservePrice = nd("50") }, "reserve_price must be at least start_price"},
		{"reserve at start ok", func(p *AuctionParams) { p.ReservePrice = nd("100") }, ""},
		{"buy-now below reserve", func(p *AuctionParams) {
			p.ReservePrice = nd("200")
			p.BuyNowPrice = nd("200")
		}, "buy_now_price must exceed reserve_price"},
		{"buy-now below start", func(p *AuctionParams) { p.BuyNowPrice = nd("50") }, "buy_now_price must be at least start_price"},
		{"starts in past", func(p *AuctionParams) { p.StartsAt = now.Add(-time.Minute) }, "starts_at must be in the future"},
		{"ends before start", func(p *AuctionParams) { p.EndsAt = p.StartsAt }, "ends_at must be after starts_at"},
		{"anti-sniping without extend", func(p *AuctionParams) {
			p.AntiSniping = true
			p.TriggerWindowMinutes = 5
		}, "extend_by_minutes must be positive when anti-sniping is enabled"},
		{"anti-sniping without window", func(p *AuctionParams) {
			p.AntiSniping = true
			p.ExtendByMinutes = 5
		}, "trigger_window_minutes must be positive when anti-sniping is enabled"},
		{"deposit without amount", func(p *AuctionParams) { p.RequireDeposit = true }, "deposit_amount must be positive when a deposit is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			err := ValidateAuctionParams(p, now)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.wantErr)
			}
		})
	}
}
