package validation

import (
	"regexp"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Error marks a rejected request payload, as opposed to an infrastructure
// failure. Handlers map it to HTTP 400 and pass the message through.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

// NewError builds a request-level validation error.
func NewError(msg string) *Error { return &Error{msg: msg} }

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires at least 8 characters with a letter, a number and
// a special character.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

// AuctionParams is the validated price/timing configuration of a new auction.
type AuctionParams struct {
	StartPrice           decimal.Decimal
	MinIncrement         decimal.Decimal
	ReservePrice         decimal.NullDecimal
	BuyNowPrice          decimal.NullDecimal
	StartsAt             time.Time
	EndsAt               time.Time
	AntiSniping          bool
	ExtendByMinutes      int
	TriggerWindowMinutes int
	RequireDeposit       bool
	DepositAmount        decimal.Decimal
}

// ValidateAuctionParams enforces the creation invariants:
// start_price >= 0, min_increment > 0, reserve >= start when set,
// buy_now > reserve when both set (and buy_now >= start otherwise),
// now < starts_at < ends_at, anti-sniping fields positive when enabled,
// deposit amount positive when deposits are required.
func ValidateAuctionParams(p AuctionParams, now time.Time) error {
	if p.StartPrice.IsNegative() {
		return NewError("start_price must be non-negative")
	}
	if !p.MinIncrement.IsPositive() {
		return NewError("min_increment must be positive")
	}
	if p.ReservePrice.Valid && p.ReservePrice.Decimal.LessThan(p.StartPrice) {
		return NewError("reserve_price must be at least start_price")
	}
	if p.BuyNowPrice.Valid {
		if p.ReservePrice.Valid && !p.BuyNowPrice.Decimal.GreaterThan(p.ReservePrice.Decimal) {
			return NewError("buy_now_price must exceed reserve_price")
		}
		if p.BuyNowPrice.Decimal.LessThan(p.StartPrice) {
			return NewError("buy_now_price must be at least start_price")
		}
	}
	if !p.StartsAt.After(now) {
		return NewError("starts_at must be in the future")
	}
	if !p.EndsAt.After(p.StartsAt) {
		return NewError("ends_at must be after starts_at")
	}
	if p.AntiSniping {
		if p.ExtendByMinutes <= 0 {
			return NewError("extend_by_minutes must be positive when anti-sniping is enabled")
		}
		if p.TriggerWindowMinutes <= 0 {
			return NewError("trigger_window_minutes must be positive when anti-sniping is enabled")
		}
	}
	if p.RequireDeposit && !p.DepositAmount.IsPositive() {
		return NewError("deposit_amount must be positive when a deposit is required")
	}
	return nil
}
