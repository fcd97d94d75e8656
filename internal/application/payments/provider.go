package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrHoldDeclined is returned when the gateway refuses to reserve funds
// (insufficient balance, blocked account). The auction engine surfaces this
// to bidders as a deposit-required rejection.
var ErrHoldDeclined = errors.New("payment provider declined the hold")

// Provider abstracts the payment gateway used for refundable bidder deposits.
// Hold reserves funds and returns a provider reference; Capture and Release
// settle the reservation and must be idempotent on the provider side.
type Provider interface {
	Hold(ctx context.Context, principalID uuid.UUID, amount decimal.Decimal) (string, error)
	Capture(ctx context.Context, ref string) error
	Release(ctx context.Context, ref string) error
}

// Sandbox is an in-memory Provider for development and tests. Principals in
// DeclineFor have their holds rejected, simulating insufficient funds.
type Sandbox struct {
	mu         sync.Mutex
	seq        int
	holds      map[string]string // ref -> "held" | "captured" | "released"
	DeclineFor map[uuid.UUID]bool
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		holds:      make(map[string]string),
		DeclineFor: make(map[uuid.UUID]bool),
	}
}

func (s *Sandbox) Hold(ctx context.Context, principalID uuid.UUID, amount decimal.Decimal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeclineFor[principalID] {
		return "", ErrHoldDeclined
	}
	s.seq++
	ref := fmt.Sprintf("sandbox-hold-%d", s.seq)
	s.holds[ref] = "held"
	return ref, nil
}

func (s *Sandbox) Capture(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.holds[ref]
	if !ok {
		return fmt.Errorf("unknown hold ref %q", ref)
	}
	if state == "captured" {
		return nil
	}
	if state == "released" {
		return fmt.Errorf("hold %q already released", ref)
	}
	s.holds[ref] = "captured"
	return nil
}

func (s *Sandbox) Release(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.holds[ref]
	if !ok {
		return fmt.Errorf("unknown hold ref %q", ref)
	}
	if state == "released" {
		return nil
	}
	if state == "captured" {
		return fmt.Errorf("hold %q already captured", ref)
	}
	s.holds[ref] = "released"
	return nil
}

// State returns the current state of a hold ref (tests).
func (s *Sandbox) State(ref string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holds[ref]
}
