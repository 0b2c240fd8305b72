// README: Payment gateway boundary for deposit holds. The ledger only ever
// sees these three primitives; card entry and verification live elsewhere.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

type Gateway interface {
	AuthorizeHold(ctx context.Context, customerID string, amount int64) (holdRef string, err error)
	CancelHold(ctx context.Context, holdRef string) error
	CaptureHold(ctx context.Context, holdRef string, amount int64) error
}

// StubGateway is an in-memory rail for tests and local runs.
type StubGateway struct {
	mu    sync.Mutex
	holds map[string]stubHold
}

type stubHold struct {
	customerID string
	amount     int64
	captured   int64
	cancelled  bool
}

func NewStubGateway() *StubGateway {
	return &StubGateway{holds: map[string]stubHold{}}
}

func (g *StubGateway) AuthorizeHold(ctx context.Context, customerID string, amount int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref := "hold_" + uuid.NewString()
	g.holds[ref] = stubHold{customerID: customerID, amount: amount}
	return ref, nil
}

func (g *StubGateway) CancelHold(ctx context.Context, holdRef string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.holds[holdRef]
	if !ok {
		return fmt.Errorf("unknown hold %s", holdRef)
	}
	h.cancelled = true
	g.holds[holdRef] = h
	return nil
}

func (g *StubGateway) CaptureHold(ctx context.Context, holdRef string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.holds[holdRef]
	if !ok {
		return fmt.Errorf("unknown hold %s", holdRef)
	}
	if h.cancelled {
		return fmt.Errorf("hold %s already cancelled", holdRef)
	}
	if amount > h.amount {
		return fmt.Errorf("capture %d exceeds hold %d", amount, h.amount)
	}
	h.captured = amount
	g.holds[holdRef] = h
	return nil
}

// Hold reports the stub's view of a hold; test helper.
func (g *StubGateway) Hold(holdRef string) (amount, captured int64, cancelled, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, found := g.holds[holdRef]
	return h.amount, h.captured, h.cancelled, found
}

// BreakerGateway wraps a production rail with a circuit breaker so a
// misbehaving processor fails fast instead of stalling transitions.
type BreakerGateway struct {
	inner   Gateway
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerGateway(inner Gateway) *BreakerGateway {
	return &BreakerGateway{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "deposit-gateway",
		}),
	}
}

func (g *BreakerGateway) AuthorizeHold(ctx context.Context, customerID string, amount int64) (string, error) {
	ref, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.AuthorizeHold(ctx, customerID, amount)
	})
	if err != nil {
		return "", wrapBreakerErr(err)
	}
	return ref.(string), nil
}

func (g *BreakerGateway) CancelHold(ctx context.Context, holdRef string) error {
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.inner.CancelHold(ctx, holdRef)
	})
	return wrapBreakerErr(err)
}

func (g *BreakerGateway) CaptureHold(ctx context.Context, holdRef string, amount int64) error {
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.inner.CaptureHold(ctx, holdRef, amount)
	})
	return wrapBreakerErr(err)
}

func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrGatewayUnavailable
	}
	return err
}
