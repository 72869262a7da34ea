package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-storefront/internal/payment"
)

// scripted is a backend whose checks return a fixed sequence of results.
// When gate is set, each check waits for a value from it instead.
type scripted struct {
	mu          sync.Mutex
	results     []bool
	errs        []error
	calls       int
	instructErr error
	gate        chan bool
	entered     chan struct{}
}

func (b *scripted) Instruct(context.Context, payment.Order) (payment.Instruction, error) {
	if b.instructErr != nil {
		return payment.Instruction{}, b.instructErr
	}
	return payment.Instruction{URL: "https://pay.test/x"}, nil
}

func (b *scripted) Check(context.Context, payment.Order) (bool, error) {
	b.mu.Lock()
	i := b.calls
	b.calls++
	b.mu.Unlock()

	if b.gate != nil {
		if b.entered != nil {
			b.entered <- struct{}{}
		}
		return <-b.gate, nil
	}
	if i < len(b.errs) && b.errs[i] != nil {
		return false, b.errs[i]
	}
	if i < len(b.results) {
		return b.results[i], nil
	}
	return false, nil
}

func (b *scripted) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type memGranter struct {
	mu     sync.Mutex
	owned  map[string]bool
	grants   int
	hasErr   error
	grantErr error
}

func newGranter() *memGranter { return &memGranter{owned: map[string]bool{}} }

func key(u int64, p uint) string { return fmt.Sprintf("%d/%d", u, p) }

func (g *memGranter) Has(_ context.Context, u int64, p uint) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hasErr != nil {
		return false, g.hasErr
	}
	return g.owned[key(u, p)], nil
}

func (g *memGranter) Grant(_ context.Context, u int64, p uint) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants++
	if g.grantErr != nil {
		return false, g.grantErr
	}
	if g.owned[key(u, p)] {
		return false, nil
	}
	g.owned[key(u, p)] = true
	return true, nil
}

func (g *memGranter) Owns(u int64, p uint) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owned[key(u, p)]
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func widgetOrder(userID int64) payment.Order {
	return payment.NewOrder(userID, 1, "Widget", 100, time.Now())
}

func method(b payment.Backend, attempts int, delay time.Duration) *payment.Descriptor {
	return &payment.Descriptor{Name: "TestPayment", Kind: payment.KindTest, Attempts: attempts, Delay: delay, Backend: b}
}

func TestSession_ConfirmsOnThirdCheck(t *testing.T) {
	b := &scripted{results: []bool{false, false, true}}
	g := newGranter()
	rec := &recorder{}

	s, err := NewSession(widgetOrder(7), method(b, 3, 0), Options{Granter: g, Notifier: rec})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateConfirmed, s.State())
	assert.Equal(t, 3, s.Attempts())
	assert.True(t, g.Owns(7, 1))
	assert.Equal(t, []EventKind{EventInstruction, EventConfirmed}, rec.Kinds())
}

func TestSession_ExhaustsWithoutGrant(t *testing.T) {
	b := &scripted{results: []bool{false, false, false}}
	g := newGranter()
	rec := &recorder{}

	s, err := NewSession(widgetOrder(7), method(b, 3, 0), Options{Granter: g, Notifier: rec})
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, StateExhausted, s.State())
	assert.Equal(t, 3, b.Calls())
	assert.False(t, g.Owns(7, 1))
	assert.Zero(t, g.grants)
	assert.Equal(t, []EventKind{EventInstruction, EventExhausted}, rec.Kinds())
}

func TestSession_InstructionFailureAborts(t *testing.T) {
	b := &scripted{instructErr: fmt.Errorf("quote: %w", payment.ErrGatewayUnavailable)}
	g := newGranter()
	rec := &recorder{}

	s, err := NewSession(widgetOrder(7), method(b, 3, 0), Options{Granter: g, Notifier: rec})
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	assert.Equal(t, StateAborted, s.State())
	assert.Zero(t, b.Calls(), "no polling after a failed instruction")
	assert.Equal(t, []EventKind{EventFailed}, rec.Kinds())
}

func TestSession_CancelWhileSleepingStopsPromptly(t *testing.T) {
	b := &scripted{}
	g := newGranter()

	s, err := NewSession(widgetOrder(7), method(b, 100, time.Hour), Options{Granter: g})
	require.NoError(t, err)

	go func() { _ = s.Run(context.Background()) }()
	require.Eventually(t, func() bool { return s.Attempts() == 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, s.Cancel())
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
	assert.ErrorIs(t, s.Err(), ErrCancelled)
	assert.Equal(t, StateCancelled, s.State())
	assert.False(t, s.Cancel(), "cancel after terminal state is a no-op")
	assert.False(t, g.Owns(7, 1))
}

func TestSession_CancelWinsOverInFlightPositiveCheck(t *testing.T) {
	b := &scripted{gate: make(chan bool), entered: make(chan struct{}, 1)}
	g := newGranter()

	s, err := NewSession(widgetOrder(7), method(b, 5, 0), Options{Granter: g})
	require.NoError(t, err)

	go func() { _ = s.Run(context.Background()) }()
	<-b.entered // check is on the wire

	require.True(t, s.Cancel())
	b.gate <- true // gateway now says paid; result must be discarded

	<-s.Done()
	assert.ErrorIs(t, s.Err(), ErrCancelled)
	assert.False(t, g.Owns(7, 1))
	assert.Zero(t, g.grants)
}

func TestSession_CheckErrorsConsumeAttempts(t *testing.T) {
	gw := fmt.Errorf("timeout: %w", payment.ErrGatewayUnavailable)
	b := &scripted{errs: []error{gw, gw}, results: []bool{false, false, true}}
	g := newGranter()

	s, err := NewSession(widgetOrder(7), method(b, 3, 0), Options{Granter: g})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 3, s.Attempts())
	assert.True(t, g.Owns(7, 1))
}

func TestSession_ConsecutiveCheckFailuresAbort(t *testing.T) {
	gw := fmt.Errorf("dial: %w", payment.ErrGatewayUnavailable)
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = gw
	}
	b := &scripted{errs: errs}
	g := newGranter()
	rec := &recorder{}

	s, err := NewSession(widgetOrder(7), method(b, 10, 0), Options{Granter: g, Notifier: rec, FailureLimit: 3})
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	assert.Equal(t, StateAborted, s.State())
	assert.Equal(t, 3, b.Calls())
	assert.Equal(t, []EventKind{EventInstruction, EventFailed}, rec.Kinds())
}

func TestSession_FailureStreakResetsOnCleanCheck(t *testing.T) {
	gw := payment.ErrGatewayUnavailable
	// err, err, ok(false), err, err, paid
	b := &scripted{
		errs:    []error{gw, gw, nil, gw, gw, nil},
		results: []bool{false, false, false, false, false, true},
	}
	g := newGranter()

	s, err := NewSession(widgetOrder(7), method(b, 6, 0), Options{Granter: g, FailureLimit: 3})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateConfirmed, s.State())
	assert.Equal(t, 6, s.Attempts())
}

func TestSession_AlreadyOwnedAtConfirmDoesNotRegrant(t *testing.T) {
	b := &scripted{results: []bool{true}}
	g := newGranter()
	g.owned[key(7, 1)] = true

	s, err := NewSession(widgetOrder(7), method(b, 1, 0), Options{Granter: g})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateConfirmed, s.State())
	assert.Zero(t, g.grants)
}

func TestSession_OwnershipRecheckError(t *testing.T) {
	b := &scripted{results: []bool{true}}
	g := newGranter()
	g.hasErr = errors.New("db locked")
	rec := &recorder{}

	s, err := NewSession(widgetOrder(7), method(b, 1, 0), Options{Granter: g, Notifier: rec})
	require.NoError(t, err)

	assert.Error(t, s.Run(context.Background()))
	assert.Equal(t, StateAborted, s.State())
	assert.Zero(t, g.grants)
	assert.Equal(t, []EventKind{EventInstruction, EventFailed}, rec.Kinds())
}

func TestSession_GrantFailureIsNotConfirmed(t *testing.T) {
	b := &scripted{results: []bool{true}}
	g := newGranter()
	g.grantErr = errors.New("product not found")
	rec := &recorder{}

	s, err := NewSession(widgetOrder(7), method(b, 1, 0), Options{Granter: g, Notifier: rec})
	require.NoError(t, err)

	before := testutil.ToFloat64(sessionsTotal.WithLabelValues("TestPayment", "confirmed"))
	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grant: product not found")
	assert.Equal(t, StateAborted, s.State())
	assert.False(t, g.Owns(7, 1))
	assert.Equal(t, []EventKind{EventInstruction, EventFailed}, rec.Kinds())
	assert.Equal(t, before, testutil.ToFloat64(sessionsTotal.WithLabelValues("TestPayment", "confirmed")))
}

func TestSession_CancelRefusedWhileGranting(t *testing.T) {
	s, err := NewSession(widgetOrder(7), method(&scripted{}, 1, 0), Options{Granter: newGranter()})
	require.NoError(t, err)

	s.state.Store(int32(StateGranting))
	assert.False(t, s.Cancel())
	assert.Equal(t, StateGranting, s.State())
}

func TestNewSession_RejectsGroupsAndMissingGranter(t *testing.T) {
	group := &payment.Descriptor{Name: "Heleket", Kind: payment.KindGroup, Children: []*payment.Descriptor{
		method(&scripted{}, 1, 0),
	}}
	_, err := NewSession(widgetOrder(7), group, Options{Granter: newGranter()})
	assert.ErrorIs(t, err, ErrNotLeaf)

	_, err = NewSession(widgetOrder(7), method(&scripted{}, 1, 0), Options{})
	assert.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "polling", StatePolling.String())
	assert.Equal(t, "granting", StateGranting.String())
	assert.False(t, StateGranting.Terminal())
	assert.True(t, StateAborted.Terminal())
	assert.False(t, StateInstructing.Terminal())
}
