// Package fulfillment drives payment sessions: one in-flight purchase per
// user that asks a backend for a payment instruction, polls it until the
// order is paid or the attempt budget is spent, and grants the product
// exactly once.
//
// Cancellation is cooperative. It is honoured before every check and while
// sleeping between checks; a status request already on the wire is allowed
// to finish and its result is discarded.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-storefront/internal/payment"
)

var (
	// ErrExhausted means every check ran and none reported the order paid.
	ErrExhausted = errors.New("payment not received within the attempt budget")

	// ErrCancelled means the session was cancelled before it could confirm.
	ErrCancelled = errors.New("payment session cancelled")

	// ErrNotLeaf is returned when a session is created for a method group.
	ErrNotLeaf = errors.New("payment method is a group, not a payable method")
)

// State of a session. Confirmed, Exhausted, Cancelled and Aborted are
// terminal. Granting is entered once the gateway reports the order paid;
// from there the session can only end Confirmed (ownership written) or
// Aborted (delivery failed), and cancellation is no longer accepted.
type State int32

const (
	StateInstructing State = iota
	StatePolling
	StateGranting
	StateConfirmed
	StateExhausted
	StateCancelled
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInstructing:
		return "instructing"
	case StatePolling:
		return "polling"
	case StateGranting:
		return "granting"
	case StateConfirmed:
		return "confirmed"
	case StateExhausted:
		return "exhausted"
	case StateCancelled:
		return "cancelled"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s >= StateConfirmed }

// Granter is the ownership store a session consults and writes to.
type Granter interface {
	Has(ctx context.Context, userID int64, productID uint) (bool, error)
	Grant(ctx context.Context, userID int64, productID uint) (bool, error)
}

// EventKind names a user-facing notification.
type EventKind string

const (
	EventInstruction EventKind = "instruction"
	EventConfirmed   EventKind = "confirmed"
	EventExhausted   EventKind = "exhausted"
	EventCancelled   EventKind = "cancelled"
	EventFailed      EventKind = "failed"
)

// Event is delivered to the chat transport.
type Event struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	ProductID uint      `json:"product_id"`
	Kind      EventKind `json:"event"`
	Text      string    `json:"text"`
}

// Notifier delivers events to the user. Delivery failures are logged by the
// session and never change its outcome.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Options configures a session.
type Options struct {
	Granter  Granter
	Notifier Notifier

	// FailureLimit aborts polling after this many consecutive failed checks.
	// Zero keeps polling until the attempt budget is spent.
	FailureLimit int

	// CallTimeout bounds each gateway call. Zero means no extra bound.
	CallTimeout time.Duration
}

// Session is one purchase attempt of one product through one leaf method.
type Session struct {
	ID        string
	UserID    int64
	ProductID uint
	Method    *payment.Descriptor
	Order     payment.Order

	opts Options

	state    atomic.Int32
	attempts atomic.Int32

	cancelCtx context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	err       error

	onTerminal func(*Session)
}

// NewSession prepares a session for order. The method must be a leaf.
func NewSession(order payment.Order, method *payment.Descriptor, opts Options) (*Session, error) {
	if method == nil || method.IsGroup() || method.Backend == nil {
		return nil, ErrNotLeaf
	}
	if opts.Granter == nil {
		return nil, errors.New("fulfillment: granter is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    order.UserID,
		ProductID: order.ProductID,
		Method:    method,
		Order:     order,
		opts:      opts,
		cancelCtx: ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.state.Store(int32(StateInstructing))
	return s, nil
}

// State returns the current state.
func (s *Session) State() State { return State(s.state.Load()) }

// Attempts returns the number of status checks performed so far.
func (s *Session) Attempts() int { return int(s.attempts.Load()) }

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err is the terminal error: nil for Confirmed, otherwise the reason. Only
// meaningful after Done is closed.
func (s *Session) Err() error {
	<-s.done
	return s.err
}

// Cancel requests cancellation. It returns false if the session already
// reached a terminal state or is granting a paid order. Once Cancel wins,
// the session never grants.
func (s *Session) Cancel() bool {
	for {
		cur := State(s.state.Load())
		if cur.Terminal() || cur == StateGranting {
			return false
		}
		if s.state.CompareAndSwap(int32(cur), int32(StateCancelled)) {
			s.cancel()
			return true
		}
	}
}

func (s *Session) cancelled() bool { return s.State() == StateCancelled }

// Run drives the session to a terminal state. ctx bounds gateway and store
// calls; it is not the cancellation signal, see Cancel.
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		s.cancel()
		close(s.done)
		if s.onTerminal != nil {
			s.onTerminal(s)
		}
	}()

	ctx, span := otel.Tracer("fulfillment/Session").Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("session.id", s.ID),
			attribute.Int64("user.id", s.UserID),
			attribute.Int("product.id", int(s.ProductID)),
			attribute.String("payment.method", s.Method.Name),
		),
	)
	defer span.End()

	lg := log.With().
		Str("session_id", s.ID).
		Int64("user_id", s.UserID).
		Uint("product_id", s.ProductID).
		Str("method", s.Method.Name).
		Logger()

	s.err = s.run(ctx, lg)

	outcome := s.State().String()
	sessionsTotal.WithLabelValues(s.Method.Name, outcome).Inc()
	checkAttempts.Observe(float64(s.Attempts()))
	span.SetAttributes(
		attribute.String("session.outcome", outcome),
		attribute.Int("session.attempts", s.Attempts()),
	)
	if s.err != nil && !errors.Is(s.err, ErrCancelled) {
		span.RecordError(s.err)
		span.SetStatus(codes.Error, outcome)
	}
	lg.Info().Str("outcome", outcome).Int("attempts", s.Attempts()).Err(s.err).Msg("payment session finished")
	return s.err
}

func (s *Session) run(ctx context.Context, lg zerolog.Logger) error {
	if s.cancelled() {
		return s.finishCancelled(ctx, lg)
	}

	callCtx, done := s.callContext(ctx)
	in, err := s.Method.Backend.Instruct(callCtx, s.Order)
	done()
	if err != nil {
		if !s.state.CompareAndSwap(int32(StateInstructing), int32(StateAborted)) {
			return s.finishCancelled(ctx, lg)
		}
		lg.Error().Err(err).Msg("payment instruction failed")
		s.notify(ctx, lg, EventFailed, "Could not prepare the payment. Please try again later.")
		return fmt.Errorf("instruct: %w", err)
	}
	if !s.state.CompareAndSwap(int32(StateInstructing), int32(StatePolling)) {
		return s.finishCancelled(ctx, lg)
	}
	s.notify(ctx, lg, EventInstruction, in.Text(s.Order.ProductName, s.Method.Budget()))

	failures := 0
	for attempt := 1; attempt <= s.Method.Attempts; attempt++ {
		if s.cancelled() {
			return s.finishCancelled(ctx, lg)
		}

		s.attempts.Add(1)
		callCtx, done := s.callContext(ctx)
		paid, err := s.Method.Backend.Check(callCtx, s.Order)
		done()

		switch {
		case err != nil:
			failures++
			lg.Warn().Err(err).Int("attempt", attempt).Int("consecutive_failures", failures).Msg("payment check failed")
			if s.opts.FailureLimit > 0 && failures >= s.opts.FailureLimit {
				if !s.state.CompareAndSwap(int32(StatePolling), int32(StateAborted)) {
					return s.finishCancelled(ctx, lg)
				}
				s.notify(ctx, lg, EventFailed, "The payment provider is not responding. Please try again later.")
				return fmt.Errorf("check failed %d times in a row: %w", failures, err)
			}
		case paid:
			return s.confirm(ctx, lg)
		default:
			failures = 0
		}

		if attempt < s.Method.Attempts && s.Method.Delay > 0 {
			t := time.NewTimer(s.Method.Delay)
			select {
			case <-s.cancelCtx.Done():
				t.Stop()
				return s.finishCancelled(ctx, lg)
			case <-ctx.Done():
				t.Stop()
				s.Cancel()
				return s.finishCancelled(ctx, lg)
			case <-t.C:
			}
		}
	}

	if !s.state.CompareAndSwap(int32(StatePolling), int32(StateExhausted)) {
		return s.finishCancelled(ctx, lg)
	}
	s.notify(ctx, lg, EventExhausted, "We could not find your payment.")
	return ErrExhausted
}

// confirm is the commit point: only a session still polling may grant.
// The session reports Confirmed only after ownership is on record.
func (s *Session) confirm(ctx context.Context, lg zerolog.Logger) error {
	if !s.state.CompareAndSwap(int32(StatePolling), int32(StateGranting)) {
		return s.finishCancelled(ctx, lg)
	}

	if err := s.grant(ctx, lg); err != nil {
		s.state.Store(int32(StateAborted))
		lg.Error().Err(err).Msg("payment received but product not delivered")
		s.notify(ctx, lg, EventFailed, "Payment received but delivery failed. Please contact support.")
		return err
	}
	s.state.Store(int32(StateConfirmed))
	s.notify(ctx, lg, EventConfirmed, "Payment received! Your download is ready.")
	return nil
}

func (s *Session) grant(ctx context.Context, lg zerolog.Logger) error {
	owned, err := s.opts.Granter.Has(ctx, s.UserID, s.ProductID)
	if err != nil {
		return fmt.Errorf("re-check ownership: %w", err)
	}
	if owned {
		return nil
	}
	if _, err := s.opts.Granter.Grant(ctx, s.UserID, s.ProductID); err != nil {
		return fmt.Errorf("grant: %w", err)
	}
	lg.Info().Int64("price", s.Order.Price).Msg("product purchased")
	return nil
}

func (s *Session) finishCancelled(ctx context.Context, lg zerolog.Logger) error {
	s.notify(ctx, lg, EventCancelled, "Payment cancelled.")
	return ErrCancelled
}

func (s *Session) notify(ctx context.Context, lg zerolog.Logger, kind EventKind, text string) {
	if s.opts.Notifier == nil {
		return
	}
	ev := Event{SessionID: s.ID, UserID: s.UserID, ProductID: s.ProductID, Kind: kind, Text: text}
	if err := s.opts.Notifier.Notify(ctx, ev); err != nil {
		lg.Warn().Err(err).Str("event", string(kind)).Msg("notification failed")
	}
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.CallTimeout)
	}
	return ctx, func() {}
}
