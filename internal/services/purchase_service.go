// Package services – PurchaseService
//
// This file turns a user's method selection into a payment session. Picking
// a group returns its submenu; picking a leaf checks ownership, builds the
// order and hands a new session to the registry, which supersedes any
// session the user already had.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-storefront/internal/fulfillment"
	"github.com/tbourn/go-storefront/internal/payment"
)

// PurchaseService coordinates product lookup, ownership and sessions.
type PurchaseService struct {
	Catalog      *payment.Catalog
	Products     *ProductService
	Entitlements *EntitlementService
	Registry     *fulfillment.Registry
	Notifier     fulfillment.Notifier

	// FailureLimit and CallTimeout are passed to every session.
	FailureLimit int
	CallTimeout  time.Duration

	// Now is used for order identifiers; defaults to time.Now.
	Now func() time.Time
}

// Selection is the result of choosing a payment option: either a submenu
// or a started session.
type Selection struct {
	Group   string
	Submenu []*payment.Descriptor
	Session *fulfillment.Session
}

// SessionStatus is a snapshot of a user's in-flight payment.
type SessionStatus struct {
	SessionID string `json:"session_id"`
	ProductID uint   `json:"product_id"`
	Method    string `json:"method"`
	State     string `json:"state"`
	Attempts  int    `json:"attempts"`
	MaxChecks int    `json:"max_attempts"`
	Budget    string `json:"time_budget"`
	OrderID   string `json:"order_id"`
}

// Options lists a menu level of the catalog; the empty group is the root.
func (s *PurchaseService) Options(group string) ([]*payment.Descriptor, error) {
	return s.Catalog.Level(group)
}

// Select handles a user's choice of method within group for productID.
func (s *PurchaseService) Select(ctx context.Context, userID int64, productID uint, group, method string) (*Selection, error) {
	ctx, span := otel.Tracer("services/PurchaseService").Start(ctx, "Select",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int("product.id", int(productID)),
			attribute.String("payment.group", group),
			attribute.String("payment.method", method),
		),
	)
	defer span.End()

	if err := s.Entitlements.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}
	p, err := s.Products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	d, err := s.Catalog.Lookup(group, method)
	if err != nil {
		return nil, err
	}
	if d.IsGroup() {
		return &Selection{Group: d.Name, Submenu: d.Children}, nil
	}

	owned, err := s.Entitlements.Has(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	order := payment.NewOrder(userID, p.ID, p.Name, p.Price, now())
	sess, err := fulfillment.NewSession(order, d, fulfillment.Options{
		Granter:      s.Entitlements,
		Notifier:     s.Notifier,
		FailureLimit: s.FailureLimit,
		CallTimeout:  s.CallTimeout,
	})
	if err != nil {
		return nil, err
	}
	s.Registry.Start(sess)
	span.SetAttributes(attribute.String("session.id", sess.ID))
	return &Selection{Session: sess}, nil
}

// Restart records the user and cancels any payment in flight, as returning
// to the main menu does. It reports whether a session was cancelled.
func (s *PurchaseService) Restart(ctx context.Context, userID int64) (bool, error) {
	if err := s.Entitlements.EnsureUser(ctx, userID); err != nil {
		return false, err
	}
	return s.Registry.Cancel(userID), nil
}

// Cancel cancels the user's payment in flight.
func (s *PurchaseService) Cancel(userID int64) error {
	if !s.Registry.Cancel(userID) {
		return ErrNoActiveSession
	}
	return nil
}

// Status describes the user's payment in flight.
func (s *PurchaseService) Status(userID int64) (*SessionStatus, error) {
	sess := s.Registry.Active(userID)
	if sess == nil {
		return nil, ErrNoActiveSession
	}
	return Describe(sess), nil
}

// Describe snapshots a session.
func Describe(sess *fulfillment.Session) *SessionStatus {
	return &SessionStatus{
		SessionID: sess.ID,
		ProductID: sess.ProductID,
		Method:    sess.Method.Name,
		State:     sess.State().String(),
		Attempts:  sess.Attempts(),
		MaxChecks: sess.Method.Attempts,
		Budget:    payment.BudgetText(sess.Method.Budget()),
		OrderID:   sess.Order.ID,
	}
}
