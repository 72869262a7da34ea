// Package services defines the business logic of the storefront: product
// administration, ownership, and purchases.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-storefront/internal/payment"
	"github.com/tbourn/go-storefront/internal/quote"
	"github.com/tbourn/go-storefront/internal/repo"
)

// Product and ownership errors.
var (
	// ErrProductNotFound indicates that the requested product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidProduct is returned when admin input fails validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrDuplicateProduct is returned when a product name is already taken.
	ErrDuplicateProduct = errors.New("product name already exists")

	// ErrAlreadyOwned refuses a purchase of a product the user already has.
	// It is a normal refusal, not a failure.
	ErrAlreadyOwned = errors.New("product already owned")

	// ErrNotOwned is returned when a user asks for a product they do not own.
	ErrNotOwned = errors.New("product not owned")
)

// Purchase errors.
var (
	// ErrNoActiveSession is returned when the user has no payment in flight.
	ErrNoActiveSession = errors.New("no active payment session")

	// ErrMethodNotFound is returned for unknown payment methods or groups.
	ErrMethodNotFound = payment.ErrMethodNotFound

	// ErrGatewayUnavailable reports a failing payment gateway.
	ErrGatewayUnavailable = payment.ErrGatewayUnavailable

	// ErrQuoteUnavailable reports a failing exchange-rate source.
	ErrQuoteUnavailable = quote.ErrUnavailable
)

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
