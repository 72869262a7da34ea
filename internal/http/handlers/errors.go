// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status semantics;
// storefront codes (already_owned, not_owned, no_active_session,
// method_not_found, gateway_unavailable) let the chat bridge pick the right
// message for the user without parsing text.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_owned",
//	  "message": "purchase the product before downloading it"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTooLarge         = "payload_too_large"

	// Storefront-specific:
	ErrCodeAlreadyOwned       = "already_owned"
	ErrCodeNotOwned           = "not_owned"
	ErrCodeNoActiveSession    = "no_active_session"
	ErrCodeMethodNotFound     = "method_not_found"
	ErrCodeGatewayUnavailable = "gateway_unavailable"
	ErrCodeListFailed         = "list_failed"
)

// internalMessage is the only text a 5xx envelope carries. The cause goes to
// the request log.
const internalMessage = "internal error"

// failErr maps a service error onto the error envelope. Unknown errors
// become 500 with a fixed message; the cause is logged by failCause.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
	case errors.Is(err, services.ErrMethodNotFound):
		fail(c, http.StatusNotFound, ErrCodeMethodNotFound, "payment method not found")
	case errors.Is(err, services.ErrNoActiveSession):
		fail(c, http.StatusNotFound, ErrCodeNoActiveSession, "no payment in progress")
	case errors.Is(err, services.ErrAlreadyOwned):
		fail(c, http.StatusConflict, ErrCodeAlreadyOwned, "product already owned")
	case errors.Is(err, services.ErrDuplicateProduct):
		fail(c, http.StatusConflict, ErrCodeConflict, "a product with this name already exists")
	case errors.Is(err, services.ErrInvalidProduct):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNotOwned):
		fail(c, http.StatusForbidden, ErrCodeNotOwned, "purchase the product before downloading it")
	case errors.Is(err, services.ErrGatewayUnavailable), errors.Is(err, services.ErrQuoteUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeGatewayUnavailable, "payment provider unavailable, try again later")
	default:
		failCause(c, http.StatusInternalServerError, ErrCodeInternal, internalMessage, err)
	}
}
