// Purchase HTTP handlers.
//
// This file exposes the payment flow to the chat bridge:
//   - POST   /session/start                   (main menu: cancel any payment)
//   - GET    /session                         (payment in progress)
//   - DELETE /session                         (cancel payment button)
//   - GET    /products/{id}/payment-methods   (one menu level)
//   - POST   /products/{id}/purchase          (choose a method or group)
//
// Sessions run in the background; their outcome reaches the user through
// the outbound notifier, not through these responses.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront/internal/http/middleware"
	"github.com/tbourn/go-storefront/internal/payment"
	"github.com/tbourn/go-storefront/internal/services"
)

// compactMenuSize is the largest menu rendered one option per row; larger
// menus are laid out in three columns.
const compactMenuSize = 6

// MethodOption is one button of a payment menu.
type MethodOption struct {
	Name       string `json:"name"                  example:"USDT (tron)"`
	Kind       string `json:"kind"                  example:"crypto"`
	IsGroup    bool   `json:"is_group"`
	TimeBudget string `json:"time_budget,omitempty" example:"1 hour"`
}

// PaymentMethodsResponse is one level of the payment catalog.
type PaymentMethodsResponse struct {
	Group   string         `json:"group,omitempty" example:"Heleket"`
	Columns int            `json:"columns"         example:"1"`
	Methods []MethodOption `json:"methods"`
}

// PurchaseRequest selects a method within a menu level.
type PurchaseRequest struct {
	// Method is the option name as listed by payment-methods.
	Method string `json:"method" binding:"required" example:"TestPayment"`
	// Group is the menu level the option was picked from; empty is the root.
	Group string `json:"group" example:""`
}

// StartResponse reports whether returning to the main menu cancelled a payment.
type StartResponse struct {
	Cancelled bool `json:"cancelled"`
}

func menu(group string, level []*payment.Descriptor) PaymentMethodsResponse {
	out := PaymentMethodsResponse{Group: group, Columns: 1, Methods: make([]MethodOption, 0, len(level))}
	if len(level) > compactMenuSize {
		out.Columns = 3
	}
	for _, d := range level {
		opt := MethodOption{Name: d.Name, Kind: string(d.Kind), IsGroup: d.IsGroup()}
		if !opt.IsGroup {
			opt.TimeBudget = payment.BudgetText(d.Budget())
		}
		out.Methods = append(out.Methods, opt)
	}
	return out
}

// StartSession godoc
// @ID          startSession
// @Summary     Return to the main menu
// @Description Registers the user on first contact and cancels any payment in progress.
// @Tags        Session
// @Produce     json
// @Param       X-User-ID  header  int  true  "Chat user id"  example(4242)
// @Success     200  {object} handlers.StartResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing user id"
// @Router      /session/start [post]
func (h *Handlers) StartSession(c *gin.Context) {
	cancelled, err := h.purchases.Restart(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StartResponse{Cancelled: cancelled})
}

// GetSession godoc
// @ID          getSession
// @Summary     Payment in progress
// @Tags        Session
// @Produce     json
// @Param       X-User-ID  header  int  true  "Chat user id"  example(4242)
// @Success     200  {object} services.SessionStatus
// @Failure     404  {object} handlers.ErrorResponse "No payment in progress"
// @Router      /session [get]
func (h *Handlers) GetSession(c *gin.Context) {
	st, err := h.purchases.Status(userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// CancelSession godoc
// @ID          cancelSession
// @Summary     Cancel the payment in progress
// @Description Nothing is granted for a cancelled payment, even if it was paid while the last check was in flight.
// @Tags        Session
// @Param       X-User-ID  header  int  true  "Chat user id"  example(4242)
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "No payment in progress"
// @Router      /session [delete]
func (h *Handlers) CancelSession(c *gin.Context) {
	if err := h.purchases.Cancel(userID(c)); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// PaymentMethods godoc
// @ID          listPaymentMethods
// @Summary     Payment menu
// @Description Lists one level of the payment catalog for a product. Groups open a submenu.
// @Tags        Purchase
// @Produce     json
// @Param       X-User-ID  header  int     true   "Chat user id"  example(4242)
// @Param       id         path    int     true   "Product ID"    example(1)
// @Param       group      query   string  false  "Menu level; empty for the root"  example(Heleket)
// @Success     200  {object} handlers.PaymentMethodsResponse
// @Failure     404  {object} handlers.ErrorResponse "Unknown product or group"
// @Router      /products/{id}/payment-methods [get]
func (h *Handlers) PaymentMethods(c *gin.Context) {
	id, valid := productID(c)
	if !valid {
		return
	}
	if _, err := h.products.Get(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	group := strings.TrimSpace(c.Query("group"))
	level, err := h.purchases.Options(group)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, menu(group, level))
}

// Purchase godoc
// @ID          purchaseProduct
// @Summary     Choose a payment option
// @Description Choosing a group returns its submenu (200). Choosing a method starts a payment session (202) that supersedes any earlier one; instructions are delivered through the chat notifier.
// @Tags        Purchase
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  int                       true  "Chat user id"  example(4242)
// @Param       id         path    int                       true  "Product ID"    example(1)
// @Param       body       body    handlers.PurchaseRequest  true  "Selection"
// @Success     200  {object} handlers.PaymentMethodsResponse "Submenu"
// @Success     202  {object} services.SessionStatus "Session started"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Unknown product or method"
// @Failure     409  {object} handlers.ErrorResponse "Already owned"
// @Router      /products/{id}/purchase [post]
func (h *Handlers) Purchase(c *gin.Context) {
	id, valid := productID(c)
	if !valid {
		return
	}
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Method) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "method is required")
		return
	}

	sel, err := h.purchases.Select(c.Request.Context(), userID(c), id, strings.TrimSpace(req.Group), req.Method)
	if err != nil {
		failErr(c, err)
		return
	}
	if sel.Session == nil {
		ok(c, http.StatusOK, menu(sel.Group, sel.Submenu))
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("session_id", sel.Session.ID).
		Uint("product_id", id).
		Str("method", req.Method).
		Msg("payment session started")
	ok(c, http.StatusAccepted, services.Describe(sel.Session))
}
