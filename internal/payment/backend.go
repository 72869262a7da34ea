package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Backend is the capability a leaf method is bound to: produce a payment
// instruction, then report whether the order has been paid.
type Backend interface {
	Instruct(ctx context.Context, o Order) (Instruction, error)
	Check(ctx context.Context, o Order) (bool, error)
}

// Quoter converts a settlement-currency price into a payment-currency
// amount.
type Quoter interface {
	Quote(ctx context.Context, currency string, amount int64) (decimal.Decimal, error)
}

// Order identifies one purchase attempt towards a gateway.
type Order struct {
	UserID      int64
	ProductID   uint
	ProductName string
	Price       int64

	// Label is stable per (user, product) pair.
	Label string
	// ID additionally carries the creation time, to the millisecond, so a
	// retried purchase never collides with an abandoned invoice for the same
	// pair. Gateways accept only [A-Za-z0-9_-] here.
	ID string
}

// NewOrder builds the gateway identifiers for a purchase started at now.
func NewOrder(userID int64, productID uint, productName string, price int64, now time.Time) Order {
	return Order{
		UserID:      userID,
		ProductID:   productID,
		ProductName: productName,
		Price:       price,
		Label:       fmt.Sprintf("%d:%d", userID, productID),
		ID:          fmt.Sprintf("%d-%d-%s_%03d", userID, productID, now.Format("20060102_150405"), now.Nanosecond()/int(time.Millisecond)),
	}
}

// Instruction is what the user needs to complete a payment.
type Instruction struct {
	URL      string
	Amount   string
	Currency string
}

var printer = message.NewPrinter(language.English)

// Text renders the instruction shown to the user, including how long the
// session will keep waiting for the payment.
func (in Instruction) Text(productName string, budget time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To pay for %s, follow the link: %s\n", productName, in.URL)
	if in.Amount != "" {
		fmt.Fprintf(&b, "Amount: %s %s\n", in.Amount, in.Currency)
	}
	fmt.Fprintf(&b, "You have %s", BudgetText(budget))
	return b.String()
}

// FormatPrice renders a whole-unit price with digit grouping.
func FormatPrice(price int64, currency string) string {
	return printer.Sprintf("%d %s", price, currency)
}

// BudgetText renders a polling budget as a human-readable span, e.g.
// "5 minutes".
func BudgetText(d time.Duration) string {
	if d <= 0 {
		return "a moment"
	}
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", ""))
}
