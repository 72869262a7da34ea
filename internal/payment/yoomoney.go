package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// yooMoneyMinPaidRatio is the share of the price an incoming transfer must
// reach; the wallet deducts its commission from the payer's amount.
var yooMoneyMinPaidRatio = decimal.RequireFromString("0.9")

// YooMoney is a wallet backend: the user pays through a quickpay form and
// the wallet's operation history is searched for the order label.
type YooMoney struct {
	HTTP     *http.Client
	BaseURL  string // e.g. https://yoomoney.ru
	Token    string
	Wallet   string
	Currency string
}

func (y *YooMoney) Instruct(_ context.Context, o Order) (Instruction, error) {
	q := url.Values{}
	q.Set("receiver", y.Wallet)
	q.Set("quickpay-form", "shop")
	q.Set("targets", o.ProductName)
	q.Set("paymentType", "SB")
	q.Set("sum", strconv.FormatInt(o.Price, 10))
	q.Set("label", o.Label)
	return Instruction{
		URL:      y.BaseURL + "/quickpay/confirm?" + q.Encode(),
		Amount:   strconv.FormatInt(o.Price, 10),
		Currency: y.Currency,
	}, nil
}

type yooOperation struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
}

type yooHistory struct {
	Error      string         `json:"error"`
	Operations []yooOperation `json:"operations"`
}

func (y *YooMoney) Check(ctx context.Context, o Order) (bool, error) {
	form := url.Values{}
	form.Set("type", "deposition")
	form.Set("label", o.Label)
	form.Set("records", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.BaseURL+"/api/operation-history", strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+y.Token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var h yooHistory
	if err := doJSON(y.HTTP, req, &h); err != nil {
		return false, fmt.Errorf("yoomoney history: %w", err)
	}
	if h.Error != "" {
		return false, fmt.Errorf("yoomoney history: %s: %w", h.Error, ErrGatewayUnavailable)
	}

	threshold := decimal.NewFromInt(o.Price).Mul(yooMoneyMinPaidRatio)
	for _, op := range h.Operations {
		if op.Label == o.Label && op.Amount.GreaterThanOrEqual(threshold) {
			return true, nil
		}
	}
	return false, nil
}
