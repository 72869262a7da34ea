package payment

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Coin is a currency on a specific network accepted by the crypto gateway.
type Coin struct {
	Code    string
	Network string
}

// Name is the menu label, e.g. "USDT (tron)".
func (c Coin) Name() string { return fmt.Sprintf("%s (%s)", c.Code, c.Network) }

// HeleketCoins lists the supported coin/network pairs in menu order.
var HeleketCoins = []Coin{
	{"USDC", "arbitrum"}, {"USDT", "arbitrum"},
	{"USDT", "avalanche"}, {"USDC", "avalanche"},
	{"BCH", "bch"},
	{"USDT", "bsc"}, {"DAI", "bsc"}, {"USDC", "bsc"}, {"CGPT", "bsc"},
	{"DASH", "dash"},
	{"DOGE", "doge"},
	{"SHIB", "eth"}, {"VERSE", "eth"}, {"USDT", "eth"}, {"USDC", "eth"}, {"DAI", "eth"},
	{"POL", "polygon"}, {"USDT", "polygon"}, {"USDC", "polygon"}, {"DAI", "polygon"},
	{"USDT", "sol"}, {"SOL", "sol"},
	{"TON", "ton"}, {"HMSTR", "ton"}, {"USDT", "ton"},
	{"TRX", "tron"}, {"USDT", "tron"}, {"USDC", "tron"},
	{"XMR", "xmr"},
}

// HeleketClient talks to the crypto invoice API. Requests are signed with
// md5(base64(body) + apiKey) and identified by the merchant header.
type HeleketClient struct {
	HTTP     *http.Client
	BaseURL  string // e.g. https://api.heleket.com
	Merchant string
	APIKey   string
}

// Sign returns the request signature for body.
func (c *HeleketClient) Sign(body []byte) string {
	sum := md5.Sum([]byte(base64.StdEncoding.EncodeToString(body) + c.APIKey))
	return hex.EncodeToString(sum[:])
}

type heleketEnvelope[T any] struct {
	State   int    `json:"state"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

type heleketInvoice struct {
	UUID   string `json:"uuid"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

func (c *HeleketClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("merchant", c.Merchant)
	req.Header.Set("sign", c.Sign(body))
	req.Header.Set("Content-Type", "application/json")
	return doJSON(c.HTTP, req, out)
}

// Heleket is a crypto-invoice leaf for one coin/network pair.
type Heleket struct {
	Client *HeleketClient
	Quoter Quoter
	Coin   Coin
}

func (h *Heleket) Instruct(ctx context.Context, o Order) (Instruction, error) {
	amount, err := h.Quoter.Quote(ctx, h.Coin.Code, o.Price)
	if err != nil {
		return Instruction{}, fmt.Errorf("heleket quote %s: %w", h.Coin.Code, err)
	}
	payload := map[string]string{
		"amount":   amount.String(),
		"currency": h.Coin.Code,
		"order_id": o.ID,
		"network":  h.Coin.Network,
	}
	var env heleketEnvelope[heleketInvoice]
	if err := h.Client.post(ctx, "/v1/payment", payload, &env); err != nil {
		return Instruction{}, fmt.Errorf("heleket create invoice: %w", err)
	}
	if env.Result.URL == "" {
		return Instruction{}, fmt.Errorf("heleket create invoice: no payment url (%s): %w", env.Message, ErrGatewayUnavailable)
	}
	return Instruction{URL: env.Result.URL, Amount: amount.String(), Currency: h.Coin.Code}, nil
}

func (h *Heleket) Check(ctx context.Context, o Order) (bool, error) {
	var env heleketEnvelope[heleketInvoice]
	if err := h.Client.post(ctx, "/v1/payment/info", map[string]string{"order_id": o.ID}, &env); err != nil {
		return false, fmt.Errorf("heleket payment info: %w", err)
	}
	switch env.Result.Status {
	case "paid", "paid_over":
		return true, nil
	}
	return false, nil
}

// doJSON executes req and decodes a 2xx JSON body into out. Transport
// errors and unexpected statuses are reported as ErrGatewayUnavailable.
func doJSON(client *http.Client, req *http.Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrGatewayUnavailable, err)
	}
	return nil
}
