// Package quote converts settlement-currency prices into payment-currency
// amounts using an external exchange-rate source.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Precision is the number of fractional digits of a quoted amount.
const Precision = 6

// ErrUnavailable is returned when no usable rate could be obtained.
var ErrUnavailable = errors.New("exchange rate unavailable")

// Cache stores courses keyed by source/target currency pair.
type Cache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, key string, course decimal.Decimal, ttl time.Duration) error
}

// Service looks up rates at GET {BaseURL}/v1/exchange-rate/{currency}/list
// and picks the entry whose target is the settlement currency.
type Service struct {
	HTTP       *http.Client
	BaseURL    string
	Settlement string

	// Cache is optional; a nil cache or a zero TTL disables caching.
	Cache Cache
	TTL   time.Duration
}

type rate struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Course decimal.Decimal `json:"course"`
}

type rateList struct {
	State  int    `json:"state"`
	Result []rate `json:"result"`
}

// Quote returns amount (in settlement units) expressed in currency, rounded
// to Precision fractional digits.
func (s *Service) Quote(ctx context.Context, currency string, amount int64) (decimal.Decimal, error) {
	tr := otel.Tracer("quote/Service")
	ctx, span := tr.Start(ctx, "Quote",
		trace.WithAttributes(
			attribute.String("quote.currency", currency),
			attribute.String("quote.settlement", s.Settlement),
		),
	)
	defer span.End()

	course, err := s.course(ctx, currency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote unavailable")
		return decimal.Zero, err
	}
	return decimal.NewFromInt(amount).DivRound(course, Precision), nil
}

func (s *Service) course(ctx context.Context, currency string) (decimal.Decimal, error) {
	key := strings.ToUpper(currency) + ":" + strings.ToUpper(s.Settlement)

	if s.Cache != nil && s.TTL > 0 {
		c, ok, err := s.Cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("pair", key).Msg("quote cache read failed")
		case ok:
			return c, nil
		}
	}

	c, err := s.fetch(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}

	if s.Cache != nil && s.TTL > 0 {
		if err := s.Cache.Set(ctx, key, c, s.TTL); err != nil {
			log.Warn().Err(err).Str("pair", key).Msg("quote cache write failed")
		}
	}
	return c, nil
}

func (s *Service) fetch(ctx context.Context, currency string) (decimal.Decimal, error) {
	endpoint := s.BaseURL + "/v1/exchange-rate/" + url.PathEscape(currency) + "/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, fmt.Errorf("%w: rate source status %d", ErrUnavailable, resp.StatusCode)
	}

	var body rateList
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	for _, r := range body.Result {
		if strings.EqualFold(r.To, s.Settlement) {
			if !r.Course.IsPositive() {
				return decimal.Zero, fmt.Errorf("%w: non-positive course for %s", ErrUnavailable, currency)
			}
			return r.Course, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no %s rate for %s", ErrUnavailable, s.Settlement, currency)
}
