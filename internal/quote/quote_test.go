package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateServer(t *testing.T, body string, status int, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path != "/v1/exchange-rate/USDT/list" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const usdtRates = `{"state":0,"result":[
	{"from":"USDT","to":"USD","course":"1.0"},
	{"from":"USDT","to":"RUB","course":"81"}
]}`

func TestQuote_PicksSettlementAndRounds(t *testing.T) {
	srv := rateServer(t, usdtRates, http.StatusOK, nil)
	s := &Service{HTTP: srv.Client(), BaseURL: srv.URL, Settlement: "RUB"}

	got, err := s.Quote(context.Background(), "USDT", 100)
	require.NoError(t, err)
	// 100 / 81 = 1.234567901... -> 6 fractional digits
	assert.True(t, got.Equal(decimal.RequireFromString("1.234568")), "got %s", got)
}

func TestQuote_Unavailable(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		cur    string
	}{
		{"settlement currency missing", `{"result":[{"from":"USDT","to":"USD","course":"1"}]}`, http.StatusOK, "USDT"},
		{"zero course", `{"result":[{"from":"USDT","to":"RUB","course":"0"}]}`, http.StatusOK, "USDT"},
		{"server error", `{}`, http.StatusInternalServerError, "USDT"},
		{"garbage body", `not json`, http.StatusOK, "USDT"},
		{"unknown currency", usdtRates, http.StatusOK, "XXX"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := rateServer(t, tc.body, tc.status, nil)
			s := &Service{HTTP: srv.Client(), BaseURL: srv.URL, Settlement: "RUB"}
			_, err := s.Quote(context.Background(), tc.cur, 100)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}

	// Network failure.
	s := &Service{BaseURL: "http://127.0.0.1:1", Settlement: "RUB"}
	_, err := s.Quote(context.Background(), "USDT", 100)
	assert.ErrorIs(t, err, ErrUnavailable)
}

type memCache struct {
	mu   sync.Mutex
	m    map[string]decimal.Decimal
	fail bool
}

func (c *memCache) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return decimal.Zero, false, errors.New("cache down")
	}
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, v decimal.Decimal, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("cache down")
	}
	c.m[key] = v
	return nil
}

func TestQuote_CachesCourse(t *testing.T) {
	var hits int32
	srv := rateServer(t, usdtRates, http.StatusOK, &hits)
	cache := &memCache{m: map[string]decimal.Decimal{}}
	s := &Service{HTTP: srv.Client(), BaseURL: srv.URL, Settlement: "RUB", Cache: cache, TTL: time.Minute}

	for i := 0; i < 3; i++ {
		_, err := s.Quote(context.Background(), "USDT", 100)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Contains(t, cache.m, "USDT:RUB")
}

func TestQuote_CacheFailureFallsBackToSource(t *testing.T) {
	var hits int32
	srv := rateServer(t, usdtRates, http.StatusOK, &hits)
	s := &Service{HTTP: srv.Client(), BaseURL: srv.URL, Settlement: "RUB", Cache: &memCache{fail: true}, TTL: time.Minute}

	for i := 0; i < 2; i++ {
		_, err := s.Quote(context.Background(), "USDT", 100)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRedisCache_UnreachableIsError(t *testing.T) {
	c := NewRedisCache("127.0.0.1:1", "", 0)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, ok, err := c.Get(ctx, "USDT:RUB")
	assert.False(t, ok)
	assert.Error(t, err)
}
