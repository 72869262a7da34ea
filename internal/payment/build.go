package payment

import (
	"net/http"

	"github.com/tbourn/go-storefront/internal/config"
)

// Deps are the collaborators shared by the gateway backends.
type Deps struct {
	HTTP               *http.Client
	Quoter             Quoter
	SettlementCurrency string
}

// Build assembles the catalog from feature flags. Disabled backends are
// simply absent; nothing is decided at call time.
func Build(cfg config.PaymentConfig, deps Deps) (*Catalog, error) {
	var root []*Descriptor

	if cfg.DebugMode {
		root = append(root, &Descriptor{
			Name:     "TestPayment",
			Kind:     KindTest,
			Attempts: cfg.Attempts,
			Delay:    cfg.Delay,
			Backend:  TestBackend{},
		})
	}

	if cfg.UseYooMoney {
		root = append(root, &Descriptor{
			Name:     "YooMoney",
			Kind:     KindWallet,
			Attempts: cfg.Attempts,
			Delay:    cfg.Delay,
			Backend: &YooMoney{
				HTTP:     deps.HTTP,
				BaseURL:  cfg.YooMoneyAPIURL,
				Token:    cfg.YooMoneyToken,
				Wallet:   cfg.YooMoneyWallet,
				Currency: deps.SettlementCurrency,
			},
		})
	}

	if cfg.UseHeleket {
		client := &HeleketClient{
			HTTP:     deps.HTTP,
			BaseURL:  cfg.HeleketBaseURL,
			Merchant: cfg.HeleketMerchant,
			APIKey:   cfg.HeleketAPIKey,
		}
		group := &Descriptor{Name: "Heleket", Kind: KindGroup}
		for _, coin := range HeleketCoins {
			group.Children = append(group.Children, &Descriptor{
				Name:     coin.Name(),
				Kind:     KindCrypto,
				Attempts: cfg.HeleketAttempts,
				Delay:    cfg.Delay,
				Coin:     coin.Code,
				Network:  coin.Network,
				Backend:  &Heleket{Client: client, Quoter: deps.Quoter, Coin: coin},
			})
		}
		root = append(root, group)
	}

	c := NewCatalog(root...)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
