// Package payment holds the catalog of payment methods and the gateway
// backends behind them.
//
// A catalog is a static tree assembled once at startup from feature flags.
// Groups exist only to narrow a selection menu; only leaves carry a Backend
// and can back a purchase session.
package payment

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMethodNotFound is returned when a method or group name is unknown at
	// the requested level. There is never a default method.
	ErrMethodNotFound = errors.New("payment method not found")

	// ErrGatewayUnavailable wraps transport and protocol failures while
	// talking to a payment gateway.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Kind tags the behaviour a descriptor is bound to.
type Kind string

const (
	KindTest   Kind = "test"
	KindWallet Kind = "wallet"
	KindCrypto Kind = "crypto"
	KindGroup  Kind = "group"
)

// Descriptor is one entry of the catalog: either a leaf bound to a Backend
// or a group with children.
type Descriptor struct {
	Name     string
	Kind     Kind
	Attempts int
	Delay    time.Duration

	// Coin and Network are set for crypto leaves.
	Coin    string
	Network string

	Backend  Backend
	Children []*Descriptor
}

// IsGroup reports whether selecting d narrows the menu instead of starting
// a session.
func (d *Descriptor) IsGroup() bool { return d.Kind == KindGroup || len(d.Children) > 0 }

// Budget is the total time a session for d may spend polling.
func (d *Descriptor) Budget() time.Duration {
	return time.Duration(d.Attempts) * d.Delay
}

// Catalog is an immutable tree of descriptors.
type Catalog struct {
	root []*Descriptor
}

// NewCatalog returns a catalog with the given root level.
func NewCatalog(root ...*Descriptor) *Catalog {
	return &Catalog{root: root}
}

// Leaves flattens the tree depth-first, preserving declaration order.
func (c *Catalog) Leaves() []*Descriptor {
	var out []*Descriptor
	var walk func([]*Descriptor)
	walk = func(level []*Descriptor) {
		for _, d := range level {
			if d.IsGroup() {
				walk(d.Children)
				continue
			}
			out = append(out, d)
		}
	}
	walk(c.root)
	return out
}

// Level returns the options of a menu level. The empty group is the root.
func (c *Catalog) Level(group string) ([]*Descriptor, error) {
	if group == "" {
		return c.root, nil
	}
	g := findGroup(c.root, group)
	if g == nil {
		return nil, fmt.Errorf("group %q: %w", group, ErrMethodNotFound)
	}
	return g.Children, nil
}

// Lookup resolves name among the options of the given level.
func (c *Catalog) Lookup(group, name string) (*Descriptor, error) {
	level, err := c.Level(group)
	if err != nil {
		return nil, err
	}
	for _, d := range level {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("method %q: %w", name, ErrMethodNotFound)
}

// Validate rejects duplicate sibling names, empty groups and leaves without
// a usable backend or budget.
func (c *Catalog) Validate() error {
	return validateLevel(c.root, "")
}

func validateLevel(level []*Descriptor, path string) error {
	seen := make(map[string]struct{}, len(level))
	for _, d := range level {
		if d.Name == "" {
			return fmt.Errorf("catalog %s: empty method name", pathOrRoot(path))
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("catalog %s: duplicate method %q", pathOrRoot(path), d.Name)
		}
		seen[d.Name] = struct{}{}

		if d.IsGroup() {
			if len(d.Children) == 0 {
				return fmt.Errorf("catalog: group %q has no methods", d.Name)
			}
			if err := validateLevel(d.Children, path+"/"+d.Name); err != nil {
				return err
			}
			continue
		}
		if d.Backend == nil {
			return fmt.Errorf("catalog: method %q has no backend", d.Name)
		}
		if d.Attempts < 1 || d.Delay < 0 {
			return fmt.Errorf("catalog: method %q has an invalid poll budget", d.Name)
		}
	}
	return nil
}

func findGroup(level []*Descriptor, name string) *Descriptor {
	for _, d := range level {
		if !d.IsGroup() {
			continue
		}
		if d.Name == name {
			return d
		}
		if g := findGroup(d.Children, name); g != nil {
			return g
		}
	}
	return nil
}

func pathOrRoot(p string) string {
	if p == "" {
		return "root"
	}
	return p
}
