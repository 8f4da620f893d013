package domain

import "fmt"

// Catalog holds the known providers plus the ordered basic (sign-in) and
// social (sharing) id lists from the broker. The coordinator swaps the whole
// catalog atomically; readers see either the old or the new one, never a mix.
type Catalog struct {
	providers map[string]*Provider
	basic     []string
	social    []string
}

// NewCatalog builds a catalog from a provider map and the two ordered id
// lists. Every listed id must exist in the map.
func NewCatalog(providers map[string]*Provider, basic, social []string) (*Catalog, error) {
	if providers == nil {
		providers = map[string]*Provider{}
	}
	for _, id := range basic {
		if _, ok := providers[id]; !ok {
			return nil, fmt.Errorf("basic provider %q: %w", id, ErrProviderNotFound)
		}
	}
	for _, id := range social {
		if _, ok := providers[id]; !ok {
			return nil, fmt.Errorf("social provider %q: %w", id, ErrProviderNotFound)
		}
	}
	return &Catalog{providers: providers, basic: basic, social: social}, nil
}

// EmptyCatalog returns a catalog with no providers, used before the first
// configuration sync completes.
func EmptyCatalog() *Catalog {
	return &Catalog{providers: map[string]*Provider{}}
}

// All returns the provider map keyed by id.
func (c *Catalog) All() map[string]*Provider {
	return c.providers
}

// Basic returns the basic sign-in providers in broker display order.
func (c *Catalog) Basic() []*Provider {
	return c.resolve(c.basic)
}

// Social returns the content-sharing providers in broker display order.
func (c *Catalog) Social() []*Provider {
	return c.resolve(c.social)
}

// BasicIDs returns the ordered basic provider ids.
func (c *Catalog) BasicIDs() []string {
	return c.basic
}

// SocialIDs returns the ordered social provider ids.
func (c *Catalog) SocialIDs() []string {
	return c.social
}

// Lookup finds a provider by id.
func (c *Catalog) Lookup(id string) (*Provider, error) {
	p, ok := c.providers[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrProviderNotFound)
	}
	return p, nil
}

// IsBasic reports whether id is in the basic list.
func (c *Catalog) IsBasic(id string) bool {
	return contains(c.basic, id)
}

// IsSocial reports whether id is in the social list.
func (c *Catalog) IsSocial(id string) bool {
	return contains(c.social, id)
}

// Empty reports whether the catalog carries no usable provider lists.
// A dialog showing an empty catalog has nothing to corrupt, so configuration
// updates may be applied immediately.
func (c *Catalog) Empty() bool {
	return len(c.basic) == 0 && len(c.social) == 0
}

// RequestForceReauth marks one provider so its next login bypasses any cached
// broker session.
func (c *Catalog) RequestForceReauth(id string) error {
	p, err := c.Lookup(id)
	if err != nil {
		return err
	}
	p.ForceReauth = true
	return nil
}

// RequestForceReauthAll marks every provider.
func (c *Catalog) RequestForceReauthAll() {
	for _, p := range c.providers {
		p.ForceReauth = true
	}
}

func (c *Catalog) resolve(ids []string) []*Provider {
	out := make([]*Provider, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.providers[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
