package recon

import (
	"strings"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// Catalog resolves human-readable category and counterparty names to the
// ledger's native codes. Lookups are case-insensitive and accept either
// the name or the code itself.
type Catalog struct {
	categories     []model.Category
	categoryCodes  map[string]string
	counterparties map[string]string
}

// NewCatalog indexes the ledger's catalogs for name resolution.
func NewCatalog(categories []model.Category, counterparties []model.Counterparty) *Catalog {
	c := &Catalog{
		categories:     categories,
		categoryCodes:  make(map[string]string, len(categories)*2),
		counterparties: make(map[string]string, len(counterparties)*2),
	}
	for _, cat := range categories {
		c.categoryCodes[strings.ToLower(cat.Name)] = cat.Code
		c.categoryCodes[strings.ToLower(cat.Code)] = cat.Code
	}
	for _, cp := range counterparties {
		c.counterparties[strings.ToLower(cp.Name)] = cp.Code
		c.counterparties[strings.ToLower(cp.Code)] = cp.Code
	}
	return c
}

// Categories returns the raw catalog for presentation in review requests.
func (c *Catalog) Categories() []model.Category {
	return c.categories
}

// CategoryCode maps a display name to the ledger code. Unknown names are
// passed through unchanged so free-form categories still round-trip.
func (c *Catalog) CategoryCode(name string) string {
	if code, ok := c.categoryCodes[strings.ToLower(name)]; ok {
		return code
	}
	return name
}

// CounterpartyCode maps a display name to the ledger code, passing
// unknown names through.
func (c *Catalog) CounterpartyCode(name string) string {
	if code, ok := c.counterparties[strings.ToLower(name)]; ok {
		return code
	}
	return name
}
