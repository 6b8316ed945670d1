package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"easytopup/backend/internal/models"
)

//go:embed bundles.json
var defaultBundles []byte

const (
	SortPopular   = "popular"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
)

// Catalog is the read-only bundle list. It is built once at startup; all
// accessors return copies so callers cannot mutate the shared entries.
type Catalog struct {
	items []models.Bundle
	byID  map[string]models.Bundle
}

// Load reads the catalog from path, or from the embedded default list when
// path is empty.
func Load(path string) (*Catalog, error) {
	raw := defaultBundles
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		raw = data
	}

	var items []models.Bundle
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(items)
}

func New(items []models.Bundle) (*Catalog, error) {
	byID := make(map[string]models.Bundle, len(items))
	for _, b := range items {
		if strings.TrimSpace(b.ID) == "" {
			return nil, fmt.Errorf("catalog entry without id")
		}
		if _, dup := byID[b.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", b.ID)
		}
		byID[b.ID] = b
	}
	return &Catalog{items: items, byID: byID}, nil
}

func (c *Catalog) Get(id string) (models.Bundle, bool) {
	b, ok := c.byID[id]
	return b, ok
}

func (c *Catalog) List() []models.Bundle {
	out := make([]models.Bundle, len(c.items))
	copy(out, c.items)
	return out
}

// Filter returns the catalog narrowed by network and a free-text query
// matched against "{network} {title}" and the price, ordered by sortKey.
func (c *Catalog) Filter(network, query, sortKey string) []models.Bundle {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Bundle, 0, len(c.items))
	for _, b := range c.items {
		if network != "" && network != "all" && b.Network != network {
			continue
		}
		if q != "" {
			label := strings.ToLower(b.Network + " " + b.Title)
			if !strings.Contains(label, q) && !strings.Contains(strconv.FormatInt(b.Price, 10), q) {
				continue
			}
		}
		out = append(out, b)
	}

	switch sortKey {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Popular > out[j].Popular })
	}
	return out
}
