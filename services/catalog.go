package services

import (
	"fmt"
	"strings"

	"skill-tracker-progress/models"

	"github.com/gosimple/slug"
)

// Catalog is an immutable, validated list of achievement definitions. It is safe to
// share across goroutines.
type Catalog struct {
	defs  []models.AchievementDefinition
	index map[string]int
}

// NewCatalog validates and copies defs. Entries without an id get one derived from
// their name. Unknown criteria types are accepted; the evaluator skips them.
func NewCatalog(defs []models.AchievementDefinition) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]models.AchievementDefinition, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	copy(c.defs, defs)

	for i := range c.defs {
		d := &c.defs[i]
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			d.ID = achievementIDFromName(d.Name)
		}
		if d.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has neither id nor name", ErrInvalidCatalog, i)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("%w: %s has no name", ErrInvalidCatalog, d.ID)
		}
		if d.CriteriaValue < 1 {
			return nil, fmt.Errorf("%w: %s has criteria_value %d", ErrInvalidCatalog, d.ID, d.CriteriaValue)
		}
		if _, dup := c.index[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidCatalog, d.ID)
		}
		c.index[d.ID] = i
	}
	return c, nil
}

// DefaultCatalog returns the compiled-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(models.DefaultAchievements)
	if err != nil {
		panic(err)
	}
	return c
}

// Definitions returns a copy of the entries in catalog order.
func (c *Catalog) Definitions() []models.AchievementDefinition {
	out := make([]models.AchievementDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

func (c *Catalog) Lookup(id string) (models.AchievementDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.AchievementDefinition{}, false
	}
	return c.defs[i], true
}

// Position returns the catalog order of id, or -1.
func (c *Catalog) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

func (c *Catalog) Len() int { return len(c.defs) }

func achievementIDFromName(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}
