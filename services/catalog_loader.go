package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"skill-tracker-progress/config"
	"skill-tracker-progress/models"
	"skill-tracker-progress/utils"

	"gopkg.in/yaml.v3"
)

// ObjectFetcher downloads s3:// objects. utils.ObjectStore implements it.
type ObjectFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// catalogDocument is the on-disk shape of a catalog file:
//
//	achievements:
//	  - id: habit_spark
//	    name: Habit Spark
//	    criteria_type: streak_days
//	    criteria_value: 3
type catalogDocument struct {
	Achievements []models.AchievementDefinition `yaml:"achievements" json:"achievements"`
}

// LoadCatalog resolves source to a catalog: empty means the compiled-in default,
// s3://bucket/key is fetched through objects, anything else is a local file.
func LoadCatalog(ctx context.Context, source string, objects ObjectFetcher) (*Catalog, error) {
	if source == "" {
		return DefaultCatalog(), nil
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "s3://") {
		if objects == nil {
			return nil, errors.New("catalog source is an object uri but no object store is configured")
		}
		data, err = objects.Fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", source, err)
	}

	defs, err := ParseCatalog(data, path.Ext(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", source, err)
	}

	catalog, err := NewCatalog(defs)
	if err != nil {
		return nil, err
	}
	utils.LogInfo("📚 Loaded %d achievements from %s", catalog.Len(), source)
	return catalog, nil
}

// LoadCatalogFromConfig loads cfg.CatalogSource, connecting to the configured object
// store only for s3:// sources.
func LoadCatalogFromConfig(ctx context.Context, cfg *config.Config) (*Catalog, error) {
	var objects ObjectFetcher
	if strings.HasPrefix(cfg.CatalogSource, "s3://") {
		store, err := utils.NewObjectStore(ctx, utils.ObjectStoreConfig{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKey,
			SecretAccessKey: cfg.ObjectStoreSecretKey,
		})
		if err != nil {
			return nil, err
		}
		objects = store
	}
	return LoadCatalog(ctx, cfg.CatalogSource, objects)
}

// ParseCatalog decodes a catalog document. ext selects JSON for ".json" and YAML
// otherwise.
func ParseCatalog(data []byte, ext string) ([]models.AchievementDefinition, error) {
	var doc catalogDocument
	var err error
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}
	if len(doc.Achievements) == 0 {
		return nil, fmt.Errorf("%w: no achievements", ErrInvalidCatalog)
	}

	for _, d := range doc.Achievements {
		if !d.CriteriaType.Known() {
			utils.LogWarn("Catalog entry %q has unknown criteria type %q; it will never unlock", d.ID, d.CriteriaType)
		}
	}
	return doc.Achievements, nil
}

// MarshalCatalogYAML renders c in the catalog file format.
func MarshalCatalogYAML(c *Catalog) ([]byte, error) {
	return yaml.Marshal(catalogDocument{Achievements: c.Definitions()})
}
