package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"skill-tracker-progress/config"
	"skill-tracker-progress/database"
	"skill-tracker-progress/services"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var validFormats = []string{"text", "json"}

// rootOptions holds global flags for all commands.
type rootOptions struct {
	SQLitePath string // overrides DB_DRIVER/SQLITE_PATH when set
	Catalog    string // overrides CATALOG_SOURCE when set
	Format     string
}

// runtime is the wired service stack a command operates on.
type runtime struct {
	db        *gorm.DB
	catalog   *services.Catalog
	store     *services.ProgressStore
	evaluator *services.Evaluator
}

func (r *runtime) Close() {
	_ = database.Close(r.db)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "progressctl",
		Short: "Inspect and maintain user progress and achievements",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite", "", "use this sqlite database instead of the configured one")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "catalog file or s3:// uri (default: CATALOG_SOURCE)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newCompleteCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newBackfillCommand(opts))
	cmd.AddCommand(newCatalogCommand(opts))

	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.SQLitePath != "" {
		cfg.DBDriver = "sqlite"
		cfg.SQLitePath = o.SQLitePath
	}
	if o.Catalog != "" {
		cfg.CatalogSource = o.Catalog
	}
	return cfg, nil
}

func (o *rootOptions) open(ctx context.Context) (*runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	catalog, err := services.LoadCatalogFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	store := services.NewProgressStore(db, catalog, clock, cfg.TxMaxAttempts)
	return &runtime{
		db:        db,
		catalog:   catalog,
		store:     store,
		evaluator: services.NewEvaluator(store, catalog, clock, cfg.Timezone),
	}, nil
}

// printJSON writes v indented; used for --format json and structured values.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
