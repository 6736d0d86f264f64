// Command quotectl drives the quoting engine from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/quote-assistant/internal/catalog"
	"github.com/capitalize-ai/quote-assistant/internal/config"
	"github.com/capitalize-ai/quote-assistant/internal/pricing"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

var (
	cfg *config.Config
	log *logger.Logger

	catalogPath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "quotectl",
	Short: "Packaging quote assistant tools",
	Long:  "Chat with the quoting assistant locally, resolve names against the catalog and price orders without a running server.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		cfg = config.Load()
		if catalogPath == "" {
			catalogPath = cfg.CatalogPath
		}

		// Initialize logger
		l, err := logger.New(logLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&catalogPath, "catalog", "", "catalog YAML file (default $CATALOG_PATH)")
	f.StringVar(&logLevel, "log-level", "error", "log level")
}

// loadCatalog builds a resolver over the --catalog file, failing early on an
// invalid catalog.
func loadCatalog() (*catalog.Resolver, error) {
	c, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return nil, err
	}
	st, err := catalog.NewStaticStore(c)
	if err != nil {
		return nil, err
	}
	return catalog.NewResolver(st, log.Named("catalog")), nil
}

func newEngine() *pricing.Engine {
	return pricing.NewEngine(cfg.PricingRules())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
