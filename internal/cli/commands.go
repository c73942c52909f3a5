package cli

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gsclens/gsclens/internal/config"
	"github.com/gsclens/gsclens/internal/gsc"
	"github.com/gsclens/gsclens/internal/logging"
	"github.com/gsclens/gsclens/internal/store"
	"github.com/gsclens/gsclens/internal/token"
)

var (
	cliInitialized bool
	cliInitMutex   sync.Mutex
)

// Execute runs the root command with the given arguments
func Execute(args []string) error {
	RootCmd.SetArgs(args)

	if err := RootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}

	return nil
}

// ExecuteWithErrorCode runs the root command and returns exit code
func ExecuteWithErrorCode(args []string) int {
	RootCmd.SetArgs(args)

	if err := RootCmd.Execute(); err != nil {
		if globalFlags.Verbose {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	return 0
}

// InitCLI initializes the CLI framework with all commands
func InitCLI() {
	cliInitMutex.Lock()
	defer cliInitMutex.Unlock()

	if cliInitialized {
		return
	}

	InitRoot()

	// Commands are auto-registered via their init() functions

	cliInitialized = true
}

// loadConfig loads and validates the configuration from the global flag path
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// buildClient wires a token store and Search Console client from config.
// The returned cache is nil when caching is disabled.
func buildClient(cfg *config.Config, logger *logging.Logger) (*gsc.Client, *token.Store, store.Cache, error) {
	tokens := token.NewStore(cfg.Token.File,
		token.WithLogger(logger),
		token.WithHTTPClient(&http.Client{Timeout: cfg.Token.RefreshTimeout}),
	)

	var cache store.Cache
	if cfg.Cache.Enabled {
		sqliteCache, err := store.NewSQLiteCache(cfg.Cache.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open report cache: %w", err)
		}
		cache = sqliteCache
	}

	opts := []gsc.ClientOption{
		gsc.WithLogger(logger),
		gsc.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		gsc.WithInspectInterval(cfg.Inspection.RateLimit),
	}
	if cache != nil {
		opts = append(opts, gsc.WithCache(cache, cfg.Cache.TTL))
	}

	client := gsc.NewClient(cfg.Property.SiteURL, tokens, opts...)
	return client, tokens, cache, nil
}
