// Package cli wires the todosync commands: a client for the todo API that
// goes through the optimistic store, and the reference server.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/todosync/internal/api"
	"github.com/nhle/todosync/internal/credential"
	"github.com/nhle/todosync/internal/model"
	"github.com/nhle/todosync/internal/todostore"
)

// Keyring access, swapped out in tests.
var (
	resolveToken = credential.ResolveToken
	saveToken    = func(token string) error { return credential.Set(credential.TokenKey, token) }
	forgetToken  = func() error { return credential.Delete(credential.TokenKey) }
)

// rootOptions holds global flags and what PersistentPreRunE derives from
// them.
type rootOptions struct {
	configPath string
	apiURL     string
	token      string
	verbose    bool

	cfg    *model.AppConfig
	logger *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "todosync",
		Short: "Manage todos against a todo API with optimistic updates",
		Long: `todosync talks to a todo REST API through a local store that applies
changes immediately and rolls them back if the server rejects them.

Run "todosync serve" to start a local API backed by SQLite.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", model.DefaultConfigPath(), "Path to the config file")
	flags.StringVar(&o.apiURL, "api", "", "Todo API base URL (overrides api.base_url)")
	flags.StringVar(&o.token, "token", "", "API bearer token (defaults to the keyring entry)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(o),
		newListCmd(o),
		newAddCmd(o),
		newCompleteCmd(o, "done", true),
		newCompleteCmd(o, "undone", false),
		newEditCmd(o),
		newRemoveCmd(o),
		newShowCmd(o),
		newProjectsCmd(o),
		newLabelsCmd(o),
		newCountsCmd(o),
		newWatchCmd(o),
		newLoginCmd(o),
		newLogoutCmd(o),
		newConfigCmd(o),
	)
	return root
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd(version).ExecuteContext(ctx)
}

func (o *rootOptions) init() error {
	cfg, err := model.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	o.cfg = cfg

	logger, err := newLogger(cfg.Log.Level, o.verbose)
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}

// newLogger builds a production zap logger writing to stderr.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		lvl.SetLevel(zap.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// client returns an API client for the configured server. A keyring that
// cannot be opened is logged and treated as "no token".
func (o *rootOptions) client() *api.Client {
	token, err := resolveToken(o.token)
	if err != nil {
		o.logger.Warn("keyring unavailable, continuing without token", zap.Error(err))
		token = ""
	}
	return api.NewClientFromConfig(o.cfg.API, token, o.logger)
}

// store returns an empty optimistic store over the API client.
func (o *rootOptions) store() *todostore.Store {
	return todostore.New(o.client(),
		todostore.WithLogger(o.logger),
		todostore.WithPageSize(o.cfg.Store.PageSize),
		todostore.WithFreshness(o.cfg.Store.Freshness()),
	)
}
