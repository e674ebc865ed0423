package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/hackloud/internal/config"
	"github.com/me/hackloud/internal/logging"
	"github.com/me/hackloud/internal/session"
	"github.com/me/hackloud/internal/store"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagDebug  bool

	cfg    config.ClientConfig
	logger *slog.Logger
	client *hackloud.Client
	tokens store.Store
	sess   *session.Manager
)

// NewRootCmd creates the root cobra command for the hackloud CLI.
func NewRootCmd() *cobra.Command {
	d := config.DefaultClientConfig()
	root := &cobra.Command{
		Use:   "hackloud",
		Short: "Mi Disco Duro command-line client",
		Long:  "hackloud browses, previews and manages files stored on a Mi Disco Duro backend.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return teardown()
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ~/.hackloud/config.yaml)")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.String("server", d.Server, "Backend URL (or HACKLOUD_SERVER env)")
	pf.String("static-url", d.StaticURL, "Base URL of uploaded assets")
	pf.Duration("timeout", d.Timeout, "Per-request timeout")
	pf.Int("retries", d.MaxRetries, "Retries for idempotent requests")
	pf.String("store", d.Store, "Token store (sqlite, file)")
	pf.String("state-path", "", "Token store location (default under ~/.hackloud)")
	pf.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	pf.String("log-format", d.LogFormat, "Log format (text, json)")
	pf.StringP("output", "o", d.Output, "Output format (text, json, yaml)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newRegisterCmd(),
		newProfileCmd(),
		newListCmd(),
		newMkdirCmd(),
		newUploadCmd(),
		newRenameCmd(),
		newRemoveCmd(),
		newPreviewCmd(),
		newAssessCmd(),
		newAssessmentsCmd(),
		newUsersCmd(),
	)

	return root
}

// setup loads configuration and opens the token store. The session is not
// started here; commands that need a user call requireSession.
func setup(cmd *cobra.Command) error {
	// A previous command that failed never reached PersistentPostRunE.
	if err := teardown(); err != nil {
		return err
	}
	var err error
	cfg, err = config.LoadClient(flagConfig, cmd.Flags())
	if err != nil {
		return err
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	}
	logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
	client = hackloud.NewClient(cfg.API(), logger)

	tokens, err = openStore(cmd.Context())
	if err != nil {
		return err
	}
	sess = session.NewManager(client, tokens, logger)
	return nil
}

func teardown() error {
	if tokens == nil {
		return nil
	}
	err := tokens.Close()
	tokens = nil
	return err
}

func openStore(ctx context.Context) (store.Store, error) {
	path, err := cfg.ResolveStatePath()
	if err != nil {
		return nil, err
	}
	logger.Debug("opening token store", "store", cfg.Store, "path", path)
	if cfg.Store == config.StoreFile {
		return store.NewFileStore(path), nil
	}
	st, err := store.OpenSQLiteStore(ctx, path, logger)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	return st, nil
}

// requireSession restores the stored session and fails unless it resolves
// to a signed-in user.
func requireSession(ctx context.Context) (string, error) {
	sess.Start(ctx)
	snap := sess.Snapshot()
	if !snap.IsAuthenticated() {
		return "", fmt.Errorf("not signed in, run 'hackloud login' first")
	}
	return snap.Token, nil
}

// requireAdmin is requireSession for admin-only commands.
func requireAdmin(ctx context.Context) (string, error) {
	tok, err := requireSession(ctx)
	if err != nil {
		return "", err
	}
	if !sess.IsAdmin() {
		return "", fmt.Errorf("this command requires an admin account")
	}
	return tok, nil
}
