package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/messaging"
	"github.com/spf13/cobra"
)

var (
	sessionDir string
	configPath string
	verbose    bool
	useYAML    bool
)

var rootCmd = &cobra.Command{
	Use:   "pushclient",
	Short: "Firebase Cloud Messaging client: registration tokens and foreground messages",
	Long: `pushclient registers with Firebase Cloud Messaging and receives foreground
push messages.

Configuration is read from the VITE_* environment variables
(VITE_FCM_API, VITE_FCM_DOMAIN, VITE_PROJECT_ID, VITE_STORAGE_BUCKET,
VITE_SENDER_ID, VITE_APP_ID, VITE_MEASURE_ID, VITE_VAPID) and optionally a
TOML file given with --config. Environment values win over the file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(os.Stderr, verbose))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionDir, "session-dir", pushclient.DefaultSessionDir(), "Directory for device credentials")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&useYAML, "yaml", false, "Print output in YAML format instead of text")

	// Allow env override
	if envDir := os.Getenv("PUSHCLIENT_SESSION_DIR"); envDir != "" {
		sessionDir = envDir
	}
}

// SetVersion sets the version string shown by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger returns a debug text logger for --verbose, a text logger for an
// interactive terminal and a JSON logger otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if verbose {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// loadConfig reads the environment, falling back to --config for fields the
// environment leaves empty.
func loadConfig() (pushclient.Config, error) {
	cfg := pushclient.ConfigFromEnv()
	if configPath == "" {
		return cfg, nil
	}
	fileCfg, err := pushclient.LoadConfigFile(configPath)
	if err != nil {
		return pushclient.Config{}, err
	}
	return cfg.Merge(fileCfg), nil
}

// newMessagingFn is overridable for testing.
var newMessagingFn = func(cfg pushclient.Config) *messaging.Messaging {
	app := pushclient.InitializeApp(cfg,
		pushclient.WithSessionDir(sessionDir),
		pushclient.WithLogger(slog.Default()),
	)
	return messaging.GetMessaging(app)
}

// getMessaging loads the configuration and returns the messaging client, or
// exits with a helpful message.
func getMessaging() *messaging.Messaging {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if cfg.MessagingSenderID == "" && cfg.VAPIDKey == "" {
		fmt.Fprintf(os.Stderr, "Warning: neither %s nor %s is set; token requests will fail.\n",
			pushclient.EnvMessagingSenderID, pushclient.EnvVAPIDKey)
	}
	return newMessagingFn(cfg)
}
