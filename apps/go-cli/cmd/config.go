package cmd

import (
	"fmt"

	"github.com/slush-dev/pushclient"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		shown := cfg.Redacted()

		if useYAML {
			yamlOut(cmd.OutOrStdout(), map[string]any{
				"config":      shown,
				"session_dir": sessionDir,
			})
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Variable", "Value"}, configRows(shown)))
		fmt.Fprintf(cmd.OutOrStdout(), "Session dir: %s\n", sessionDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func configRows(cfg pushclient.Config) [][]string {
	return [][]string{
		{"API key", pushclient.EnvAPIKey, cfg.APIKey},
		{"Auth domain", pushclient.EnvAuthDomain, cfg.AuthDomain},
		{"Project ID", pushclient.EnvProjectID, cfg.ProjectID},
		{"Storage bucket", pushclient.EnvStorageBucket, cfg.StorageBucket},
		{"Sender ID", pushclient.EnvMessagingSenderID, cfg.MessagingSenderID},
		{"App ID", pushclient.EnvAppID, cfg.AppID},
		{"Measurement ID", pushclient.EnvMeasurementID, cfg.MeasurementID},
		{"VAPID key", pushclient.EnvVAPIDKey, cfg.VAPIDKey},
	}
}
