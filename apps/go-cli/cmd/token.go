package cmd

import (
	"fmt"
	"io"

	"github.com/slush-dev/pushclient/messaging"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Request a registration token",
	Long: `Checks in with FCM if this session dir has no device credentials yet and
requests a registration token for the configured VAPID key (or sender ID).
Exits with status 1 unless a token was issued.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := getMessaging()
		res := m.RequestToken(cmd.Context())
		printTokenResult(cmd.OutOrStdout(), res, useYAML)
		if _, ok := res.Value(); !ok {
			return fmt.Errorf("no registration token: %s", res.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

// tokenRow is the YAML form of a TokenResult.
func tokenRow(res messaging.TokenResult) map[string]any {
	row := map[string]any{"status": res.Status.String()}
	if res.Token != "" {
		row["token"] = res.Token
	}
	if res.Err != nil {
		row["error"] = res.Err.Error()
	}
	return row
}

func printTokenResult(w io.Writer, res messaging.TokenResult, asYAML bool) {
	if asYAML {
		yamlOut(w, tokenRow(res))
		return
	}
	switch res.Status {
	case messaging.TokenAvailable:
		fmt.Fprintf(w, "Registration token: %s\n", res.Token)
	case messaging.TokenNotYetAvailable:
		fmt.Fprintln(w, "No registration token available. Request permission to generate one.")
	default:
		fmt.Fprintf(w, "Token request failed (%s): %v\n", res.Status, res.Err)
	}
}
