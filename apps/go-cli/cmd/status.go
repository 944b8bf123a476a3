package cmd

import (
	"fmt"
	"strconv"

	"github.com/slush-dev/pushclient/fcm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the device registration stored in the session dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := fcm.ReadDeviceStatus(sessionDir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if useYAML {
			yamlOut(out, map[string]any{
				"session_dir": sessionDir,
				"device":      status,
			})
			return nil
		}

		fmt.Fprintf(out, "Session dir:     %s\n", sessionDir)
		if !status.CheckedIn {
			fmt.Fprintf(out, "Checked in:      no\n")
			return nil
		}
		fmt.Fprintf(out, "Checked in:      yes\n")
		fmt.Fprintf(out, "Android ID:      %s\n", strconv.FormatUint(status.AndroidID, 10))
		fmt.Fprintf(out, "Installation:    %s\n", stringOr(status.InstallationFID, "(none)"))
		fmt.Fprintf(out, "Messages seen:   %d\n", status.PersistentIDs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
