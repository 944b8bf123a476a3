package cmd

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	fcmadmin "firebase.google.com/go/v4/messaging"
	"github.com/slush-dev/pushclient"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

// messageSender is the part of the Firebase Admin messaging client that send
// uses.
type messageSender interface {
	Send(ctx context.Context, message *fcmadmin.Message) (string, error)
	SendDryRun(ctx context.Context, message *fcmadmin.Message) (string, error)
}

// newSenderFn is overridable for testing.
var newSenderFn = func(ctx context.Context, projectID, credentialsFile string) (messageSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(data))
	}
	// Without --credentials the Admin SDK falls back to GOOGLE_APPLICATION_CREDENTIALS.

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating messaging client: %w", err)
	}
	return client, nil
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a test message through the Firebase Admin SDK",
	Long: `Sends a message to a registration token using a service account of the
configured project. Without --to, a token is requested for this client first,
so running 'pushclient listen' in another terminal shows the message arriving.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		title, _ := cmd.Flags().GetString("title")
		body, _ := cmd.Flags().GetString("body")
		data, _ := cmd.Flags().GetStringToString("data")
		credentials, _ := cmd.Flags().GetString("credentials")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if to == "" {
			res := newMessagingFn(cfg).RequestToken(ctx)
			token, ok := res.Value()
			if !ok {
				return fmt.Errorf("no --to given and no registration token for this client (%s): %w", res.Status, errOrNoToken(res.Err))
			}
			to = token
		}

		sender, err := newSenderFn(ctx, cfg.ProjectID, credentials)
		if err != nil {
			return err
		}

		msg := buildMessage(to, title, body, data)
		send := sender.Send
		if dryRun {
			send = sender.SendDryRun
		}
		id, err := send(ctx, msg)
		if err != nil {
			return fmt.Errorf("FCM send failed: %w", err)
		}

		if useYAML {
			yamlOut(cmd.OutOrStdout(), map[string]any{"message_name": id, "dry_run": dryRun})
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Sent: %s\n", id)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().String("to", "", "Registration token to send to (default: this client's token)")
	sendCmd.Flags().String("title", "", "Notification title")
	sendCmd.Flags().String("body", "", "Notification body")
	sendCmd.Flags().StringToString("data", nil, "Data payload as key=value pairs")
	sendCmd.Flags().String("credentials", "", "Service account JSON file (default: GOOGLE_APPLICATION_CREDENTIALS)")
	sendCmd.Flags().Bool("dry-run", false, "Validate the message without delivering it")
	rootCmd.AddCommand(sendCmd)
}

// buildMessage returns a data message, with a notification part when a title
// or body is given.
func buildMessage(token, title, body string, data map[string]string) *fcmadmin.Message {
	msg := &fcmadmin.Message{Token: token}
	if title != "" || body != "" {
		msg.Notification = &fcmadmin.Notification{Title: title, Body: body}
	}
	if len(data) > 0 {
		msg.Data = data
	}
	return msg
}

func errOrNoToken(err error) error {
	if err == nil {
		return pushclient.ErrNoToken
	}
	return err
}
