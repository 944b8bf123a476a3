package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/messaging"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print foreground messages as they arrive (Ctrl+C to stop)",
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		buffer, _ := cmd.Flags().GetInt("buffer")

		m := getMessaging()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		return runListen(ctx, m, cmd.OutOrStdout(), cmd.ErrOrStderr(), listenOptions{
			once:   once,
			buffer: buffer,
		})
	},
}

func init() {
	listenCmd.Flags().Bool("once", false, "Exit after the first message")
	listenCmd.Flags().Duration("timeout", 0, "Stop listening after this long (0 = no limit)")
	listenCmd.Flags().Int("buffer", messaging.DefaultSubscriptionBuffer, "Messages held while the terminal is slow; extra ones are dropped")
	rootCmd.AddCommand(listenCmd)
}

type listenOptions struct {
	once   bool
	buffer int
}

// errNoMessage is returned by listen --once when ctx expires first.
var errNoMessage = errors.New("no message received before timeout")

// runListen runs the transport loop and prints messages until ctx is done,
// the loop fails, or, with once set, the first message arrives.
func runListen(ctx context.Context, m *messaging.Messaging, out, errOut io.Writer, opts listenOptions) error {
	// Register the handler before connecting so nothing arrives without one.
	var sub *messaging.Subscription
	var waitOne func(context.Context) (pushclient.MessagePayload, error)
	if opts.once {
		waitOne = m.ArmListener()
	} else {
		sub = m.Subscribe(opts.buffer)
		defer sub.Close()
	}

	listenCtx, cancelListen := context.WithCancel(ctx)
	defer cancelListen()
	listenDone := make(chan struct{})
	var listenErr error
	go func() {
		defer close(listenDone)
		listenErr = m.Listen(listenCtx)
	}()
	stopListen := func() error {
		cancelListen()
		<-listenDone
		if listenErr != nil {
			return fmt.Errorf("listener stopped: %w", listenErr)
		}
		return nil
	}

	if opts.once {
		return listenOnce(ctx, waitOne, out, listenDone, stopListen)
	}

	fmt.Fprintln(errOut, "Listening for messages (Ctrl+C to stop) ...")
	for {
		select {
		case p, ok := <-sub.C():
			if !ok {
				return stopListen()
			}
			printMessage(out, p, useYAML)
		case <-listenDone:
			return stopListen()
		case <-ctx.Done():
			fmt.Fprintln(errOut, "\nShutting down ...")
			if n := sub.Dropped(); n > 0 {
				fmt.Fprintf(errOut, "%d message(s) dropped because output fell behind.\n", n)
			}
			return stopListen()
		}
	}
}

func listenOnce(ctx context.Context, waitOne func(context.Context) (pushclient.MessagePayload, error), out io.Writer, listenDone <-chan struct{}, stopListen func() error) error {
	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()
	go func() {
		select {
		case <-listenDone:
			cancelWait()
		case <-waitCtx.Done():
		}
	}()

	p, err := waitOne(waitCtx)
	if err != nil {
		if lerr := stopListen(); lerr != nil {
			return lerr
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errNoMessage
		}
		return nil
	}
	printMessage(out, p, useYAML)
	return stopListen()
}
