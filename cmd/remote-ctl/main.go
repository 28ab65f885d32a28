package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"

	"github.com/gastownhall/presenter-remote/internal/controller"
	"github.com/gastownhall/presenter-remote/internal/remote"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("remote-ctl failed")
		return 1
	}
	return 0
}

type connFlags struct {
	url     string
	token   string
	timeout time.Duration
}

func (f *connFlags) dial(ctx context.Context) (*controller.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return controller.Dial(dialCtx, f.url, f.token)
}

func newRootCmd() *cobra.Command {
	flags := &connFlags{}
	root := &cobra.Command{
		Use:           "remote-ctl",
		Short:         "Drive a presenter over its remote-control channel",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&flags.url, "url", "ws://127.0.0.1:8470/ws", "presenter WebSocket endpoint")
	root.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("PRESENTER_REMOTE_AUTH_TOKEN"), "auth token")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 5*time.Second, "dial and reply timeout")

	root.AddCommand(newStateCmd(flags))
	root.AddCommand(newScrollCmd(flags))
	root.AddCommand(newWatchCmd(flags))
	return root
}

func newStateCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Request and print the presenter's content and recorder status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			if err := conn.RequestState(); err != nil {
				return err
			}
			content, status, err := awaitState(cmd.Context(), conn, flags.timeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printContent(out, content)
			printRecorder(out, status)
			return nil
		},
	}
}

func newScrollCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scroll <pixels>",
		Short: "Scroll the presentation by a relative amount (use -- before negative values)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 32)
			if err != nil {
				return fmt.Errorf("parse scroll amount %q: %w", args[0], err)
			}
			conn, err := flags.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			return conn.Scroll(float32(amount))
		},
	}
}

func newWatchCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print every message the presenter pushes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := flags.dial(ctx)
			if err != nil {
				return err
			}
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer stop()

			if err := conn.RequestState(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for {
				m, err := conn.Receive()
				if err != nil {
					if ctx.Err() != nil || errors.Is(err, io.EOF) {
						return nil
					}
					return err
				}
				printMessage(out, m)
			}
		},
	}
}

// awaitState reads until the content/recorder reply pair arrives.
func awaitState(ctx context.Context, conn *controller.Conn, timeout time.Duration) (remote.ContentSnapshot, remote.RecorderStatus, error) {
	type reply struct {
		content remote.ContentSnapshot
		status  remote.RecorderStatus
		err     error
	}
	done := make(chan reply, 1)
	go func() {
		var r reply
		r.content, r.status, r.err = readState(conn.Receive)
		done <- r
	}()

	select {
	case r := <-done:
		return r.content, r.status, r.err
	case <-time.After(timeout):
		return remote.ContentSnapshot{}, remote.RecorderStatus{}, errors.New("timed out waiting for state reply")
	case <-ctx.Done():
		return remote.ContentSnapshot{}, remote.RecorderStatus{}, ctx.Err()
	}
}

// readState pairs the most recent content with the recorder status that
// follows it. Recorder pushes with no content before them are skipped, and a
// content push that lands just ahead of the reply is superseded by the reply.
func readState(receive func() (remote.Message, error)) (remote.ContentSnapshot, remote.RecorderStatus, error) {
	var (
		content remote.ContentSnapshot
		seen    bool
	)
	for {
		m, err := receive()
		if err != nil {
			return remote.ContentSnapshot{}, remote.RecorderStatus{}, err
		}
		switch v := m.(type) {
		case remote.ContentSnapshot:
			content, seen = v, true
		case remote.RecorderStatus:
			if seen {
				return content, v, nil
			}
		}
	}
}
