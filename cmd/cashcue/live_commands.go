package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cashcue/internal/api"
	"cashcue/internal/daemonrun"
	"cashcue/internal/events"
)

func newLiveCommand(ctx *commandContext) *cobra.Command {
	var verbose bool
	var rounds bool

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run continuous camera detection in the foreground",
		Long: "Without a subcommand, live opens the camera in-process and prints every " +
			"confirmation until interrupted. The start, stop and watch subcommands " +
			"control the live session of a running daemon.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLiveForeground(cmd.Context(), ctx, cmd.OutOrStdout(), verbose, rounds)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline activity to stderr")
	cmd.Flags().BoolVar(&rounds, "rounds", false, "Print every detection round, not only confirmations")

	cmd.AddCommand(newLiveStartCommand(ctx))
	cmd.AddCommand(newLiveStopCommand(ctx))
	cmd.AddCommand(newLiveWatchCommand(ctx))
	return cmd
}

func runLiveForeground(cmdCtx context.Context, ctx *commandContext, out io.Writer, verbose, rounds bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	components, err := daemonrun.Build(cfg, ctx.commandLogger(verbose), daemonrun.BuildOptions{History: true})
	if err != nil {
		return err
	}
	defer components.Close()

	components.Manager.SetBaseContext(signalCtx)
	hub := components.Manager.Hub()
	_, since := hub.Tail(0)
	info, err := components.Manager.StartLive()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Live detection started on %s (session %s). Press Ctrl+C to stop.\n", info.Source, info.ID)

	for {
		batch, next, err := hub.Fetch(signalCtx, since, 64, true)
		if err != nil {
			components.Manager.StopLive()
			if errors.Is(err, context.Canceled) && cmdCtx.Err() == nil {
				fmt.Fprintln(out, "Live detection stopped")
				return nil
			}
			return err
		}
		since = next
		for _, evt := range batch {
			view := api.FromEvent(evt)
			printEvent(out, view, rounds)
			if evt.Type == events.TypeSourceUnavailable {
				return fmt.Errorf("camera unavailable: %s", view.Message)
			}
		}
	}
}

func newLiveStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon's live session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.StartLive(cmd.Context())
				if err != nil {
					return err
				}
				if resp.Session != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Live session %s running\n", resp.Session.ID)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Live session running")
				}
				return nil
			})
		},
	}
}

func newLiveStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon's live session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.StopLive(cmd.Context())
				if err != nil {
					return err
				}
				if resp.Live {
					fmt.Fprintln(cmd.OutOrStdout(), "Live session still running")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Live session stopped")
				}
				return nil
			})
		},
	}
}

func newLiveWatchCommand(ctx *commandContext) *cobra.Command {
	var rounds bool
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream daemon events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			out := cmd.OutOrStdout()
			err := ctx.withClient(func(client *api.Client) error {
				return client.Watch(signalCtx, func(evt api.EventView) bool {
					printEvent(out, evt, rounds)
					return !(once && evt.Type == string(events.TypeConfirmed))
				})
			})
			if errors.Is(err, context.Canceled) && cmd.Context().Err() == nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&rounds, "rounds", false, "Print every detection round, not only confirmations")
	cmd.Flags().BoolVar(&once, "once", false, "Exit after the first confirmation")
	return cmd
}

// printEvent renders one event line. Round events are only shown when
// rounds is set.
func printEvent(out io.Writer, evt api.EventView, rounds bool) {
	ts := evt.Timestamp
	if len(ts) >= 19 {
		ts = ts[11:19]
	}
	switch events.Type(evt.Type) {
	case events.TypeRound:
		if !rounds {
			return
		}
		label := evt.Denomination
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(out, "%s round %d: %s\n", ts, evt.Round, label)
	case events.TypeConfirmed:
		fmt.Fprintf(out, "%s confirmed %s (%s)\n", ts, evt.Label, evt.Mode)
	case events.TypeAnnounced:
		fmt.Fprintf(out, "%s announced %s\n", ts, evt.Denomination)
	case events.TypeNoResult:
		fmt.Fprintf(out, "%s no result (rounds: %s)\n", ts, strings.Join(evt.Rounds, " "))
	case events.TypeSourceUnavailable:
		fmt.Fprintf(out, "%s source unavailable: %s\n", ts, evt.Message)
	case events.TypeSourceRestored:
		fmt.Fprintf(out, "%s source restored\n", ts)
	case events.TypeCleared:
		fmt.Fprintf(out, "%s cleared\n", ts)
	}
}
