package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cashcue/internal/api"
	"cashcue/internal/config"
	"cashcue/internal/preflight"
)

const statusProbeTimeout = 3 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, camera, and dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			probeCtx, cancel := context.WithTimeout(cmd.Context(), statusProbeTimeout)
			defer cancel()
			daemonStatus, daemonErr := ctx.client().Status(probeCtx)

			printDaemonSection(out, ctx.apiAddress(), daemonStatus, daemonErr, colorize)
			fmt.Fprintln(out)
			printHealthSection(cmd.Context(), out, cfg, colorize)
			return nil
		},
	}
}

func printDaemonSection(out io.Writer, address string, st *api.StatusResponse, err error, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "Not reachable at "+address, colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "Running at "+address, colorize))

	if st.Live && st.Session != nil {
		window := strings.Join(st.Session.Window, " ")
		if window == "" {
			window = "empty"
		}
		fmt.Fprintln(out, renderStatusLine("Live", statusOK,
			fmt.Sprintf("Session %s, %d rounds, window %s", st.Session.ID, st.Session.Rounds, window), colorize))
	} else if st.Session != nil {
		fmt.Fprintln(out, renderStatusLine("Burst", statusInfo, "Session "+st.Session.ID+" in progress", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Live", statusInfo, "Stopped", colorize))
	}

	switch {
	case st.Camera.Available:
		fmt.Fprintln(out, renderStatusLine("Camera", statusOK, "Available", colorize))
	case st.Camera.LastError != "":
		fmt.Fprintln(out, renderStatusLine("Camera", statusError, st.Camera.LastError, colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Camera", statusWarn, "Not configured", colorize))
	}

	if st.Last != nil {
		fmt.Fprintln(out, renderStatusLine("Last result", statusInfo,
			fmt.Sprintf("%s at %s (%s)", st.Last.Result.Label, st.Last.ConfirmedAt, st.Last.Mode), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Last result", statusInfo, "None", colorize))
	}

	if st.Announcement.Active != "" {
		msg := "Holding " + st.Announcement.Active + " until " + st.Announcement.Deadline
		if st.Announcement.Speaking {
			msg = "Speaking " + st.Announcement.Active
		}
		fmt.Fprintln(out, renderStatusLine("Announcer", statusInfo, msg, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Announcer", statusInfo, "Idle", colorize))
	}
}

func printHealthSection(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Checks", colorize))
	for _, line := range preflightLines(preflight.RunAll(ctx, cfg), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
	for _, line := range dependencyLines(preflight.CheckSystemDeps(cfg), colorize) {
		fmt.Fprintln(out, line)
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset the daemon's detection and announcement state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if _, err := client.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Detection state cleared")
				return nil
			})
		},
	}
}
