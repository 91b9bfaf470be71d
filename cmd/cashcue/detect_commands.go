package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cashcue/internal/api"
	"cashcue/internal/daemonrun"
	"cashcue/internal/source"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var useDaemon bool
	var noHistory bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "detect FILE...",
		Short: "Identify the banknote in one or more images",
		Long: "Runs a confirmation burst on every image. By default the detection " +
			"stack is built in-process; --daemon sends the images to a running daemon.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if useDaemon {
				return ctx.withClient(func(client *api.Client) error {
					for _, path := range args {
						resp, err := client.Detect(cmd.Context(), path)
						if err != nil {
							return fmt.Errorf("%s: %w", path, err)
						}
						printBurst(out, filepath.Base(path), *resp)
					}
					return nil
				})
			}
			return detectLocal(cmd.Context(), ctx, out, args, !noHistory, verbose)
		},
	}
	cmd.Flags().BoolVar(&useDaemon, "daemon", false, "Send images to the running daemon instead of detecting in-process")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record confirmations in the history database")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline activity to stderr")
	return cmd
}

func detectLocal(cmdCtx context.Context, ctx *commandContext, out io.Writer, paths []string, withHistory, verbose bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	components, err := daemonrun.Build(cfg, ctx.commandLogger(verbose), daemonrun.BuildOptions{History: withHistory})
	if err != nil {
		return err
	}
	defer components.Close()

	var failed []string
	for _, path := range paths {
		image, err := source.LoadImage(path, cfg.Camera.MaxEdge)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed = append(failed, path)
			continue
		}
		res, err := components.Manager.DetectImage(cmdCtx, image, filepath.Base(path))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed = append(failed, path)
			continue
		}
		printBurst(out, filepath.Base(path), api.FromBurst(res))
	}
	if len(failed) > 0 {
		return fmt.Errorf("detection failed for %d of %d images", len(failed), len(paths))
	}
	return nil
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Run a camera burst on the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Capture(cmd.Context())
				if err != nil {
					return err
				}
				printBurst(cmd.OutOrStdout(), "camera", *resp)
				return nil
			})
		},
	}
}

func printBurst(out io.Writer, name string, resp api.DetectResponse) {
	rounds := strings.Join(resp.Rounds, " ")
	if !resp.Confirmed || resp.Result == nil {
		fmt.Fprintf(out, "%s: no result (rounds: %s)\n", name, rounds)
		return
	}
	note := ""
	if !resp.Announced {
		note = ", not announced"
	}
	fmt.Fprintf(out, "%s: %s (rounds: %s%s)\n", name, resp.Result.Label, rounds, note)
}
