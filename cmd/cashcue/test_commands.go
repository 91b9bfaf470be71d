package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cashcue/internal/announce"
	"cashcue/internal/notifications"
)

const testSpeechTimeout = 30 * time.Second

func newTestSpeechCommand(ctx *commandContext) *cobra.Command {
	var denomination string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "test-speech",
		Short: "Speak a sample announcement with the configured voice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			phrase := announce.NewPhraser(cfg.Announce.Language, cfg.Announce.Unit).Phrase(denomination)
			out := cmd.OutOrStdout()
			if !cfg.Announce.Enabled {
				fmt.Fprintln(out, "Note: announce.enabled is false; the daemon will stay silent")
			}
			if dryRun {
				fmt.Fprintf(out, "Would speak: %q\n", phrase)
				return nil
			}
			speaker := announce.NewCommandSpeaker(
				announce.WithBinary(cfg.Announce.Command),
				announce.WithVoice(cfg.Announce.Voice),
				announce.WithRate(cfg.Announce.Rate),
			)
			speakCtx, cancel := context.WithTimeout(cmd.Context(), testSpeechTimeout)
			defer cancel()
			if err := speaker.Speak(speakCtx, phrase); err != nil {
				return fmt.Errorf("speak with %s: %w", speaker.Binary(), err)
			}
			fmt.Fprintf(out, "Spoke %q\n", phrase)
			return nil
		},
	}
	cmd.Flags().StringVarP(&denomination, "denomination", "d", "100", "Denomination to announce")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the phrase without speaking it")
	return cmd
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test ntfy notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications not configured (set notifications.ntfy_topic)")
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
