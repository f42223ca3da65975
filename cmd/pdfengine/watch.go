package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/wudi/pdfengine/config"
	"github.com/wudi/pdfengine/engine"
	"github.com/wudi/pdfengine/observability"
	"github.com/wudi/pdfengine/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Reopen a document whenever it changes and report its page count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgManager.Get()
		opts, err := engineOptions(cfg)
		if err != nil {
			return err
		}
		r, err := watch.New(cmd.Context(), args[0], watch.Options{
			Debounce: cfg.Watch.Debounce,
			Attempts: cfg.Watch.RetryAttempts,
			Delay:    cfg.Watch.RetryDelay,
			Logger:   observability.Default(),
		}, opts...)
		if err != nil {
			return err
		}
		defer r.Close()

		w := cmd.OutOrStdout()
		report := func(e *engine.Engine) {
			output(w, map[string]any{"file": args[0], "pages": e.PageCount(), "fingerprint": e.Fingerprint()})
		}
		report(r.Engine())
		r.OnReload(report)

		if cfgManager.ConfigFile() != "" {
			cfgManager.OnChange(func(c *config.Config) {
				observability.SetDefault(c.NewLogger(cmd.ErrOrStderr()))
			})
			cfgManager.WatchConfig(observability.Default())
		}
		if err := r.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
