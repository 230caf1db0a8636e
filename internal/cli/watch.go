package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/watcher"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		colours  int
		debounce time.Duration
		existing bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Write palettes for images added to a directory",
		Long: `Watch a directory and, for every image created or changed in it, write
the dominant colours to <image>` + watcher.SidecarSuffix + ` alongside it.

Hidden files and existing sidecars are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := *root.cfg
			setIfChanged(cmd.Flags(), "colours", &settings.Extract.Colours, colours)
			setIfChanged(cmd.Flags(), "debounce", &settings.Watch.Debounce, debounce)

			ecfg, err := settings.ExtractorConfig()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			extractor, err := colour.NewPaletteExtractor(ecfg)
			if err != nil {
				return fmt.Errorf("failed to create extractor: %w", err)
			}

			logger := root.logger.Named("watcher")
			w, err := watcher.New(args[0], extractor, watcher.Options{
				Count:    ecfg.ColorCount,
				Debounce: settings.Watch.Debounce,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			if existing {
				results, err := w.ScanExisting()
				if err != nil {
					_ = w.Stop()
					return err
				}
				logger.Info("processed existing images", "count", len(results))
			}

			if err := w.Start(); err != nil {
				_ = w.Stop()
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for {
				select {
				case <-ctx.Done():
					return w.Stop()
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					if ev.Err != nil {
						logger.Debug("event failed", "file", ev.Source, "error", ev.Err)
					}
				}
			}
		},
	}

	cmd.Flags().IntVarP(&colours, "colours", "c", 6, fmt.Sprintf("number of colours to extract (1-%d)", colour.MaxColorCount))
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "quiet period before a changed file is processed")
	cmd.Flags().BoolVar(&existing, "existing", false, "process images already in the directory that have no palette")

	return cmd
}
