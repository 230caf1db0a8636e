package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr          string
		maxUploadSize int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the palette upload server",
		Long: `Run a small web server with an upload form that shows the dominant
colours of an uploaded image, plus a JSON endpoint:

  POST /api/palette   multipart fields "image" and "num_colors"

Uploads are limited to png, jpg, jpeg and gif files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scfg := root.cfg.Server
			setIfChanged(cmd.Flags(), "addr", &scfg.Addr, addr)
			if cmd.Flags().Changed("max-upload") {
				if maxUploadSize < 1 {
					return fmt.Errorf("--max-upload must be positive")
				}
				scfg.MaxUploadBytes = maxUploadSize
			}

			ecfg, err := root.cfg.ExtractorConfig()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			extractor, err := colour.NewPaletteExtractor(ecfg)
			if err != nil {
				return fmt.Errorf("failed to create extractor: %w", err)
			}

			srv, err := server.New(extractor, scfg, root.logger.Named("server"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5000", "listen address")
	cmd.Flags().Int64Var(&maxUploadSize, "max-upload", 8<<20, "maximum upload size in bytes")

	return cmd
}
