package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/config"
	"github.com/jmylchreest/swatch/internal/image"
	"github.com/jmylchreest/swatch/internal/util/imagecache"
)

// Output formats accepted by --format.
const (
	formatHex   = "hex"
	formatRGB   = "rgb"
	formatJSON  = "json"
	formatTable = "table"
)

type extractOptions struct {
	colours      int
	algorithm    string
	format       string
	output       string
	maxDimension int
	background   string
	preview      bool
	cache        bool
	cacheDir     string
	seed         int64
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract the dominant colours of an image",
		Long: `Extract the dominant colours of an image, most common first.

The image is shrunk to fit the analysis bound, transparent areas are laid
over the background colour, and the remaining colours are reduced to at most
the requested number. Each colour is reported with its pixel count and its
share of the analysed image.

Supported image formats: JPEG, PNG, GIF, WebP (optionally .xz compressed).
HTTP(S) URLs are fetched directly.

Examples:
  # Six colours (default) as hex codes
  swatch extract photo.jpg

  # Ten colours as a table with terminal swatches
  swatch extract -c 10 -f table --preview photo.png

  # JSON, using k-means with a fixed seed
  swatch extract -a kmeans --seed 7 -f json photo.jpg

  # Treat transparency as black and write to a file
  swatch extract --background "#000000" -o palette.txt logo.png

  # Fetch a remote image through the local cache
  swatch extract --cache https://example.com/photo.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, root, opts, args[0])
		},
	}

	defaults := config.Default().Extract
	cmd.Flags().IntVarP(&opts.colours, "colours", "c", defaults.Colours, fmt.Sprintf("number of colours to extract (1-%d)", colour.MaxColorCount))
	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", defaults.Algorithm, fmt.Sprintf("extraction algorithm %v", colour.ValidAlgorithms()))
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatHex, "output format (hex, rgb, json, table)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().IntVar(&opts.maxDimension, "max-dimension", defaults.MaxDimension, "longest side analysed, larger images are downscaled")
	cmd.Flags().StringVar(&opts.background, "background", defaults.Background, "colour that transparent pixels are composited onto")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "show colour swatches (terminal output only)")
	cmd.Flags().BoolVar(&opts.cache, "cache", false, "cache downloaded images on disk")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "image cache directory (default: user cache dir)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "k-means seed, requires --algorithm kmeans (0 derives one from the image)")

	return cmd
}

func runExtract(cmd *cobra.Command, root *rootOptions, opts *extractOptions, source string) error {
	logger := root.logger.Named("extract")

	if err := image.ValidateImagePath(source); err != nil {
		return fmt.Errorf("invalid image path: %w", err)
	}
	if !isValidFormat(opts.format) {
		return fmt.Errorf("unsupported format: %s (supported: hex, rgb, json, table)", opts.format)
	}

	settings := *root.cfg
	flags := cmd.Flags()
	setIfChanged(flags, "colours", &settings.Extract.Colours, opts.colours)
	setIfChanged(flags, "algorithm", &settings.Extract.Algorithm, opts.algorithm)
	setIfChanged(flags, "max-dimension", &settings.Extract.MaxDimension, opts.maxDimension)
	setIfChanged(flags, "background", &settings.Extract.Background, opts.background)

	ecfg, err := settings.ExtractorConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	extractor, err := newExtractor(ecfg, opts.seed)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	loader := image.NewSmartLoader()
	if opts.cache {
		loader.WithCache(imagecache.CacheOptions{Dir: opts.cacheDir})
	}

	logger.Debug("loading image", "source", source)
	img, err := loader.LoadContext(cmd.Context(), source)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	bounds := img.Bounds()
	logger.Debug("image loaded", "width", bounds.Dx(), "height", bounds.Dy())

	logger.Debug("extracting colours", "count", ecfg.ColorCount, "algorithm", ecfg.Algorithm)
	records, err := extractor.Extract(img, ecfg.ColorCount)
	if err != nil {
		return fmt.Errorf("failed to extract colours: %w", err)
	}
	logger.Debug("extraction complete", "colours", len(records), "pixels", colour.TotalCount(records))

	var out io.Writer = cmd.OutOrStdout()
	preview := opts.preview && opts.output == "" && isTerminal(out)
	if opts.preview && !preview {
		logger.Debug("preview disabled: output is not a terminal")
	}

	text, err := formatRecords(records, opts.format, preview)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil { // #nosec G306 - Palette output is not sensitive
			return fmt.Errorf("failed to write output file: %w", err)
		}
		logger.Info("wrote palette", "file", opts.output, "colours", len(records))
		return nil
	}

	_, err = io.WriteString(out, text)
	return err
}

// newExtractor builds the extractor, honouring an explicit k-means seed.
func newExtractor(cfg colour.ExtractorConfig, seed int64) (*colour.PaletteExtractor, error) {
	if seed == 0 {
		return colour.NewPaletteExtractor(cfg)
	}
	if cfg.Algorithm != colour.AlgorithmKMeans {
		return nil, fmt.Errorf("--seed only applies to the %s algorithm, not %s", colour.AlgorithmKMeans, cfg.Algorithm)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	q := colour.NewKMeansQuantizer().WithSeed(seed)
	return colour.NewPaletteExtractorWithQuantizer(q, cfg.MaxDimension, cfg.Background), nil
}

func isValidFormat(format string) bool {
	switch format {
	case formatHex, formatRGB, formatJSON, formatTable:
		return true
	}
	return false
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && colour.SupportsANSIColours(f)
}

// formatRecords renders the palette in the requested format.
func formatRecords(records []colour.ColorRecord, format string, preview bool) (string, error) {
	switch format {
	case formatHex:
		return formatLines(records, func(r colour.ColorRecord) string {
			if preview {
				return colour.FormatColourWithPreview(r.RGB, 8)
			}
			return r.Hex
		}), nil
	case formatRGB:
		return formatLines(records, func(r colour.ColorRecord) string {
			if preview {
				return colour.ColourPreviewWithText(r.RGB, r.Hex, 9) + " " + r.RGB.String()
			}
			return r.RGB.String()
		}), nil
	case formatJSON:
		data, err := colour.RecordsToJSON(records)
		if err != nil {
			return "", fmt.Errorf("failed to convert to JSON: %w", err)
		}
		return string(data) + "\n", nil
	case formatTable:
		return formatTableOutput(records, preview), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: hex, rgb, json, table)", format)
	}
}

func formatLines(records []colour.ColorRecord, line func(colour.ColorRecord) string) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(line(r))
		b.WriteString("\n")
	}
	return b.String()
}

func formatTableOutput(records []colour.ColorRecord, preview bool) string {
	headers := []string{"#", "HEX", "RGB", "PIXELS", "PERCENT"}
	if preview {
		headers = append([]string{"COLOUR"}, headers...)
	}

	table := NewTable(headers)
	table.SetAlignRight(len(headers) - 2)
	table.SetAlignRight(len(headers) - 1)

	for i, r := range records {
		row := []string{
			strconv.Itoa(i + 1),
			r.Hex,
			r.RGB.String(),
			strconv.Itoa(r.Count),
			strconv.FormatFloat(r.Percent, 'f', 2, 64) + "%",
		}
		if preview {
			row = append([]string{colour.ColourPreview(r.RGB, 6)}, row...)
		}
		table.AddRow(row)
	}

	return table.Render()
}
