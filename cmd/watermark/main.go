package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"photowatermark/internal/config"
	"photowatermark/pkg/watermark"
)

type options struct {
	configPath string
	fontSize   int
	fontColor  string
	position   string
	opacity    int
	quality    int
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	var logger *zap.Logger

	defaults := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "watermark [flags] IMAGE",
		Short: "Stamp a photo's capture date onto it",
		Long: `Reads the capture date from the image's EXIF data (falling back to the
file modification time) and writes a copy with the date drawn on it to
<dir>/<name>_watermark/<file>.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				level.SetLevel(zapcore.DebugLevel)
			}
			var err error
			logger, err = newLogger(level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				logger.Error("invalid arguments", zap.Error(err))
				return err
			}
			if cfg.Verbose {
				level.SetLevel(zapcore.DebugLevel)
			}

			res, err := watermark.Process(args[0], watermark.Options{
				Style:    cfg.Style(),
				Position: watermark.Position(cfg.Position),
				Quality:  cfg.Quality,
				Logger:   logger,
			})
			if err != nil {
				logger.Error("processing failed", zap.String("path", args[0]), zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watermark text: %s\nsaved to: %s\n", res.Text, res.OutputPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML file with default settings")
	f.IntVarP(&opts.fontSize, "font-size", "s", defaults.FontSize, "font size, must be > 0")
	f.StringVarP(&opts.fontColor, "font-color", "c", watermark.RGB(defaults.FontColor).String(), `font color as "r,g,b" or "#rrggbb"`)
	f.StringVarP(&opts.position, "position", "p", defaults.Position, "position: top-left|top-right|bottom-left|bottom-right|center")
	f.IntVarP(&opts.opacity, "opacity", "o", defaults.Opacity, "opacity 0..255")
	f.IntVarP(&opts.quality, "quality", "q", defaults.Quality, "JPEG save quality 1..100")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// resolveConfig layers explicitly set flags over the config file and
// validates the result. No image I/O happens here.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("font-size") {
		cfg.FontSize = opts.fontSize
	}
	if f.Changed("font-color") {
		c, err := watermark.ParseColor(opts.fontColor)
		if err != nil {
			return nil, err
		}
		cfg.FontColor = [3]int(c)
	}
	if f.Changed("position") {
		cfg.Position = opts.position
	}
	if f.Changed("opacity") {
		cfg.Opacity = opts.opacity
	}
	if f.Changed("quality") {
		cfg.Quality = opts.quality
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pos, _ := watermark.ParsePosition(cfg.Position)
	cfg.Position = string(pos)
	return cfg, nil
}

func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg.Build()
}
