// Package commands implements the tracemark CLI.
package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracemark/tracemark/internal/config"
	"github.com/tracemark/tracemark/internal/logging"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tracemark",
	Short: "Invisible per-recipient watermarking for images and frame sequences",
	Long: `tracemark embeds a hidden recipient identity into image and video
frames and recovers it from suspect copies, so a leaked file can be
traced back to the person it was delivered to.

Examples:
  # Watermark a clip for one recipient
  tracemark embed frames/ --identity student_42 --output marked/ --interval 30

  # Recover the identity from a suspect copy
  tracemark extract suspect.png

  # Check whether a file belongs to a recipient
  tracemark verify marked/ --identity student_42

  # Scan a directory of suspect files against the original
  tracemark scan downloads/ --reference original/

  # Run the HTTP API
  tracemark serve
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Options{
			Level:      level,
			File:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.tracemark/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
}

// printJSON renders a result on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
