package commands

import (
	"github.com/spf13/cobra"

	"github.com/tracemark/tracemark"
	"github.com/tracemark/tracemark/payload"
)

var (
	extractGolay  bool
	extractBudget int
)

var extractCmd = &cobra.Command{
	Use:   "extract <input>",
	Short: "Recover the embedded identity from a file or frame directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		budget := extractBudget
		if budget == 0 {
			budget = cfg.Watermark.ScanBudget
		}
		opts := []tracemark.Option{
			tracemark.WithScanBudget(budget),
			tracemark.WithLogger(logger),
		}
		if extractGolay {
			opts = append(opts, tracemark.WithGolay(payload.DefaultShuffleSeed))
		}
		// extraction does not depend on the extractor's own identity
		w, err := tracemark.New("", opts...)
		if err != nil {
			return err
		}

		p, err := w.ExtractFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractGolay, "golay", false, "payload was embedded with Golay error correction")
	extractCmd.Flags().IntVar(&extractBudget, "scan-budget", 0, "frames to scan before giving up (default from config)")
}
