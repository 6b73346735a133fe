package commands

import (
	"github.com/spf13/cobra"

	"github.com/tracemark/tracemark"
)

var (
	verifyIdentity string
	verifyMethod   string
	verifyStrength float64
	verifyBudget   int
)

var verifyCmd = &cobra.Command{
	Use:   "verify <input>",
	Short: "Check whether a file carries a recipient's watermark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := verifyMethod
		if method == "" {
			method = cfg.Watermark.Method
		}
		budget := verifyBudget
		if budget == 0 {
			budget = cfg.Watermark.ScanBudget
		}
		w, err := tracemark.New(verifyIdentity,
			tracemark.WithMethod(tracemark.Method(method)),
			tracemark.WithStrength(verifyStrength),
			tracemark.WithScanBudget(budget),
			tracemark.WithLogger(logger))
		if err != nil {
			return err
		}
		return printJSON(w.Verify(cmd.Context(), args[0]))
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyIdentity, "identity", "i", "", "recipient identity to check for (required)")
	verifyCmd.Flags().StringVarP(&verifyMethod, "method", "m", "", "method the file was embedded with")
	verifyCmd.Flags().Float64VarP(&verifyStrength, "strength", "s", 0.1, "strength the file was embedded with")
	verifyCmd.Flags().IntVar(&verifyBudget, "scan-budget", 0, "frames to scan before giving up (default from config)")
	_ = verifyCmd.MarkFlagRequired("identity")
}
