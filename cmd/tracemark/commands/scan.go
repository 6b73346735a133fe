package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracemark/tracemark/internal/store"
	"github.com/tracemark/tracemark/scanner"
)

var (
	scanReference string
	scanThreshold float64
	scanNotice    bool
	scanTitle     string
	scanOwner     string
	scanNoRecord  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Scan a directory of suspect files for leaked copies",
	Long: `scan walks a directory tree and compares every supported media file
against the reference content by perceptual hash. Files similar enough
to be a copy are reported; when the copy still carries a watermark, the
match names the recipient it was delivered to.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := scanThreshold
		if threshold == 0 {
			threshold = cfg.Scanner.Threshold
		}
		sc, err := scanner.New(scanReference,
			scanner.WithThreshold(threshold),
			scanner.WithSampleFrames(cfg.Scanner.SampleFrames),
			scanner.WithLogger(logger))
		if err != nil {
			return err
		}

		matches, err := sc.ScanDir(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := printJSON(matches); err != nil {
			return err
		}

		if !scanNoRecord && len(matches) > 0 {
			recordDetections(matches)
		}
		if scanNotice {
			for i := range matches {
				if matches[i].Attributed() {
					fmt.Fprintln(os.Stderr)
					fmt.Fprintln(os.Stderr, scanner.TakedownNotice(&matches[i], scanTitle, scanOwner))
				}
			}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanReference, "reference", "r", "", "original content to compare against (required)")
	scanCmd.Flags().Float64VarP(&scanThreshold, "threshold", "t", 0, "similarity threshold, 0.0 to 1.0 (default from config)")
	scanCmd.Flags().BoolVar(&scanNotice, "notice", false, "print a takedown notice for each attributed match")
	scanCmd.Flags().StringVar(&scanTitle, "title", "the content", "content title used in takedown notices")
	scanCmd.Flags().StringVar(&scanOwner, "owner", "the rights holder", "owner name used in takedown notices")
	scanCmd.Flags().BoolVar(&scanNoRecord, "no-record", false, "skip recording detections in the database")
	_ = scanCmd.MarkFlagRequired("reference")
}

func recordDetections(matches []scanner.Match) {
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Warn("session database unavailable", zap.Error(err))
		return
	}
	defer st.Close()

	for i := range matches {
		m := &matches[i]
		if _, err := st.InsertDetection(&store.Detection{
			Path:       m.Path,
			Similarity: m.Similarity,
			Identity:   m.Identity,
			Signature:  m.Signature,
			DetectedAt: m.DetectedAt,
		}); err != nil {
			logger.Warn("recording detection failed", zap.Error(err), zap.String("path", m.Path))
		}
	}
}
