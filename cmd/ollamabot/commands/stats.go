package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadenroberts/OllamaBot-sub010/internal/config"
	"github.com/cadenroberts/OllamaBot-sub010/internal/telemetry"
)

var statsReset bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate telemetry across completed runs",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsReset, "reset", false, "Clear the telemetry log instead of showing it")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	sink := telemetry.New(config.TelemetryDir())

	if statsReset {
		if err := sink.Reset(ctx); err != nil {
			return exitError{code: ExitConfigError, err: err}
		}
		fmt.Println("Telemetry log cleared")
		return nil
	}

	records, err := sink.All(ctx)
	if err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	if len(records) == 0 {
		fmt.Println("No completed runs recorded yet")
		return nil
	}

	var totalTokens int
	var totalCostSaved, totalDuration float64
	var successes int

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tWHEN\tORIGIN\tSUCCESS\tTOKENS\tDURATION\tCOST SAVED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%.1fs\t$%.4f\n",
			r.SessionID, time.Unix(r.Timestamp, 0).Format(time.RFC3339), r.PlatformOrigin, r.Success, r.TotalTokens, r.DurationSeconds, r.EstimatedCostSaved)
		totalTokens += r.TotalTokens
		totalCostSaved += r.EstimatedCostSaved
		totalDuration += r.DurationSeconds
		if r.Success {
			successes++
		}
	}
	if err := w.Flush(); err != nil {
		return exitError{code: ExitConfigError, err: err}
	}

	fmt.Printf("\n%d runs, %d successful, %d total tokens, %.1fs total duration, $%.4f estimated cost saved\n",
		len(records), successes, totalTokens, totalDuration, totalCostSaved)
	return nil
}
