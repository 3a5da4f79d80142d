package notification

import (
	"fmt"
	"strings"
	"time"

	"strategylab/internal/model"
)

// RunSummary condenses a finished walk-forward run into an alert.
type RunSummary struct {
	RunID       string
	Windows     int
	Strategies  int
	Instruments int
	Records     int
	Trades      int
	Elapsed     time.Duration

	// TopScores holds the rank-1 score per strategy, in output order.
	TopScores []model.ParamScore
}

// Alert formats the summary for delivery. Only the top few strategies
// are listed so the message stays readable on a phone.
func (rs RunSummary) Alert() Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s finished in %s\n", rs.RunID, rs.Elapsed.Round(time.Second))
	fmt.Fprintf(&b, "%d strategies x %d windows over %d instruments: %d records, %d trades\n",
		rs.Strategies, rs.Windows, rs.Instruments, rs.Records, rs.Trades)

	limit := len(rs.TopScores)
	if limit > 5 {
		limit = 5
	}
	for _, s := range rs.TopScores[:limit] {
		fmt.Fprintf(&b, "%s best %s: median %.1f%% min %.1f%% overfit %.1f\n",
			s.StrategyID, s.ComboLabel, s.TestMedian, s.TestMin, s.OverfitDegree)
	}

	return Alert{
		Level:   AlertInfo,
		Title:   "Walk-forward run complete",
		Message: b.String(),
	}
}

// FailureAlert reports an aborted run.
func FailureAlert(runID string, err error) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "Walk-forward run failed",
		Message: fmt.Sprintf("run %s aborted: %v", runID, err),
	}
}
