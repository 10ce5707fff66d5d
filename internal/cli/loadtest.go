package cli

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/cadence/internal/config"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/loadtest"
)

// LoadTestOptions holds flags for the loadtest command.
type LoadTestOptions struct {
	*RootOptions
	URL     string
	UserID  int64
	Kind    string
	First   int64
	Last    int64
	Repeat  int
	Workers int
	Timeout time.Duration
	Settle  time.Duration
}

// NewLoadTestCommand creates the loadtest command.
func NewLoadTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadTestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit completions concurrently to a running server and verify points",
		Long: `Submit every task in a range to POST /completions from concurrent
workers, then wait until the owner's points grew by exactly the number of
distinct tasks accepted.

Example:
  cadence loadtest --url http://localhost:9080 --user 1 --kind habit --first 1 --last 500 --repeat 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := initLogging(ctx, config.New(), opts.RootOptions, cmd.ErrOrStderr()); err != nil {
				return err
			}
			kind, err := model.ParseTaskKind(opts.Kind)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid kind", err)
			}

			stats, err := loadtest.Run(ctx, loadtest.Config{
				BaseURL: opts.URL,
				UserID:  opts.UserID,
				Kind:    kind,
				FirstID: opts.First,
				LastID:  opts.Last,
				Repeat:  opts.Repeat,
				Workers: opts.Workers,
				Timeout: opts.Timeout,
				Settle:  opts.Settle,
			})
			if err != nil {
				return WrapExitError(ExitFailure, "load test failed", err)
			}
			return newFormatter(opts.RootOptions, cmd.OutOrStdout()).Success(loadTestView(stats))
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "http://localhost:9080", "base URL of the service")
	cmd.Flags().Int64Var(&opts.UserID, "user", 0, "owner of the tasks (required)")
	cmd.Flags().StringVar(&opts.Kind, "kind", string(model.KindHabit), "task kind (habit|daily)")
	cmd.Flags().Int64Var(&opts.First, "first", 1, "first task id")
	cmd.Flags().Int64Var(&opts.Last, "last", 100, "last task id")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "submissions per task")
	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	cmd.Flags().DurationVar(&opts.Settle, "settle", 30*time.Second, "how long to wait for queued completions")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

type loadTestView loadtest.Stats

func (v loadTestView) String() string {
	return fmt.Sprintf("submitted %d: accepted %d, duplicate %d, rejected %d, failed %d\n"+
		"points %d -> %d over %d distinct tasks in %s",
		v.Submitted, v.Accepted, v.Duplicate, v.Rejected, v.Failed,
		v.PointsBefore, v.PointsAfter, v.DistinctTasks, v.Duration.Round(time.Millisecond))
}
