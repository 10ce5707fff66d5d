package cli

import (
	"context"

	"github.com/spf13/cobra"

	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/domain/model"
)

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <kind:id>",
		Short: "Complete a habit or daily",
		Long: `Complete a habit or daily, credit its owner one point and advance the
owner's streak.

Example:
  cadence complete habit:3
  cadence complete daily:12 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := model.ParseTaskRef(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid task", err)
			}
			return withService(cmd, rootOpts, func(ctx context.Context, svc *service.Service) (any, error) {
				res, err := svc.CompleteTask(ctx, ref)
				if err != nil {
					return nil, domainExit("complete failed", err)
				}
				return newCompletionView(res, svc.Location()), nil
			})
		},
	}
}
