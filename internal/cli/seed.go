package cli

import (
	"context"

	"github.com/spf13/cobra"

	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/domain/model"
)

// SeedTaskOptions holds flags for seed task.
type SeedTaskOptions struct {
	*RootOptions
	UserID int64
	Name   string
}

// NewSeedCommand creates the seed command group.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create users and tasks",
	}
	cmd.AddCommand(newSeedUserCommand(rootOpts))
	cmd.AddCommand(newSeedTaskCommand(rootOpts))
	return cmd
}

func newSeedUserCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "user <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, rootOpts, func(ctx context.Context, svc *service.Service) (any, error) {
				u, err := svc.SeedUser(ctx, args[0])
				if err != nil {
					return nil, domainExit("seed user failed", err)
				}
				return userView{ID: u.ID, Username: u.Username}, nil
			})
		},
	}
}

func newSeedTaskCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedTaskOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "task <habit|daily>",
		Short: "Create a habit or daily for a user",
		Long: `Create a habit or daily for a user.

Example:
  cadence seed task habit --user 1 --name "morning run"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseTaskKind(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid kind", err)
			}
			if opts.UserID <= 0 {
				return NewExitError(ExitCommandError, "--user must be a positive id")
			}
			return withService(cmd, opts.RootOptions, func(ctx context.Context, svc *service.Service) (any, error) {
				t, err := svc.SeedTask(ctx, kind, opts.UserID, opts.Name)
				if err != nil {
					return nil, domainExit("seed task failed", err)
				}
				return newTaskView(t), nil
			})
		},
	}

	cmd.Flags().Int64Var(&opts.UserID, "user", 0, "owning user id (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "task name")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
