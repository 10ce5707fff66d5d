package cli

import (
	"context"

	"github.com/spf13/cobra"

	service "github.com/okian/cadence/internal/app"
)

// NewStreakCommand creates the streak command group.
func NewStreakCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Manage daily streaks",
	}

	cmd.AddCommand(streakSubcommand(rootOpts, "create", "Start a user's streak at zero, dated today",
		func(ctx context.Context, svc *service.Service, userID int64) (any, error) {
			rec, err := svc.CreateStreak(ctx, userID)
			if err != nil {
				return nil, domainExit("create streak failed", err)
			}
			return newStreakView(rec, svc.Location()), nil
		}))

	cmd.AddCommand(streakSubcommand(rootOpts, "show", "Show a user's streak",
		func(ctx context.Context, svc *service.Service, userID int64) (any, error) {
			rec, err := svc.Streak(ctx, userID)
			if err != nil {
				return nil, domainExit("show streak failed", err)
			}
			return newStreakView(rec, svc.Location()), nil
		}))

	cmd.AddCommand(streakSubcommand(rootOpts, "advance", "Record one day of activity now",
		func(ctx context.Context, svc *service.Service, userID int64) (any, error) {
			rec, err := svc.AdvanceStreak(ctx, userID)
			if err != nil {
				return nil, domainExit("advance streak failed", err)
			}
			return newStreakView(rec, svc.Location()), nil
		}))

	cmd.AddCommand(streakSubcommand(rootOpts, "delete", "Delete a user's streak",
		func(ctx context.Context, svc *service.Service, userID int64) (any, error) {
			deleted, err := svc.DeleteStreak(ctx, userID)
			if err != nil {
				return nil, domainExit("delete streak failed", err)
			}
			if !deleted {
				return nil, NewExitError(ExitFailure, "no streak to delete")
			}
			return deleteView{UserID: userID, Deleted: true}, nil
		}))

	return cmd
}

func streakSubcommand(rootOpts *RootOptions, name, short string, run func(context.Context, *service.Service, int64) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, rootOpts, func(ctx context.Context, svc *service.Service) (any, error) {
				return run(ctx, svc, userID)
			})
		},
	}
}
