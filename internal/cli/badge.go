package cli

import (
	"context"

	"github.com/spf13/cobra"

	service "github.com/okian/cadence/internal/app"
)

// BadgeAwardOptions holds flags for badge award.
type BadgeAwardOptions struct {
	*RootOptions
	Name        string
	Description string
}

// NewBadgeCommand creates the badge command group.
func NewBadgeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Award and list badges",
	}
	cmd.AddCommand(newBadgeAwardCommand(rootOpts))
	cmd.AddCommand(newBadgeListCommand(rootOpts))
	return cmd
}

func newBadgeAwardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BadgeAwardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "award <user-id>",
		Short: "Award a badge to a user",
		Long: `Award a badge to a user.

Example:
  cadence badge award 1 --name founder --description "joined early"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, opts.RootOptions, func(ctx context.Context, svc *service.Service) (any, error) {
				b, err := svc.AwardBadge(ctx, userID, opts.Name, opts.Description)
				if err != nil {
					return nil, domainExit("award badge failed", err)
				}
				return newBadgeView(b), nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "badge name (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "badge description")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newBadgeListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's badges in award order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, rootOpts, func(ctx context.Context, svc *service.Service) (any, error) {
				list, err := svc.Badges(ctx, userID)
				if err != nil {
					return nil, domainExit("list badges failed", err)
				}
				out := make(badgeListView, 0, len(list))
				for _, b := range list {
					out = append(out, newBadgeView(b))
				}
				return out, nil
			})
		},
	}
}

// NewPointsCommand creates the points command.
func NewPointsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "points <user-id>",
		Short: "Show a user's points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, rootOpts, func(ctx context.Context, svc *service.Service) (any, error) {
				pts, err := svc.Points(ctx, userID)
				if err != nil {
					return nil, domainExit("read points failed", err)
				}
				return pointsView{UserID: userID, Points: pts}, nil
			})
		},
	}
}
