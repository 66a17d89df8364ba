package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/keyreg/internal/application/dto"
	"github.com/turtacn/keyreg/pkg/constants"
)

func newBulkCommand(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "bulk ACTION ID...",
		Short: "Apply a lifecycle action to several key records",
		Long: `bulk requests ACTION (activate, rotate, revoke, expire) over the given ids and prints
the confirmation. With --yes the confirmation is accepted and the per-record report is
printed instead.`,
		Example: `  keyreg-admin bulk -f keys.json revoke k1 k2 k3 --yes`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := constants.LifecycleAction(args[0])
			if !action.IsValid() {
				return fmt.Errorf("unknown action %q", args[0])
			}

			reg, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			confirmation, err := reg.bulk.RequestBulkAction(ctx, action, args[1:])
			if err != nil {
				return err
			}
			if !yes {
				return printJSON(cmd.OutOrStdout(), dto.NewConfirmationResponse(confirmation))
			}

			report, err := reg.bulk.Confirm(ctx, confirmation.Token)
			if report != nil {
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the action")
	return cmd
}

func newTickCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Expire every pending or active record whose expiry time has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			expired, err := reg.keys.TickExpirations(ctx)
			if err != nil {
				return err
			}
			if expired == nil {
				expired = []string{}
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"expired": expired, "count": len(expired)})
		},
	}
}
