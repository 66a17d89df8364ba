package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/keyreg/internal/application/dto"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
)

type queryFlags struct {
	filter map[string]string
	sort   string
	order  string
	limit  int
	offset int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringToStringVar(&f.filter, "filter", nil, "filter field=value, repeatable (status, algorithm, purpose, family, search, dateFrom, dateTo)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort key")
	cmd.Flags().StringVar(&f.order, "order", string(constants.SortAscending), "asc or desc")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "page size, 0 for every match")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "records to skip")
}

func (f *queryFlags) query() models.Query {
	return models.Query{
		Filter: models.FilterSpec(f.filter),
		Sort:   models.SortSpec{Key: f.sort, Direction: constants.SortDirection(f.order)},
		Page:   models.Page{Limit: f.limit, Offset: f.offset},
	}
}

func newQueryCommand(opts *options) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort and page key records",
		Example: `  keyreg-admin query -f keys.json --filter status=active --filter algorithm=Ed25519
  keyreg-admin query -f keys.json --sort expiresAt --order desc --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			view, err := reg.keys.Query(ctx, flags.query())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.NewKeyListResponse(view))
		},
	}
	flags.register(cmd)
	return cmd
}

func newAuditCommand(opts *options) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Filter and sort the audit events produced while loading the fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			view, err := reg.audit.Query(ctx, flags.query())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.NewAuditListResponse(view))
		},
	}
	flags.register(cmd)
	return cmd
}
