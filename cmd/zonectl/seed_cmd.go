package main

import (
	"fmt"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/bootstrap"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/seed"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSeedPermissionsCmd() *cobra.Command {
	var (
		csvPath  string
		tenantID string
	)

	cmd := &cobra.Command{
		Use:   "seed-permissions",
		Short: "Load a role/permission matrix CSV into a tenant",
		Long: `Creates the permissions and roles named in the matrix and grants every
cell marked TRUE. Existing grants are never removed, so the command can be rerun.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := seed.LoadMatrixFile(csvPath)
			if err != nil {
				return err
			}
			return withContainer(cmd, func(c *bootstrap.Container) error {
				tid := c.TenantID
				if tenantID != "" {
					if tid, err = uuid.Parse(tenantID); err != nil {
						return fmt.Errorf("invalid --tenant: %w", err)
					}
				}
				res, err := c.Services.Seeder.Seed(cmd.Context(), tid, rows)
				if err != nil {
					return err
				}
				return writeJSON(res)
			})
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "resources/permissions_matrix.csv", "Path to the permission matrix")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant UUID (defaults to app.tenant_id)")
	return cmd
}
