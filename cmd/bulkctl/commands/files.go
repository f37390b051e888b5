package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"orgconsole/internal/application/orchestrators"
	"orgconsole/internal/application/projections"
	"orgconsole/internal/domain/audit"
	"orgconsole/internal/domain/csvimport"
	"orgconsole/internal/domain/period"
)

// template: print or save the blank import template.
func templateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:         "template",
		Short:       "Write the blank Student ID import template",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offline: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), csvimport.Template)
				return nil
			}
			if err := os.WriteFile(out, []byte(csvimport.Template), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write (default: stdout)")
	return cmd
}

// export customers: download every customer of a merch as CSV.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export data as CSV",
	}

	var merchID int64
	var name, dir string
	customers := &cobra.Command{
		Use:   "customers",
		Short: "Export every customer of a merch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := orchestrators.ExecuteExportMerchCustomers(cmd.Context(), orchestrators.ExportMerchCustomersInput{
				MerchID:   merchID,
				MerchName: name,
				Actor:     appCtx.operator.Actor(),
			}, orchestrators.ExportMerchCustomersDeps{
				Customers:  appCtx.client,
				AuditStore: appCtx.audit,
				Now:        now,
			})
			if err != nil {
				return err
			}
			return writeExport(cmd, dir, file)
		},
	}
	customers.Flags().Int64Var(&merchID, "merch", 0, "merch ID")
	customers.Flags().StringVar(&name, "name", "", "merch name used in the file name")
	customers.Flags().StringVarP(&dir, "out", "o", ".", "directory to write into")
	_ = customers.MarkFlagRequired("merch")

	cmd.AddCommand(customers)
	return cmd
}

// history: list or export recent bulk submissions and exports.
func historyCmd() *cobra.Command {
	var periodName, actionName, dir string
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show bulk submissions and exports recorded on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := period.Parse(periodName)
			if err != nil {
				return err
			}
			a, err := audit.ParseAction(actionName)
			if err != nil {
				return err
			}

			if asCSV {
				file, err := orchestrators.ExecuteExportHistory(cmd.Context(), orchestrators.ExportHistoryInput{
					Period: p,
					Action: a,
					Actor:  appCtx.operator.Actor(),
				}, orchestrators.ExportHistoryDeps{AuditStore: appCtx.audit, Now: now})
				if err != nil {
					return err
				}
				return writeExport(cmd, dir, file)
			}

			res, err := projections.QueryGetHistory(cmd.Context(), projections.GetHistoryQuery{Period: p, Action: a}, projections.GetHistoryDeps{
				AuditStore: appCtx.audit,
				Now:        now,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Bounded {
				fmt.Fprintf(out, "%s: %s to %s\n", res.Period.Label(), res.Window.Start.Format("2006-01-02"), res.Window.End.Format("2006-01-02"))
			}
			if len(res.Events) == 0 {
				fmt.Fprintln(out, "Nothing recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tACTION\tRESULT\tTARGET\tCOUNT\tOPERATOR")
			for _, e := range res.Events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04"), e.Action, e.Result, e.ResourceID, e.Succeeded, e.Attempted, e.Actor)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&periodName, "period", "", "DAILY, WEEKLY, MONTHLY, YEARLY or ALL_TIME (default)")
	cmd.Flags().StringVar(&actionName, "action", "", "bulk_create, bulk_payment or export")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write a CSV file instead of printing")
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "directory for --csv")
	return cmd
}

func writeExport(cmd *cobra.Command, dir string, file orchestrators.ExportFile) error {
	path := filepath.Join(dir, file.FileName)
	if err := os.WriteFile(path, file.Body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", file.Rows, path)
	return nil
}
