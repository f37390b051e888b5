package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"orgconsole/internal/application/orchestrators"
	"orgconsole/internal/domain/bulk"
)

// enroll: create memberships for a list of students in one academic year.
func enrollCmd() *cobra.Command {
	var csvPath, ids string
	var year int
	var yes bool

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Create memberships for many students at once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(bulk.KindMembership)
			if err := fillSession(s, csvPath, ids); err != nil {
				return err
			}
			if year != 0 {
				if err := s.SelectYearStart(year); err != nil {
					return err
				}
			}
			return confirmAndSubmit(cmd, s, yes)
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file with a Student ID column")
	cmd.Flags().StringVar(&ids, "ids", "", "student IDs separated by commas, spaces or new lines")
	cmd.Flags().IntVar(&year, "year", 0, "first year of the academic year (default: current)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.MarkFlagsMutuallyExclusive("csv", "ids")
	cmd.MarkFlagsOneRequired("csv", "ids")
	return cmd
}

// pay: record a merch payment for a list of students.
func payCmd() *cobra.Command {
	var csvPath, ids, sku string
	var item int64
	var qty int
	var yes bool

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record the same merch payment for many students (finance officers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(bulk.KindPayment)
			if err := fillSession(s, csvPath, ids); err != nil {
				return err
			}
			params := bulk.PaymentParams{MerchVariantItemID: item, SKU: strings.TrimSpace(sku), Quantity: qty}
			if err := params.Validate(); err != nil {
				return fmt.Errorf("%w: --variant-item must be positive and --qty at least 1", err)
			}
			if err := s.SetPayment(params); err != nil {
				return err
			}
			return confirmAndSubmit(cmd, s, yes)
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file with a Student ID column")
	cmd.Flags().StringVar(&ids, "ids", "", "student IDs separated by commas, spaces or new lines")
	cmd.Flags().Int64Var(&item, "variant-item", 0, "merch variant item ID")
	cmd.Flags().StringVar(&sku, "sku", "", "variant label shown in the summary")
	cmd.Flags().IntVar(&qty, "qty", 1, "quantity per student")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.MarkFlagsMutuallyExclusive("csv", "ids")
	cmd.MarkFlagsOneRequired("csv", "ids")
	_ = cmd.MarkFlagRequired("variant-item")
	return cmd
}

func newSession(kind bulk.Kind) *bulk.Session {
	s := bulk.NewSession(kind, appCtx.cfg.CurrentAcademicYear(now()), appCtx.cfg.IDAliases)
	s.Open()
	return s
}

// fillSession loads the entry list from a CSV file or a pasted list.
func fillSession(s *bulk.Session, csvPath, ids string) error {
	if csvPath == "" {
		_, err := s.Paste(ids)
		return err
	}
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = orchestrators.ExecuteImportRoster(orchestrators.ImportRosterInput{
		Session:  s,
		FileName: filepath.Base(csvPath),
		File:     f,
	})
	return err
}

// confirmAndSubmit is the CLI's confirmation gate: summary, prompt, then submit.
func confirmAndSubmit(cmd *cobra.Command, s *bulk.Session, yes bool) error {
	out := cmd.OutOrStdout()
	if err := s.RequestConfirm(); err != nil {
		if errors.Is(err, bulk.ErrNotConfirmable) {
			if msg := s.View().Error; msg != "" {
				return errors.New(msg)
			}
			return fmt.Errorf("nothing to submit: %w", err)
		}
		return err
	}

	fmt.Fprintln(out, summaryLine(s.Kind(), s.Summary()))
	if !yes && !prompt(cmd.InOrStdin(), out) {
		s.Cancel()
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	outcome, err := orchestrators.ExecuteSubmitBulk(cmd.Context(), orchestrators.SubmitBulkInput{
		Session:  s,
		Operator: appCtx.operator,
	}, orchestrators.SubmitBulkDeps{
		Memberships: appCtx.client,
		Payments:    appCtx.client,
		AuditStore:  appCtx.audit,
		Reports:     appCtx.reports,
		Now:         now,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, outcome.Message())
	if len(outcome.Missing) > 0 {
		fmt.Fprintf(out, "Not created: %s\n", strings.Join(outcome.Missing, ", "))
	}
	return nil
}

func summaryLine(kind bulk.Kind, sum bulk.Summary) string {
	if kind == bulk.KindPayment {
		return fmt.Sprintf("Record payment of %s for %d students.", sum.Target, sum.Count)
	}
	return fmt.Sprintf("Create %d memberships for academic year %s (%s).", sum.Count, sum.Target, sum.Status)
}

// prompt asks for confirmation. Anything but y or yes declines.
func prompt(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Proceed? [y/N] ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
