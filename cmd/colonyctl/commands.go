package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/config"
	"github.com/pavitra93/colony-rent-manager/shared/rent"
	"github.com/pavitra93/colony-rent-manager/shared/rentals"
	"github.com/pavitra93/colony-rent-manager/shared/store"
	"github.com/pavitra93/colony-rent-manager/shared/summary"
)

// money formats an amount with thousands separators and two decimals
func money(amount decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", amount.InexactFloat64())
}

func MigrateCmd(open dbOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the rent ledger tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			if err := store.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Migration completed")
			return nil
		},
	}
}

func ReportCmd(open dbOpener, app config.AppConfig) *cobra.Command {
	var (
		colonyID string
		asOf     string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard, company balances and closed rentals of a colony",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(colonyID)
			if err != nil {
				return apperrors.Validation("invalid colony id %q", colonyID)
			}

			date := rent.Today(time.Now(), app.Location())
			if asOf != "" {
				if date, err = rent.ParseDate(asOf); err != nil {
					return err
				}
			}

			db, err := open()
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			snapshot, err := rentals.NewColonies(store.New(db)).Snapshot(cmd.Context(), id)
			if err != nil {
				return err
			}

			writeReport(cmd.OutOrStdout(), snapshot, date)
			return nil
		},
	}

	cmd.Flags().StringVar(&colonyID, "colony", "", "colony id")
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("colony")
	return cmd
}

func writeReport(out io.Writer, snapshot *rentals.Snapshot, asOf time.Time) {
	stats := summary.Dashboard(snapshot.Rooms, asOf)

	fmt.Fprintf(out, "%s as of %s\n\n", snapshot.Colony.Name, asOf.Format(rent.DateLayout))
	fmt.Fprintf(out, "Rooms:     %d (%d rented, %d free)\n", stats.TotalRooms, stats.RentedRooms, stats.FreeRooms)
	fmt.Fprintf(out, "Expected:  %s\n", money(stats.TotalExpected))
	fmt.Fprintf(out, "Received:  %s\n", money(stats.TotalReceived))
	fmt.Fprintf(out, "Pending:   %s\n", money(stats.TotalPending))

	companies := summary.ByCompany(snapshot.Rooms, asOf)
	if len(companies) > 0 {
		fmt.Fprintln(out, "\nCompanies")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Company\tRooms\tExpected\tPaid\tPending")
		for _, c := range companies {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", c.CompanyName, c.RoomsCount,
				money(c.TotalExpected), money(c.TotalPaid), money(c.TotalPending))
		}
		_ = w.Flush()
	}

	history := summary.History(snapshot.History)
	if len(history) > 0 {
		fmt.Fprintln(out, "\nClosed rentals")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Room\tCompany\tFrom\tTo\tDuration\tPaid\tBalance")
		for _, h := range history {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", h.RoomNumber, h.CompanyName,
				h.ContractStartDate.Format(rent.DateLayout), h.ContractEndDate.Format(rent.DateLayout),
				h.Duration.Text, money(h.TotalPaid), money(h.Balance))
		}
		_ = w.Flush()
	}
}

func ProrateCmd() *cobra.Command {
	var (
		monthlyRent string
		start       string
	)

	cmd := &cobra.Command{
		Use:   "prorate",
		Short: "Preview the first-month rent of a contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(monthlyRent)
			if err != nil {
				return apperrors.Validation("invalid monthly rent %q", monthlyRent)
			}
			date, err := rent.ParseDate(start)
			if err != nil {
				return err
			}

			firstMonth, err := rent.Prorate(amount, date)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "First month rent: %s (%d of %d days)\n",
				firstMonth.StringFixed(2), rent.RemainingDays(date), rent.DaysInMonth(date))
			return nil
		},
	}

	cmd.Flags().StringVar(&monthlyRent, "rent", "", "monthly rent")
	cmd.Flags().StringVar(&start, "start", "", "contract start date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("rent")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}
