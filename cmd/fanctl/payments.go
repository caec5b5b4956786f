package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fanplatform.dk/internal/apiclient"
	"fanplatform.dk/internal/models"
)

func feesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "List and pay club fees",
	}

	var all bool
	var pages int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the fees of the club",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.coord.Fees(cmd.Context(), a.cfg.ClubID, all)
			if err != nil {
				return err
			}
			for i := 1; i < pages && page.NextCursor != nil; i++ {
				if page, err = a.coord.LoadMoreFees(cmd.Context(), a.cfg.ClubID); err != nil {
					return err
				}
			}
			printFees(cmd.OutOrStdout(), page)
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "follow every page")
	list.Flags().IntVar(&pages, "pages", 1, "number of pages to load")

	pay := &cobra.Command{
		Use:   "pay <fee-id>",
		Short: "Start a checkout for a fee",
		Long: `Start a checkout for a fee and open it in the browser.

Running it again for the same fee resumes the same checkout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.coord.Fees(cmd.Context(), a.cfg.ClubID, true); err != nil {
				return err
			}
			intent, err := a.coord.CreateIntent(cmd.Context(), a.cfg.ClubID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Intent %s (%s)\n", intent.IntentID, intent.Provider)
			return nil
		},
	}

	cmd.AddCommand(list, pay)
	return cmd
}

func printFees(w io.Writer, page models.FeePage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAMOUNT\tDUE\tSTATUS")
	for _, f := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.Title, models.FormatAmount(f.AmountCents, f.Currency), formatDate(f.DueAt), f.Status)
	}
	tw.Flush()
	if page.NextCursor != nil {
		fmt.Fprintln(w, "More fees available, use --all or --pages.")
	}
}

func paymentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Review member payments and send payment links",
	}

	var q apiclient.PaymentQuery
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List member payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.ClubID = a.cfg.ClubID
			q.Status = models.PaymentStatus(status)
			if status != "" && !q.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			page, err := a.coord.Payments(cmd.Context(), q)
			if err != nil {
				return err
			}
			printPayments(cmd.OutOrStdout(), page)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "pending, processing, paid or failed")
	list.Flags().StringVar(&q.Search, "search", "", "match member name or email")
	list.Flags().StringVar(&q.DateFrom, "from", "", "due on or after (YYYY-MM-DD)")
	list.Flags().StringVar(&q.DateTo, "to", "", "due on or before (YYYY-MM-DD)")
	list.Flags().StringVar(&q.Cursor, "cursor", "", "continue after this payment id")
	list.Flags().IntVar(&q.Limit, "limit", 0, "page size")

	send := &cobra.Command{
		Use:   "send <payment-id>",
		Short: "Send a payment link to the member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.coord.Payments(cmd.Context(), apiclient.PaymentQuery{ClubID: a.cfg.ClubID}); err != nil {
				return err
			}
			return a.coord.SendPaymentLink(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, send)
	return cmd
}

func printPayments(w io.Writer, page models.PaymentPage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMEMBER\tEMAIL\tTITLE\tAMOUNT\tDUE\tSTATUS")
	for _, p := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Member.Name, p.Member.Email, p.Title,
			models.FormatAmount(p.AmountCents, p.Currency), formatDate(p.DueAt), p.Status)
	}
	tw.Flush()
	if page.NextCursor != nil {
		fmt.Fprintf(w, "Next page: --cursor %s\n", *page.NextCursor)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
