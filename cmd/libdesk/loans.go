package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mmcdole/libdesk/internal/loan"
	"github.com/mmcdole/libdesk/internal/session"
	"github.com/mmcdole/libdesk/internal/tui/styles"
	"github.com/mmcdole/libdesk/internal/view"
	"github.com/spf13/cobra"
)

var txnHeaders = []string{"ID", "Book", "Member", "Issued", "Due", "Returned", "Status"}

func txnTable(rows []view.TxnRow, withMember bool) ([]string, [][]string) {
	headers := txnHeaders
	if !withMember {
		headers = []string{"ID", "Book", "Issued", "Due", "Returned", "Status"}
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		due := r.Due
		if r.DueEstimated {
			due += "*"
		}
		cells := []string{r.ID, r.Book}
		if withMember {
			cells = append(cells, r.Member)
		}
		cells = append(cells, r.Issued, due, r.Returned, r.Status.String())
		out = append(out, cells)
	}
	return headers, out
}

func newLoansCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Issue, return and list loans",
	}

	var filter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List current transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := view.ParseFilter(filter)
			if err != nil {
				return err
			}
			return withApp(*configFile, session.CapCirculation, func(a *app) error {
				st, err := a.fetchState(cmd)
				if err != nil {
					return err
				}
				headers, rows := txnTable(view.TransactionRows(st.Transactions, f, time.Now()), true)
				printTable(cmd.OutOrStdout(), "No transactions match.", headers, rows)
				return nil
			})
		},
	}
	list.Flags().StringVar(&filter, "filter", "all", "all, active, overdue or returned")

	var memberID, copyID string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Lend a book copy to a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapCirculation, func(a *app) error {
				err := a.mutate(cmd, func(ctx context.Context, e *loan.Engine) error {
					return e.Issue(ctx, memberID, copyID)
				})
				if err != nil {
					return err
				}
				done(cmd, "Issued copy %s to member %s", copyID, memberID)
				return nil
			})
		},
	}
	issue.Flags().StringVar(&memberID, "member", "", "member ID (required)")
	issue.Flags().StringVar(&copyID, "copy", "", "book copy ID (required)")

	ret := &cobra.Command{
		Use:   "return <transaction-id>",
		Short: "Close a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapCirculation, func(a *app) error {
				err := a.mutate(cmd, func(ctx context.Context, e *loan.Engine) error {
					return e.Return(ctx, args[0])
				})
				if err != nil {
					return err
				}
				done(cmd, "Returned transaction %s", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, issue, ret)
	return cmd
}

func newSummaryCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapAnalytics, func(a *app) error {
				st, err := a.fetchState(cmd)
				if err != nil {
					return err
				}
				if st.Summary == nil {
					return errors.New("summary unavailable while offline")
				}
				printOverview(cmd.OutOrStdout(), view.Overview(st, time.Now()))
				return nil
			})
		},
	}
}

func printOverview(w io.Writer, m view.OverviewModel) {
	rows := make([][]string, 0, len(m.Cards))
	for _, c := range m.Cards {
		v := strconv.Itoa(c.Value)
		if c.Warn {
			v = styles.ErrorStyle.Render(v)
		}
		rows = append(rows, []string{c.Label, v})
	}
	printTable(w, "", []string{"Metric", "Count"}, rows)

	printBars(w, "Most borrowed", m.Popular)
	printBars(w, "Issued per day", m.Trend)
}

func printBars(w io.Writer, title string, bars []view.Bar) {
	if len(bars) == 0 {
		return
	}
	peak := 0
	for _, b := range bars {
		peak = max(peak, b.Value)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.SubtitleStyle.Render(title))
	for _, b := range bars {
		fmt.Fprintf(w, "  %s %s %d\n",
			styles.Pad(styles.Truncate(b.Label, view.TitleWidth), view.TitleWidth),
			styles.RenderBar(b.Value, peak, 30), b.Value)
	}
}

func newMyCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "my",
		Short: "Your own loans",
	}

	books := &cobra.Command{
		Use:   "books",
		Short: "Books you have checked out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapOwnLoans, func(a *app) error {
				st, err := a.fetchState(cmd)
				if err != nil {
					return err
				}
				headers, rows := txnTable(view.MyBookRows(st.MyLoans, time.Now()), false)
				printTable(cmd.OutOrStdout(), "You have no books checked out.", headers, rows)
				return nil
			})
		},
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "Your past loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapOwnLoans, func(a *app) error {
				st, err := a.fetchState(cmd)
				if err != nil {
					return err
				}
				headers, rows := txnTable(view.MyHistoryRows(st.MyHistory, time.Now()), false)
				printTable(cmd.OutOrStdout(), "No borrowing history yet.", headers, rows)
				return nil
			})
		},
	}

	cmd.AddCommand(books, history)
	return cmd
}
