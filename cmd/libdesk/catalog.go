package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mmcdole/libdesk/internal/catalog"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/loan"
	"github.com/mmcdole/libdesk/internal/session"
	"github.com/mmcdole/libdesk/internal/tui/styles"
	"github.com/mmcdole/libdesk/internal/view"
	"github.com/spf13/cobra"
)

const requestTimeout = 30 * time.Second

// withApp builds the app, checks capability c and runs fn
func withApp(configFile string, c session.Capability, fn func(a *app) error) error {
	a, err := newApp(configFile)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.require(c); err != nil {
		return err
	}
	return fn(a)
}

// fetchState refreshes the engine. When the backend is unreachable and a
// cached snapshot exists, the cached state is returned with a warning.
func (a *app) fetchState(cmd *cobra.Command) (loan.State, error) {
	engine, err := a.openEngine()
	if err != nil {
		return loan.State{}, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	if err := engine.Refresh(ctx); err != nil {
		st := engine.State()
		if errors.Is(err, domain.ErrNetwork) && st.Loaded() {
			fmt.Fprintln(cmd.ErrOrStderr(), styles.ErrorStyle.Render(
				fmt.Sprintf("Backend unreachable, showing cached data from %s", st.FetchedAt.Format("Jan 2 15:04"))))
			return st, nil
		}
		return loan.State{}, err
	}
	return engine.State(), nil
}

// mutate runs fn against the engine with a request timeout
func (a *app) mutate(cmd *cobra.Command, fn func(ctx context.Context, e *loan.Engine) error) error {
	engine, err := a.openEngine()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	return fn(ctx, engine)
}

func done(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), styles.SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func newBooksCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Manage the catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapCatalog, func(a *app) error {
				st, err := a.fetchState(cmd)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(st.Books))
				for _, b := range view.BookRows(st.Books) {
					rows = append(rows, []string{b.ID, b.Title, b.Author, b.ISBN, b.Language})
				}
				printTable(cmd.OutOrStdout(), "The catalog is empty.",
					[]string{"ID", "Title", "Author", "ISBN", "Language"}, rows)
				return nil
			})
		},
	}

	var book domain.NewBook
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapCatalog, func(a *app) error {
				err := a.mutate(cmd, func(ctx context.Context, e *loan.Engine) error {
					return e.AddBook(ctx, book)
				})
				if err != nil {
					return err
				}
				done(cmd, "Added book: %s", book.Normalize().Title)
				return nil
			})
		},
	}
	add.Flags().StringVar(&book.Title, "title", "", "title (required)")
	add.Flags().StringVar(&book.Author, "author", "", "author (required)")
	add.Flags().StringVar(&book.ISBN, "isbn", "", "ISBN")
	add.Flags().StringVar(&book.Language, "language", "", "language (default "+domain.DefaultLanguage+")")

	del := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapCatalog, func(a *app) error {
				err := a.mutate(cmd, func(ctx context.Context, e *loan.Engine) error {
					return e.DeleteBook(ctx, args[0])
				})
				if err != nil {
					return err
				}
				done(cmd, "Deleted book %s", args[0])
				return nil
			})
		},
	}

	var workers int
	imp := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk-add books from a title,author,isbn,language CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapCatalog, func(a *app) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				res, err := catalog.NewImporter(a.client, workers, a.logger).Import(cmd.Context(), f)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, row := range res.Rows {
					if row.Err != nil {
						fmt.Fprintln(out, styles.ErrorStyle.Render(fmt.Sprintf("line %d: %v", row.Line, row.Err)))
					}
				}
				fmt.Fprintf(out, "Imported %d of %d books", res.Added, len(res.Rows))
				if res.Failed > 0 {
					fmt.Fprintf(out, ", %d failed", res.Failed)
				}
				fmt.Fprintln(out)
				if res.Failed > 0 {
					return fmt.Errorf("%d rows failed", res.Failed)
				}
				return nil
			})
		},
	}
	imp.Flags().IntVar(&workers, "workers", catalog.DefaultWorkers, "concurrent requests")

	cmd.AddCommand(list, add, del, imp)
	return cmd
}

func newMembersCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage library members",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapMembers, func(a *app) error {
				st, err := a.fetchState(cmd)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(st.Members))
				for _, m := range view.MemberRows(st.Members) {
					rows = append(rows, []string{m.ID, m.Name, m.Email, m.Type, m.Phone})
				}
				printTable(cmd.OutOrStdout(), "No members yet.",
					[]string{"ID", "Name", "Email", "Type", "Phone"}, rows)
				return nil
			})
		},
	}

	var member domain.NewMember
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapMembers, func(a *app) error {
				err := a.mutate(cmd, func(ctx context.Context, e *loan.Engine) error {
					return e.AddMember(ctx, member)
				})
				if err != nil {
					return err
				}
				done(cmd, "Added member: %s", member.Normalize().FullName)
				return nil
			})
		},
	}
	add.Flags().StringVar(&member.FullName, "name", "", "full name (required)")
	add.Flags().StringVar(&member.Email, "email", "", "email (required)")
	add.Flags().StringVar(&member.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&member.Type, "type", "", "member type (default "+domain.DefaultMemberType+")")

	del := &cobra.Command{
		Use:   "delete <member-id>",
		Short: "Delete a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configFile, session.CapMembers, func(a *app) error {
				err := a.mutate(cmd, func(ctx context.Context, e *loan.Engine) error {
					return e.DeleteMember(ctx, args[0])
				})
				if err != nil {
					return err
				}
				done(cmd, "Deleted member %s", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}
