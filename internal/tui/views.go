package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/feed"
	"github.com/mmcdole/libdesk/internal/refresh"
	"github.com/mmcdole/libdesk/internal/search"
	"github.com/mmcdole/libdesk/internal/tui/components"
	"github.com/mmcdole/libdesk/internal/tui/styles"
	"github.com/mmcdole/libdesk/internal/view"
)

// Row builders

func bookRows(books []view.BookRow) []components.Row {
	rows := make([]components.Row, len(books))
	for i, b := range books {
		rows[i] = components.Row{Key: b.ID, Cells: []string{b.Title, b.Author, b.ISBN, b.Language}}
	}
	return rows
}

// rankedBookRows filters the catalog by query and orders the matches by
// fuzzy score, highlighting matched characters of the title
func rankedBookRows(query string, books []domain.Book) []components.Row {
	books = search.FilterBooks(query, books)
	rows := bookRows(view.BookRows(books))
	if strings.TrimSpace(query) == "" {
		return rows
	}

	ranked := make([]components.Row, 0, len(rows))
	seen := make([]bool, len(rows))
	for _, match := range search.RankBooks(query, books) {
		row := rows[match.Index]
		title := books[match.Index].Title
		for _, idx := range match.MatchedIndexes {
			if idx < len(title) {
				row.Highlight = append(row.Highlight, idx)
			}
		}
		ranked = append(ranked, row)
		seen[match.Index] = true
	}
	// Rows fuzzysearch kept but sahilm could not score stay at the end
	for i, row := range rows {
		if !seen[i] {
			ranked = append(ranked, row)
		}
	}
	return ranked
}

func memberRows(members []view.MemberRow) []components.Row {
	rows := make([]components.Row, len(members))
	for i, mem := range members {
		rows[i] = components.Row{Key: mem.ID, Cells: []string{mem.Name, mem.Email, mem.Type, mem.Phone}}
	}
	return rows
}

func statusTone(s domain.Status) components.Tone {
	switch s {
	case domain.StatusOverdue:
		return components.ToneWarn
	case domain.StatusReturned:
		return components.ToneDim
	default:
		return components.ToneNormal
	}
}

// dueCell marks due dates the backend did not send
func dueCell(r view.TxnRow) string {
	if r.DueEstimated {
		return r.Due + "*"
	}
	return r.Due
}

func txnRows(txns []view.TxnRow) []components.Row {
	rows := make([]components.Row, len(txns))
	for i, r := range txns {
		rows[i] = components.Row{
			Key:   r.ID,
			Cells: []string{r.Book, r.Member, r.Issued, dueCell(r), r.Returned, r.Status.String()},
			Tone:  statusTone(r.Status),
		}
	}
	return rows
}

func activeLoanRows(txns []view.TxnRow) []components.Row {
	var rows []components.Row
	for _, r := range txns {
		if !r.CanReturn {
			continue
		}
		rows = append(rows, components.Row{
			Key:   r.ID,
			Cells: []string{r.Book, r.Member, dueCell(r), r.Status.String()},
			Tone:  statusTone(r.Status),
		})
	}
	return rows
}

func myBookRows(txns []view.TxnRow) []components.Row {
	rows := make([]components.Row, len(txns))
	for i, r := range txns {
		rows[i] = components.Row{
			Key:   r.ID,
			Cells: []string{r.Book, r.Issued, dueCell(r), r.Status.String()},
			Tone:  statusTone(r.Status),
		}
	}
	return rows
}

func historyRows(txns []view.TxnRow) []components.Row {
	rows := make([]components.Row, len(txns))
	for i, r := range txns {
		rows[i] = components.Row{
			Key:   r.ID,
			Cells: []string{r.Book, r.Issued, dueCell(r), r.Returned, r.Status.String()},
			Tone:  statusTone(r.Status),
		}
	}
	return rows
}

// optionRows lists options in order, or ranked by fuzzy match with the
// matched characters highlighted when a query is set
func optionRows(query string, opts []view.Option) []components.Row {
	if strings.TrimSpace(query) == "" {
		rows := make([]components.Row, len(opts))
		for i, o := range opts {
			rows[i] = components.Row{Key: o.Value, Cells: []string{o.Label}}
		}
		return rows
	}
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
	}
	matches := search.Rank(query, labels)
	rows := make([]components.Row, len(matches))
	for i, match := range matches {
		rows[i] = components.Row{
			Key:       opts[match.Index].Value,
			Cells:     []string{match.Label},
			Highlight: match.MatchedIndexes,
		}
	}
	return rows
}

// copyRows lists available copies, ranked and highlighted when a query
// is set
func copyRows(query string, copies []domain.AvailableCopy) []components.Row {
	if strings.TrimSpace(query) == "" {
		rows := make([]components.Row, len(copies))
		for i, c := range copies {
			rows[i] = components.Row{Key: c.CopyID, Cells: []string{search.CopyLabel(c)}}
		}
		return rows
	}
	matches := search.RankCopies(query, copies)
	rows := make([]components.Row, len(matches))
	for i, match := range matches {
		rows[i] = components.Row{
			Key:       copies[match.Index].CopyID,
			Cells:     []string{match.Label},
			Highlight: match.MatchedIndexes,
		}
	}
	return rows
}

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	// Handle modal states
	switch m.State {
	case StateHelp:
		return m.renderHelp()
	case StateConfirm:
		return m.renderConfirmation()
	}

	contentHeight := max(m.Height-ChromeHeight, 3)
	var body string
	if m.State == StateForm {
		body = lipgloss.Place(m.Width, contentHeight, lipgloss.Center, lipgloss.Center, m.InputModal.View())
	} else {
		body = m.renderPage(contentHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).Render(body),
		m.renderFooter(),
	)
}

func (m Model) renderPage(height int) string {
	switch m.Page() {
	case PageOverview:
		return m.renderOverview()
	case PageBorrow:
		return m.renderBorrow()
	default:
		return m.tables[m.Page()].View()
	}
}

// renderHeader shows who is signed in, the feed state and data freshness
func (m Model) renderHeader() string {
	role := "Member"
	if m.session.Role() == domain.RoleAdmin {
		role = "Admin"
	}
	left := styles.TitleStyle.Render("libdesk") +
		styles.DimStyle.Render(" · ") +
		styles.SubtitleStyle.Render(m.session.Email()) +
		styles.DimStyle.Render(" · ") +
		styles.AccentStyle.Render(role)

	var feedText string
	switch m.FeedStatus {
	case feed.Live:
		feedText = styles.SuccessStyle.Render(styles.LiveChar + " Live")
	case feed.Offline:
		feedText = styles.ErrorStyle.Render(styles.OfflineChar + " Offline")
	default:
		feedText = styles.AccentStyle.Render(styles.ConnectingChar + " Connecting")
	}

	updated := "Not loaded"
	if !m.Loan.FetchedAt.IsZero() {
		updated = "Updated " + strings.ToLower(view.TimeAgo(m.Loan.FetchedAt, m.now()))
		if m.Loan.Stale {
			updated += " (cached)"
		}
	}
	right := feedText + styles.DimStyle.Render(" · "+updated)
	if m.refresher.State() != refresh.Idle {
		right = RenderSpinner(m.SpinnerFrame) + " " + right
	}

	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(m.Pages))
	for i, p := range m.Pages {
		label := fmt.Sprintf("%d %s", i+1, p)
		if i == m.Current {
			tabs[i] = styles.ActiveTabStyle.Render(label)
		} else {
			tabs[i] = styles.TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderOverview() string {
	ov := view.Overview(m.Loan, m.now())

	if len(ov.Cards) == 0 {
		return "\n" + styles.DimStyle.Render("  No summary yet. Press r to refresh.")
	}

	cards := make([]string, len(ov.Cards))
	for i, c := range ov.Cards {
		style := styles.CardStyle
		if c.Warn {
			style = styles.WarnCardStyle
		}
		cards[i] = style.Render(styles.DimStyle.Render(c.Label) + "\n" + styles.CardValueStyle.Render(fmt.Sprint(c.Value)))
	}
	cardRow := lipgloss.JoinHorizontal(lipgloss.Top, cards...)

	colWidth := max(m.Width/2-2, 30)
	barWidth := max(colWidth-view.TitleWidth-8, 5)

	left := lipgloss.JoinVertical(lipgloss.Left,
		renderBars("Copy availability", ov.Availability, barWidth, true),
		"",
		renderBars("Most borrowed", ov.Popular, barWidth, false),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		renderBars(fmt.Sprintf("Loans, last %d days", view.TrendDays), ov.Trend, barWidth, false),
		"",
		renderActivity(ov.Recent, colWidth),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		cardRow,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(colWidth).Render(left),
			"  ",
			lipgloss.NewStyle().Width(colWidth).Render(right),
		),
	)
}

// renderBars draws labelled bars scaled to the largest value, or to the
// total when share is set
func renderBars(title string, bars []view.Bar, width int, share bool) string {
	lines := []string{styles.AccentStyle.Render(title)}
	if len(bars) == 0 {
		return lines[0] + "\n" + styles.DimStyle.Render("No data")
	}
	scale := 0
	for _, b := range bars {
		if share {
			scale += b.Value
		} else {
			scale = max(scale, b.Value)
		}
	}
	for _, b := range bars {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			styles.SubtitleStyle.Render(styles.Pad(b.Label, view.TitleWidth+3)),
			styles.RenderBar(b.Value, scale, width),
			styles.DimStyle.Render(fmt.Sprint(b.Value)),
		))
	}
	return strings.Join(lines, "\n")
}

func renderActivity(items []view.Activity, width int) string {
	lines := []string{styles.AccentStyle.Render("Recent activity")}
	if len(items) == 0 {
		return lines[0] + "\n" + styles.DimStyle.Render("No loans yet")
	}
	for _, a := range items {
		var kind string
		switch a.Kind {
		case view.ActivityReturn:
			kind = styles.SuccessStyle.Render("Returned")
		case view.ActivityOverdue:
			kind = styles.ErrorStyle.Render("Overdue ")
		default:
			kind = styles.InfoStyle.Render("Issued  ")
		}
		text := styles.Truncate(a.Title+" · "+a.Member, max(width-20, 10))
		lines = append(lines, kind+" "+styles.SubtitleStyle.Render(text)+" "+styles.DimStyle.Render(a.When))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBorrow() string {
	panes := lipgloss.JoinHorizontal(lipgloss.Top, m.members.View(), m.copies.View())

	selection := styles.DimStyle.Render("Pick a member and a copy")
	member, okMember := m.members.SelectedRow()
	copyRow, okCopy := m.copies.SelectedRow()
	if okMember && okCopy {
		selection = styles.SubtitleStyle.Render(copyRow.Cells[0]) +
			styles.DimStyle.Render(" → ") +
			styles.SubtitleStyle.Render(member.Cells[0])
	}
	summary := " " + selection + styles.DimStyle.Render(" · due ") +
		styles.AccentStyle.Render(m.borrow.DuePlaceholder) +
		styles.DimStyle.Render(fmt.Sprintf(" · %d active loans", len(m.borrow.ActiveLoans)))

	return lipgloss.JoinVertical(lipgloss.Left, panes, summary, "", m.loans.View())
}

func (m Model) renderFooter() string {
	var left string
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.SuccessStyle.Render(m.StatusMsg)
		}
	}

	// Context-specific hints
	var hints []string
	hint := func(k, desc string) {
		hints = append(hints, styles.AccentStyle.Render(k)+styles.DimStyle.Render(" "+desc))
	}
	switch m.Page() {
	case PageBooks, PageMembers:
		hint("a", "Add")
		hint("d", "Delete")
		hint("/", "Filter")
	case PageTransactions:
		hint("x", "Return")
		hint("f", m.TxnFilter.String())
		hint("/", "Filter")
	case PageBorrow:
		hint("m", "Pane")
		hint("i", "Issue")
		hint("x", "Return")
	case PageMyBooks, PageHistory:
		hint("/", "Filter")
	}
	center := strings.Join(hints, "  ")

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.Width {
		gap := max(m.Width-leftWidth-rightWidth, 0)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad
	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
PAGES                           LOANS
  tab/S-tab  Next/previous         x/Enter  Return selected loan
  1-9        Jump to page          i        Issue (Borrow page)
  r          Refresh now           m        Switch Borrow pane
                                   f        Cycle status filter
LISTS                           CATALOG
  j/k        Up/down               a        Add book/member
  g/G        First/last            d        Delete book/member
  Ctrl+u/d   Half page
  /          Filter             OTHER
  Esc        Clear filter          L        Logout
                                   q        Quit
  * due date estimated             ?        This help

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

// renderConfirmation renders the pending yes/no question
func (m Model) renderConfirmation() string {
	modal := "\n  " + m.confirmText + "\n\n        [Y] Yes      [N] No\n"

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(modal))
}

// RenderSpinner renders one spinner frame
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
}
