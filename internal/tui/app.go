package tui

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/feed"
	"github.com/mmcdole/libdesk/internal/loan"
	"github.com/mmcdole/libdesk/internal/refresh"
	"github.com/mmcdole/libdesk/internal/search"
	"github.com/mmcdole/libdesk/internal/session"
	"github.com/mmcdole/libdesk/internal/tui/components"
	"github.com/mmcdole/libdesk/internal/view"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
	StateConfirm
	StateForm
)

// Refresher schedules background refreshes (the refresh coordinator)
type Refresher interface {
	Trigger()
	State() refresh.State
}

// borrowPane is the focused pane of the Borrow page
type borrowPane int

const (
	paneMembers borrowPane = iota
	paneCopies
	paneLoans
)

type formKind int

const (
	formBook formKind = iota
	formMember
)

// Vertical chrome: header, tabs and footer lines
const ChromeHeight = 3

// AuthHint is shown after the dashboard exits on a rejected session
const AuthHint = "Your session expired or was rejected. Run `libdesk login` to sign in again."

// Deps wires the model to the running services
type Deps struct {
	Engine    *loan.Engine
	Refresher Refresher
	Session   *session.Manager
	Observer  *ChannelObserver

	// Logout ends the session and clears cached data
	Logout func() error

	// Now defaults to time.Now
	Now func() time.Time

	// StartPage is the ui.default_page setting
	StartPage string
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Services
	engine    *loan.Engine
	refresher Refresher
	session   *session.Manager
	observer  *ChannelObserver
	logout    func() error
	now       func() time.Time

	// Navigation
	Pages   []Page
	Current int

	// Data
	Loan       loan.State
	FeedStatus feed.Status
	TxnFilter  view.Filter
	borrow     view.BorrowModel

	// UI Components
	tables     map[Page]*components.Table
	members    *components.Table
	copies     *components.Table
	loans      *components.Table
	pane       borrowPane
	InputModal components.InputModal
	formKind   formKind

	// Pending confirmation
	confirmText string
	confirmCmd  tea.Cmd

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	statusSeq    int
	SpinnerFrame int

	// QuitHint is printed by the caller after the program exits
	QuitHint string
}

// NewModel creates a new application model
func NewModel(deps Deps) Model {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	pages := PagesFor(deps.Session.Role())
	current := 0
	if p, ok := ParsePage(deps.StartPage); ok {
		current = pageIndex(pages, p)
	}

	m := Model{
		State:      StateBrowsing,
		engine:     deps.Engine,
		refresher:  deps.Refresher,
		session:    deps.Session,
		observer:   deps.Observer,
		logout:     deps.Logout,
		now:        now,
		Pages:      pages,
		Current:    current,
		Loan:       deps.Engine.State(),
		InputModal: components.NewInputModal(),
		tables: map[Page]*components.Table{
			PageBooks: components.NewTable("Books",
				components.Column{Title: "Title", Weight: 3},
				components.Column{Title: "Author", Weight: 2},
				components.Column{Title: "ISBN", Width: 14},
				components.Column{Title: "Language", Width: 10},
			),
			PageMembers: components.NewTable("Members",
				components.Column{Title: "Name", Weight: 2},
				components.Column{Title: "Email", Weight: 3},
				components.Column{Title: "Type", Width: 9},
				components.Column{Title: "Phone", Width: 14},
			),
			PageTransactions: components.NewTable("Transactions",
				components.Column{Title: "Book", Weight: 3},
				components.Column{Title: "Member", Weight: 2},
				components.Column{Title: "Issued", Width: 10},
				components.Column{Title: "Due", Width: 11},
				components.Column{Title: "Returned", Width: 10},
				components.Column{Title: "Status", Width: 8},
			),
			PageMyBooks: components.NewTable("My Books",
				components.Column{Title: "Book", Weight: 1},
				components.Column{Title: "Issued", Width: 10},
				components.Column{Title: "Due", Width: 11},
				components.Column{Title: "Status", Width: 8},
			),
			PageHistory: components.NewTable("History",
				components.Column{Title: "Book", Weight: 1},
				components.Column{Title: "Issued", Width: 10},
				components.Column{Title: "Due", Width: 11},
				components.Column{Title: "Returned", Width: 10},
				components.Column{Title: "Status", Width: 8},
			),
		},
		members: components.NewTable("Members", components.Column{Title: "Member", Weight: 1}),
		copies:  components.NewTable("Available copies", components.Column{Title: "Copy", Weight: 1}),
		loans: components.NewTable("Active loans",
			components.Column{Title: "Book", Weight: 3},
			components.Column{Title: "Member", Weight: 2},
			components.Column{Title: "Due", Width: 11},
			components.Column{Title: "Status", Width: 8},
		),
	}
	m.tables[PageMyBooks].SetEmptyText("You have no books checked out")
	m.tables[PageHistory].SetEmptyText("No borrowing history yet")
	m.copies.SetEmptyText("No copies available")
	m.copies.SetFocused(false)
	m.loans.SetFocused(false)
	m.rebuildRows()
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	refresher := m.refresher
	return tea.Batch(
		m.observer.Listen(),
		TickCmd(100*time.Millisecond),
		func() tea.Msg {
			refresher.Trigger()
			return nil
		},
	)
}

// Page returns the visible page
func (m Model) Page() Page {
	if len(m.Pages) == 0 {
		return PageOverview
	}
	return m.Pages[m.Current]
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		// Loans turn overdue without any event; re-derive once a second
		if m.SpinnerFrame%10 == 0 {
			if m.session.Authenticated() && m.session.Expired(m.now()) {
				return m.authFailed()
			}
			m.syncState()
		}
		return m, TickCmd(100 * time.Millisecond)

	case RefreshDoneMsg:
		if msg.Err != nil {
			if domain.KindOf(msg.Err) == domain.FailureAuth {
				return m.authFailed()
			}
			return m, tea.Batch(m.observer.Listen(), m.setStatus("Refresh failed: "+msg.Err.Error(), true))
		}
		m.syncState()
		return m, m.observer.Listen()

	case FeedStatusMsg:
		m.FeedStatus = msg.Status
		return m, m.observer.Listen()

	case MutationDoneMsg:
		m.syncState()
		return m, m.setStatus(msg.Message, false)

	case ErrMsg:
		if errors.Is(msg, domain.ErrAuth) {
			return m.authFailed()
		}
		return m, m.setStatus(msg.Error(), true)

	case StatusMsg:
		return m, m.setStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.StatusMsg = ""
			m.StatusIsErr = false
		}
		return m, nil

	case LogoutCompleteMsg:
		if m.QuitHint == "" {
			m.QuitHint = "Logged out."
		}
		if msg.Error != nil {
			m.QuitHint += " (cleanup failed: " + msg.Error.Error() + ")"
		}
		return m, tea.Quit
	}

	return m, nil
}

// setStatus shows a transient footer message. Errors linger longer.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.StatusMsg = text
	m.StatusIsErr = isErr
	delay := 3 * time.Second
	if isErr {
		delay = 5 * time.Second
	}
	return ClearStatusCmd(m.statusSeq, delay)
}

// authFailed sends the user back to the login entry point
func (m Model) authFailed() (tea.Model, tea.Cmd) {
	if m.QuitHint != "" {
		return m, nil
	}
	m.QuitHint = AuthHint
	return m, LogoutCmd(m.logout)
}

// syncState pulls the latest engine state and re-derives every table
func (m *Model) syncState() {
	m.Loan = m.engine.State()
	m.rebuildRows()
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		m.State = StateBrowsing
		return m, nil

	case StateConfirm:
		switch {
		case key.Matches(msg, Keys.Confirm):
			cmd := m.confirmCmd
			m.State = StateBrowsing
			m.confirmText, m.confirmCmd = "", nil
			return m, cmd
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
			m.confirmText, m.confirmCmd = "", nil
		}
		return m, nil

	case StateForm:
		var cmd tea.Cmd
		var submitted bool
		m.InputModal, cmd, submitted = m.InputModal.Update(msg)
		if !m.InputModal.IsVisible() {
			m.State = StateBrowsing
			return m, cmd
		}
		if submitted {
			return m.submitForm()
		}
		return m, cmd
	}

	// Filter typing owns the keyboard
	if t := m.activeTable(); t != nil && t.IsFilterTyping() {
		before := t.Query()
		cmd := t.Update(msg)
		if t.Query() != before {
			m.rebuildRows()
		}
		return m, cmd
	}

	// Digits jump straight to a page
	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.Pages) {
		return m.switchPage(n - 1)
	}

	page := m.Page()
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if t := m.activeTable(); t != nil && t.IsFiltering() {
			t.ClearFilter()
			m.rebuildRows()
		}
		return m, nil

	case key.Matches(msg, Keys.NextPage):
		return m.switchPage(m.Current + 1)

	case key.Matches(msg, Keys.PrevPage):
		return m.switchPage(m.Current - 1)

	case key.Matches(msg, Keys.Refresh):
		m.refresher.Trigger()
		return m, nil

	case key.Matches(msg, Keys.Filter):
		if t := m.activeTable(); t != nil {
			t.ToggleFilter()
			m.updateLayout()
		}
		return m, nil

	case key.Matches(msg, Keys.StatusFilter) && page == PageTransactions:
		m.TxnFilter = m.TxnFilter.Next()
		m.rebuildRows()
		return m, m.setStatus("Showing "+m.TxnFilter.String()+" transactions", false)

	case key.Matches(msg, Keys.Add) && (page == PageBooks || page == PageMembers):
		return m.showForm(page)

	case key.Matches(msg, Keys.Delete) && (page == PageBooks || page == PageMembers):
		return m.confirmDelete(page)

	case key.Matches(msg, Keys.Return) && (page == PageTransactions || (page == PageBorrow && m.pane == paneLoans)):
		return m.confirmReturn()

	case key.Matches(msg, Keys.Pane) && page == PageBorrow:
		m.focusPane((m.pane + 1) % 3)
		return m, nil

	case key.Matches(msg, Keys.Issue) && page == PageBorrow:
		return m.issue()

	case key.Matches(msg, Keys.Logout):
		m.ask("Log out? This clears your session and cached data.", LogoutCmd(m.logout))
		return m, nil
	}

	// Everything else navigates the active table
	if t := m.activeTable(); t != nil {
		return m, t.Update(msg)
	}
	return m, nil
}

// switchPage moves to page index i (wrapping) and refreshes
func (m Model) switchPage(i int) (tea.Model, tea.Cmd) {
	n := len(m.Pages)
	if n == 0 {
		return m, nil
	}
	m.Current = ((i % n) + n) % n
	m.refresher.Trigger()
	m.updateLayout()
	return m, nil
}

func (m *Model) focusPane(p borrowPane) {
	m.pane = p
	m.members.SetFocused(p == paneMembers)
	m.copies.SetFocused(p == paneCopies)
	m.loans.SetFocused(p == paneLoans)
}

// activeTable returns the table receiving navigation keys, nil on the
// overview
func (m Model) activeTable() *components.Table {
	switch m.Page() {
	case PageOverview:
		return nil
	case PageBorrow:
		switch m.pane {
		case paneCopies:
			return m.copies
		case paneLoans:
			return m.loans
		}
		return m.members
	default:
		return m.tables[m.Page()]
	}
}

func (m *Model) ask(text string, cmd tea.Cmd) {
	m.State = StateConfirm
	m.confirmText = text
	m.confirmCmd = cmd
}

func (m Model) showForm(page Page) (tea.Model, tea.Cmd) {
	if page == PageBooks {
		m.formKind = formBook
		m.InputModal.Show("Add book",
			components.Field{Label: "Title"},
			components.Field{Label: "Author"},
			components.Field{Label: "ISBN", Placeholder: "optional"},
			components.Field{Label: "Language", Placeholder: domain.DefaultLanguage},
		)
	} else {
		m.formKind = formMember
		m.InputModal.Show("Add member",
			components.Field{Label: "Full name"},
			components.Field{Label: "Email"},
			components.Field{Label: "Phone", Placeholder: "optional"},
			components.Field{Label: "Type", Placeholder: domain.DefaultMemberType},
		)
	}
	m.State = StateForm
	return m, nil
}

// submitForm validates locally; the form stays open on a validation error
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	v := m.InputModal.Values()
	var cmd tea.Cmd

	switch m.formKind {
	case formBook:
		if err := m.session.Require(session.CapCatalog); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		book := domain.NewBook{Title: v[0], Author: v[1], ISBN: v[2], Language: v[3]}.Normalize()
		if err := book.Validate(); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		cmd = AddBookCmd(m.engine, book)
	case formMember:
		if err := m.session.Require(session.CapMembers); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		member := domain.NewMember{FullName: v[0], Email: v[1], Phone: v[2], Type: v[3]}.Normalize()
		if err := member.Validate(); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		cmd = AddMemberCmd(m.engine, member)
	}

	m.InputModal.Hide()
	m.State = StateBrowsing
	return m, cmd
}

func (m Model) confirmDelete(page Page) (tea.Model, tea.Cmd) {
	row, ok := m.tables[page].SelectedRow()
	if !ok {
		return m, nil
	}
	name := row.Cells[0]

	if page == PageBooks {
		if err := m.session.Require(session.CapCatalog); err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		m.ask(fmt.Sprintf("Delete %q from the catalog?", name), DeleteBookCmd(m.engine, row.Key, name))
		return m, nil
	}
	if err := m.session.Require(session.CapMembers); err != nil {
		return m, m.setStatus(err.Error(), true)
	}
	m.ask(fmt.Sprintf("Delete member %q?", name), DeleteMemberCmd(m.engine, row.Key, name))
	return m, nil
}

func (m Model) confirmReturn() (tea.Model, tea.Cmd) {
	if err := m.session.Require(session.CapCirculation); err != nil {
		return m, m.setStatus(err.Error(), true)
	}
	id := m.activeTable().SelectedKey()
	if id == "" {
		return m, nil
	}
	for _, t := range m.Loan.Transactions {
		if t.ID != id {
			continue
		}
		if !t.IsOpen() {
			return m, m.setStatus("That loan is already returned", true)
		}
		m.ask(fmt.Sprintf("Return %q from %s?", t.BookTitle, t.MemberName), ReturnCmd(m.engine, t.ID, t.BookTitle))
		return m, nil
	}
	return m, nil
}

func (m Model) issue() (tea.Model, tea.Cmd) {
	if err := m.session.Require(session.CapCirculation); err != nil {
		return m, m.setStatus(err.Error(), true)
	}
	member, okMember := m.members.SelectedRow()
	copyRow, okCopy := m.copies.SelectedRow()
	if !okMember || !okCopy {
		return m, m.setStatus("Select a member and an available copy first", true)
	}
	return m, IssueCmd(m.engine, member.Key, copyRow.Key, copyRow.Cells[0])
}

// rebuildRows re-derives every table from the current state, filters and
// clock
func (m *Model) rebuildRows() {
	now := m.now()
	st := m.Loan

	m.tables[PageBooks].SetRows(rankedBookRows(m.tables[PageBooks].Query(), st.Books))
	m.tables[PageMembers].SetRows(memberRows(view.MemberRows(search.FilterMembers(m.tables[PageMembers].Query(), st.Members))))

	txns := m.tables[PageTransactions]
	txns.SetTitle("Transactions · " + m.TxnFilter.String())
	txns.SetRows(txnRows(view.TransactionRows(search.FilterTransactions(txns.Query(), st.Transactions), m.TxnFilter, now)))

	mine := m.tables[PageMyBooks]
	mine.SetRows(myBookRows(view.MyBookRows(search.FilterTransactions(mine.Query(), st.MyLoans), now)))
	hist := m.tables[PageHistory]
	hist.SetRows(historyRows(view.MyHistoryRows(search.FilterTransactions(hist.Query(), st.MyHistory), now)))

	m.borrow = view.BorrowForm(st, now)
	m.members.SetRows(optionRows(m.members.Query(), m.borrow.Members))
	m.copies.SetRows(copyRows(m.copies.Query(), st.Available))
	m.loans.SetRows(activeLoanRows(view.ActiveLoans(search.FilterTransactions(m.loans.Query(), st.Transactions), now)))
}

// updateLayout sizes every component for the current window
func (m *Model) updateLayout() {
	contentHeight := max(m.Height-ChromeHeight, 3)
	for _, t := range m.tables {
		t.SetSize(m.Width, contentHeight)
	}

	// Borrow: member and copy panes side by side over the loans table
	summaryLines := 2
	paneHeight := max((contentHeight-summaryLines)/2, 6)
	left := m.Width / 2
	m.members.SetSize(left, paneHeight)
	m.copies.SetSize(m.Width-left, paneHeight)
	m.loans.SetSize(m.Width, max(contentHeight-summaryLines-paneHeight, 4))
}
