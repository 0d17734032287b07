package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/libdesk/internal/adapter"
	"github.com/mmcdole/libdesk/internal/api"
	"github.com/mmcdole/libdesk/internal/api/apitest"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/feed"
	"github.com/mmcdole/libdesk/internal/loan"
	"github.com/mmcdole/libdesk/internal/refresh"
	"github.com/mmcdole/libdesk/internal/session"
	"github.com/mmcdole/libdesk/internal/view"
)

var today = time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)

type fakeRefresher struct {
	triggers int
}

func (f *fakeRefresher) Trigger()             { f.triggers++ }
func (f *fakeRefresher) State() refresh.State { return refresh.Idle }

type harness struct {
	srv       *apitest.Server
	engine    *loan.Engine
	refresher *fakeRefresher
	loggedOut bool
}

func newModel(t *testing.T, role domain.Role) (Model, *harness) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.SetNow(func() time.Time { return today })
	srv.SeedBook("book-1", "Dune", "Frank Herbert", "copy-42")
	srv.SeedMember("mem-7", "Ada Lovelace", "ada@example.com", "secret")

	email := apitest.AdminEmail
	if role == domain.RoleMember {
		email = "ada@example.com"
	}
	sess := session.NewManager(nil, adapter.NullLogger())
	if err := sess.Begin(&domain.AuthResult{Token: srv.Token(email, role, time.Hour), Email: email, Role: role}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	client := api.NewClient(srv.URL, sess, adapter.NullLogger())
	client.SetLocation(time.UTC)
	engine := loan.NewEngine(client, nil, adapter.NullLogger())
	engine.Start(role)

	h := &harness{srv: srv, engine: engine, refresher: &fakeRefresher{}}
	m := NewModel(Deps{
		Engine:    engine,
		Refresher: h.refresher,
		Session:   sess,
		Observer:  NewChannelObserver(8),
		Logout: func() error {
			h.loggedOut = true
			return sess.End()
		},
		Now: func() time.Time { return today },
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, h
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys in order and returns the last command
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

// typeText sends each rune as its own key press
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = press(t, m, string(r))
	}
	return m
}

func loaded(t *testing.T, m Model, h *harness) Model {
	t.Helper()
	if err := h.engine.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return update(t, m, RefreshDoneMsg{})
}

func TestPagesForRoles(t *testing.T) {
	if got := PagesFor(domain.RoleAdmin); len(got) != 5 || got[4] != PageBorrow {
		t.Fatalf("admin pages = %v", got)
	}
	if got := PagesFor(domain.RoleMember); len(got) != 2 || got[0] != PageMyBooks {
		t.Fatalf("member pages = %v", got)
	}
	if p, ok := ParsePage("my-books"); !ok || p != PageMyBooks {
		t.Fatalf("ParsePage = %v, %v", p, ok)
	}
	if _, ok := ParsePage("settings"); ok {
		t.Fatal("unknown page parsed")
	}
}

func TestPageSwitchTriggersRefresh(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)

	m, _ = press(t, m, "tab")
	if m.Page() != PageBooks || h.refresher.triggers != 1 {
		t.Fatalf("page=%v triggers=%d", m.Page(), h.refresher.triggers)
	}
	m, _ = press(t, m, "4")
	if m.Page() != PageTransactions || h.refresher.triggers != 2 {
		t.Fatalf("page=%v triggers=%d", m.Page(), h.refresher.triggers)
	}
	m, _ = press(t, m, "r")
	if h.refresher.triggers != 3 {
		t.Fatalf("refresh key did not trigger, triggers=%d", h.refresher.triggers)
	}
}

func TestRefreshDoneFillsTables(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)
	m = loaded(t, m, h)

	if m.tables[PageBooks].Len() != 1 || m.tables[PageMembers].Len() != 1 {
		t.Fatalf("books=%d members=%d", m.tables[PageBooks].Len(), m.tables[PageMembers].Len())
	}
	if m.copies.Len() != 1 || m.copies.SelectedKey() != "copy-42" {
		t.Fatalf("copies = %d, selected %q", m.copies.Len(), m.copies.SelectedKey())
	}
	if !strings.Contains(m.View(), "Total Books") {
		t.Fatal("overview cards not rendered")
	}
}

func TestIssueFromBorrowPage(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)
	m = loaded(t, m, h)

	m, cmd := press(t, m, "5", "i")
	if m.Page() != PageBorrow || cmd == nil {
		t.Fatalf("page=%v cmd=%v", m.Page(), cmd)
	}
	msg := cmd()
	if _, ok := msg.(MutationDoneMsg); !ok {
		t.Fatalf("issue returned %#v", msg)
	}
	if n := h.srv.OpenTransactions("copy-42"); n != 1 {
		t.Fatalf("open transactions for copy-42 = %d", n)
	}

	m = update(t, m, msg)
	if m.copies.Len() != 0 || !strings.HasPrefix(m.StatusMsg, "Issued: Dune") {
		t.Fatalf("copies=%d status=%q", m.copies.Len(), m.StatusMsg)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)
	m = loaded(t, m, h)

	m, cmd := press(t, m, "2", "d")
	if m.State != StateConfirm || cmd != nil {
		t.Fatalf("state=%v cmd=%v", m.State, cmd)
	}
	m, _ = press(t, m, "n")
	if m.State != StateBrowsing {
		t.Fatalf("deny left state %v", m.State)
	}

	m, _ = press(t, m, "d")
	m, cmd = press(t, m, "y")
	if cmd == nil {
		t.Fatal("confirm returned no command")
	}
	if msg, ok := cmd().(MutationDoneMsg); !ok || msg.Message != "Deleted book: Dune" {
		t.Fatalf("delete returned %#v", msg)
	}
}

func TestAddBookFormValidatesLocally(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)
	m = loaded(t, m, h)

	m, _ = press(t, m, "2", "a")
	if m.State != StateForm {
		t.Fatalf("state = %v, want form", m.State)
	}

	m, cmd := press(t, m, "enter")
	if m.State != StateForm || !m.StatusIsErr || cmd == nil {
		t.Fatalf("empty form submitted: state=%v status=%q", m.State, m.StatusMsg)
	}
	if h.srv.Hits("/books") != 1 {
		t.Fatalf("validation failure reached the server")
	}

	m = typeText(t, m, "Emma")
	m, _ = press(t, m, "tab")
	m = typeText(t, m, "Jane Austen")
	m, cmd = press(t, m, "enter")
	if m.State != StateBrowsing || cmd == nil {
		t.Fatalf("state=%v cmd=%v", m.State, cmd)
	}
	if msg, ok := cmd().(MutationDoneMsg); !ok || msg.Message != "Added book: Emma" {
		t.Fatalf("add returned %#v", msg)
	}
}

func TestFilterNarrowsAndClears(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)
	m = loaded(t, m, h)

	m, _ = press(t, m, "2", "/")
	m = typeText(t, m, "zzz")
	if n := m.tables[PageBooks].Len(); n != 0 {
		t.Fatalf("filtered books = %d", n)
	}
	m, _ = press(t, m, "esc")
	if n := m.tables[PageBooks].Len(); n != 1 {
		t.Fatalf("books after clearing filter = %d", n)
	}
}

func TestStatusFilterCycles(t *testing.T) {
	m, _ := newModel(t, domain.RoleAdmin)

	m, _ = press(t, m, "4", "f")
	if m.TxnFilter != view.FilterActive || !strings.Contains(m.StatusMsg, "active") {
		t.Fatalf("filter=%v status=%q", m.TxnFilter, m.StatusMsg)
	}
	// f only applies to transactions
	m, _ = press(t, m, "2", "f")
	if m.TxnFilter != view.FilterActive {
		t.Fatalf("filter changed on books page: %v", m.TxnFilter)
	}
}

func TestMemberSeesOnlyOwnPages(t *testing.T) {
	m, h := newModel(t, domain.RoleMember)
	m = loaded(t, m, h)

	if m.Page() != PageMyBooks {
		t.Fatalf("member starts on %v", m.Page())
	}
	m, cmd := press(t, m, "a")
	if m.State != StateBrowsing || cmd != nil {
		t.Fatal("members cannot add books")
	}
	if !strings.Contains(m.View(), "You have no books checked out") {
		t.Fatal("empty my-books table not rendered")
	}
}

func TestAuthFailureLogsOutAndQuits(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)

	next, cmd := m.Update(RefreshDoneMsg{Err: domain.ErrAuth})
	m = next.(Model)
	if m.QuitHint != AuthHint || cmd == nil {
		t.Fatalf("hint=%q cmd=%v", m.QuitHint, cmd)
	}

	done := cmd()
	if !h.loggedOut {
		t.Fatal("session not ended")
	}
	_, cmd = m.Update(done)
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected program to quit")
	}
}

func TestFeedStatusShownInHeader(t *testing.T) {
	m, _ := newModel(t, domain.RoleAdmin)
	m = update(t, m, FeedStatusMsg{Status: feed.Live})
	if !strings.Contains(m.renderHeader(), "Live") {
		t.Fatalf("header = %q", m.renderHeader())
	}
}

func TestStaleClearStatusIgnored(t *testing.T) {
	m, _ := newModel(t, domain.RoleAdmin)
	m = update(t, m, StatusMsg{Message: "first"})
	m = update(t, m, StatusMsg{Message: "second"})
	m = update(t, m, ClearStatusMsg{Seq: 1})
	if m.StatusMsg != "second" {
		t.Fatalf("status = %q", m.StatusMsg)
	}
}

func TestObserverNeverBlocks(t *testing.T) {
	o := NewChannelObserver(1)
	o.FeedStatus(feed.Live)
	o.RefreshDone(nil) // dropped

	if msg := o.Listen()(); msg != (FeedStatusMsg{Status: feed.Live}) {
		t.Fatalf("got %#v", msg)
	}
}

func TestBookFilterRanksAndHighlightsTitle(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)
	h.srv.SeedBook("book-2", "Emma", "Jane Austen", "copy-7")
	m = loaded(t, m, h)

	m, _ = press(t, m, "2", "/")
	m = typeText(t, m, "emma")
	books := m.tables[PageBooks]
	if books.Len() != 1 || books.SelectedKey() != "book-2" {
		t.Fatalf("books=%d selected=%q", books.Len(), books.SelectedKey())
	}
	row, ok := books.SelectedRow()
	if !ok || len(row.Highlight) != 4 {
		t.Fatalf("highlight = %v", row.Highlight)
	}
	for _, idx := range row.Highlight {
		if idx >= len("Emma") {
			t.Fatalf("highlight %d falls outside the title", idx)
		}
	}
}

func TestCopyPaneRanksByLabel(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)
	h.srv.SeedBook("book-2", "Emma", "Jane Austen", "copy-7")
	m = loaded(t, m, h)

	m, _ = press(t, m, "5", "m")
	if m.pane != paneCopies {
		t.Fatalf("pane = %v, want copies", m.pane)
	}
	m, _ = press(t, m, "/")
	m = typeText(t, m, "austen")
	if m.copies.Len() != 1 || m.copies.SelectedKey() != "copy-7" {
		t.Fatalf("copies=%d selected=%q", m.copies.Len(), m.copies.SelectedKey())
	}
	if row, _ := m.copies.SelectedRow(); len(row.Highlight) == 0 {
		t.Fatal("matched characters not highlighted")
	}
}

func TestExpiredTokenLogsOutOnTick(t *testing.T) {
	m, h := newModel(t, domain.RoleAdmin)
	m.now = func() time.Time { return today.Add(2 * time.Hour) }

	var cmd tea.Cmd
	for i := 0; i < 10; i++ {
		var next tea.Model
		next, cmd = m.Update(TickMsg{})
		m = next.(Model)
	}
	if m.QuitHint != AuthHint || cmd == nil {
		t.Fatalf("hint=%q cmd=%v", m.QuitHint, cmd)
	}
	if _, ok := cmd().(LogoutCompleteMsg); !ok || !h.loggedOut {
		t.Fatal("expired session was not logged out")
	}
}
