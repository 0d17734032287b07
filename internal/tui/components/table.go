package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/libdesk/internal/tui/styles"
)

// Layout constants for tables
const (
	// Border adds 1 char on each side
	BorderWidth  = 2
	BorderHeight = 2

	// Scroll indicators ("↑ more" and "↓ more") each take 1 line
	ScrollIndicatorLines = 2
)

// Tone colors a whole row
type Tone int

const (
	ToneNormal Tone = iota
	ToneDim
	ToneWarn
	ToneGood
)

// Column is a table column. Weight shares the width left after fixed
// columns; Width > 0 pins the column.
type Column struct {
	Title  string
	Width  int
	Weight int
}

// Row is one table row. Key identifies the underlying record.
type Row struct {
	Key   string
	Cells []string
	Tone  Tone

	// Highlight marks matched byte offsets in the first cell
	Highlight []int
}

// Table is a scrollable, filterable table with a single selected row
type Table struct {
	title   string
	columns []Column
	rows    []Row

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width   int
	height  int
	focused bool

	// Filter state. The table only owns the input; the caller filters rows.
	filterActive bool
	filterInput  textinput.Model

	emptyText string
}

// NewTable creates a table with the given title and columns
func NewTable(title string, columns ...Column) *Table {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 80
	ti.TextStyle = styles.FilterStyle

	return &Table{
		title:       title,
		columns:     columns,
		filterInput: ti,
		focused:     true,
		emptyText:   "No items",
	}
}

// SetEmptyText sets the text shown when there are no rows
func (t *Table) SetEmptyText(s string) {
	t.emptyText = s
}

// SetRows replaces the rows, keeping the selection on the same key when
// it is still present
func (t *Table) SetRows(rows []Row) {
	selected := t.SelectedKey()
	t.rows = rows
	if selected != "" {
		for i, r := range rows {
			if r.Key == selected {
				t.cursor = i
				t.ensureVisible()
				return
			}
		}
	}
	if t.cursor >= len(rows) {
		t.cursor = max(len(rows)-1, 0)
	}
	t.ensureVisible()
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// SelectedKey returns the key of the selected row, or "" if empty
func (t *Table) SelectedKey() string {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return ""
	}
	return t.rows[t.cursor].Key
}

// SelectedRow returns the selected row
func (t *Table) SelectedRow() (Row, bool) {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return Row{}, false
	}
	return t.rows[t.cursor], true
}

// SetTitle sets the title line
func (t *Table) SetTitle(title string) {
	t.title = title
}

func (t *Table) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.recalcMaxVisible()
	t.ensureVisible()
}

func (t *Table) SetFocused(focused bool) {
	t.focused = focused
}

func (t *Table) IsFocused() bool {
	return t.focused
}

// Update handles navigation and filter typing
func (t *Table) Update(msg tea.Msg) tea.Cmd {
	if !t.focused {
		return nil
	}
	keyMsg, isKey := msg.(tea.KeyMsg)

	// Typing into the filter
	if t.IsFilterTyping() {
		if isKey {
			switch {
			case key.Matches(keyMsg, tableKeys.Escape):
				t.ClearFilter()
				return nil
			case key.Matches(keyMsg, tableKeys.Enter):
				t.filterInput.Blur()
				return nil
			case keyMsg.String() == "backspace" && t.filterInput.Value() == "":
				t.ClearFilter()
				return nil
			}
		}
		var cmd tea.Cmd
		t.filterInput, cmd = t.filterInput.Update(msg)
		t.cursor = 0
		t.offset = 0
		return cmd
	}

	if !isKey {
		return nil
	}

	if t.filterActive {
		switch {
		case key.Matches(keyMsg, tableKeys.Escape):
			t.ClearFilter()
			return nil
		case key.Matches(keyMsg, tableKeys.Filter):
			t.filterInput.Focus()
			return nil
		}
	}

	count := len(t.rows)
	if count == 0 {
		return nil
	}

	switch {
	case key.Matches(keyMsg, tableKeys.Down):
		if t.cursor < count-1 {
			t.cursor++
		}
	case key.Matches(keyMsg, tableKeys.Up):
		if t.cursor > 0 {
			t.cursor--
		}
	case key.Matches(keyMsg, tableKeys.Home):
		t.cursor = 0
	case key.Matches(keyMsg, tableKeys.End):
		t.cursor = count - 1
	case key.Matches(keyMsg, tableKeys.HalfDown):
		t.cursor = min(t.cursor+max(t.maxVisible/2, 1), count-1)
	case key.Matches(keyMsg, tableKeys.HalfUp):
		t.cursor = max(t.cursor-max(t.maxVisible/2, 1), 0)
	}
	t.ensureVisible()
	return nil
}

// ToggleFilter activates the filter input
func (t *Table) ToggleFilter() {
	t.filterActive = true
	t.filterInput.Focus()
	t.recalcMaxVisible()
}

// IsFiltering returns true if filter mode is active
func (t *Table) IsFiltering() bool {
	return t.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused
func (t *Table) IsFilterTyping() bool {
	return t.filterActive && t.filterInput.Focused()
}

// Query returns the current filter text
func (t *Table) Query() string {
	if !t.filterActive {
		return ""
	}
	return t.filterInput.Value()
}

// ClearFilter deactivates the filter
func (t *Table) ClearFilter() {
	t.filterActive = false
	t.filterInput.SetValue("")
	t.filterInput.Blur()
	t.recalcMaxVisible()
}

func (t *Table) recalcMaxVisible() {
	// title + header + scroll indicators
	t.maxVisible = t.height - BorderHeight - ScrollIndicatorLines - 2
	if t.filterActive {
		t.maxVisible--
	}
	if t.maxVisible < 1 {
		t.maxVisible = 1
	}
}

func (t *Table) ensureVisible() {
	if t.maxVisible <= 0 {
		return
	}
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+t.maxVisible {
		t.offset = t.cursor - t.maxVisible + 1
	}
	if t.offset > 0 && t.offset+t.maxVisible > len(t.rows) {
		t.offset = max(len(t.rows)-t.maxVisible, 0)
	}
}

// widths distributes the interior width across columns
func (t *Table) widths(total int) []int {
	out := make([]int, len(t.columns))
	gaps := len(t.columns) - 1
	left := total - gaps
	weights := 0
	for i, c := range t.columns {
		if c.Width > 0 {
			out[i] = c.Width
			left -= c.Width
		} else {
			weights += max(c.Weight, 1)
		}
	}
	if weights == 0 {
		return out
	}
	for i, c := range t.columns {
		if c.Width == 0 {
			out[i] = max(left*max(c.Weight, 1)/weights, 3)
		}
	}
	return out
}

func (t *Table) View() string {
	style := styles.InactiveBorder
	if t.focused {
		style = styles.ActiveBorder
	}
	frameW, frameH := style.GetFrameSize()

	return style.
		Width(max(t.width-frameW, 0)).
		Height(max(t.height-frameH, 0)).
		Render(t.renderContent())
}

func (t *Table) renderContent() string {
	innerWidth := max(t.width-BorderWidth, 10)
	widths := t.widths(innerWidth)

	titleLine := styles.AccentStyle.Render(styles.Truncate(t.title, innerWidth))

	var headers []string
	for i, c := range t.columns {
		headers = append(headers, styles.Pad(c.Title, widths[i]))
	}
	headerLine := styles.HeaderCellStyle.Render(strings.Join(headers, " "))

	count := len(t.rows)
	if count == 0 {
		empty := t.emptyText
		if t.filterActive && t.Query() != "" {
			empty = "No matches"
		}
		content := titleLine + "\n" + headerLine + "\n \n" + styles.DimStyle.Render(empty)
		if t.filterActive {
			content += "\n" + t.renderFilterBar(innerWidth)
		}
		return content
	}

	end := min(t.offset+t.maxVisible, count)
	lines := make([]string, 0, end-t.offset)
	for i := t.offset; i < end; i++ {
		lines = append(lines, t.renderRow(t.rows[i], widths, i == t.cursor && t.focused, innerWidth))
	}

	up := " "
	if t.offset > 0 {
		up = styles.DimStyle.Render("↑ more")
	}
	down := " "
	if end < count {
		down = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + headerLine + "\n" + up + "\n" + strings.Join(lines, "\n") + "\n" + down
	if t.filterActive {
		content += "\n" + t.renderFilterBar(innerWidth)
	}
	return content
}

func (t *Table) renderRow(r Row, widths []int, selected bool, width int) string {
	base := styles.NormalRowStyle
	switch r.Tone {
	case ToneDim:
		base = styles.DimStyle
	case ToneWarn:
		base = styles.ErrorStyle
	case ToneGood:
		base = styles.SuccessStyle
	}
	if selected {
		base = base.Background(styles.SlateLight)
	}

	cells := make([]string, len(widths))
	for i := range widths {
		var cell string
		if i < len(r.Cells) {
			cell = r.Cells[i]
		}
		cell = styles.Pad(styles.Truncate(cell, widths[i]), widths[i])
		if i == 0 && len(r.Highlight) > 0 {
			cells[i] = styles.Highlight(cell, r.Highlight, base)
		} else {
			cells[i] = base.Render(cell)
		}
	}
	line := strings.Join(cells, base.Render(" "))
	if pad := width - lipgloss.Width(line); pad > 0 {
		line += base.Render(strings.Repeat(" ", pad))
	}
	return line
}

func (t *Table) renderFilterBar(width int) string {
	prompt := styles.FilterPromptStyle.Render("/")
	t.filterInput.Width = max(width-2, 1)
	return prompt + " " + t.filterInput.View()
}
