package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
)

// Format selects the table syntax.
type Format int

const (
	// FormatPlain prints aligned columns for a terminal.
	FormatPlain Format = iota
	// FormatMediaWiki prints wikitext tables ready to paste on-wiki.
	FormatMediaWiki
)

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "plain", "simple":
		return FormatPlain, nil
	case "mediawiki", "wiki":
		return FormatMediaWiki, nil
	}
	return FormatPlain, perrors.InvalidInput("unknown table format %q", name)
}

type table struct {
	headers []string
	// numeric marks right-aligned columns.
	numeric []bool
	rows    [][]string
}

// Render writes one table per role to w. The whole report is rendered before
// anything is written so a failure never leaves half a table behind. Titles
// are bold only when w is a terminal.
func Render(w io.Writer, r *Report, format Format) error {
	var buf bytes.Buffer
	title := color.New(color.Bold)
	if !isTerminal(w) {
		title.DisableColor()
	}

	for _, rr := range r.Roles {
		t := buildTable(r, rr)
		switch format {
		case FormatMediaWiki:
			fmt.Fprintf(&buf, "%s inactivity report\n", rr.Role.Group)
			writeMediaWiki(&buf, t)
		default:
			title.Fprintf(&buf, "%s inactivity report", rr.Role.Group)
			buf.WriteByte('\n')
			writePlain(&buf, t)
		}
		buf.WriteByte('\n')
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func buildTable(r *Report, rr RoleReport) table {
	t := table{
		headers: []string{"User", fmt.Sprintf("<%dd", r.CutoffDays), "Last action", "Exemption"},
		numeric: []bool{false, true, false, false},
	}
	for _, rec := range rr.Inactive {
		t.rows = append(t.rows, []string{
			rec.User,
			strconv.Itoa(rec.Count),
			lastAction(rec.Recent, r.GeneratedAt),
			rec.Exemption,
		})
	}
	return t
}

func lastAction(recent []time.Time, now time.Time) string {
	if len(recent) == 0 {
		return "None"
	}
	return humanize.RelTime(recent[0], now, "ago", "from now")
}

// writePlain lays the table out in the "simple" style: a header row, a rule
// of dashes under each column, and two spaces between columns.
func writePlain(buf *bytes.Buffer, t table) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if t.numeric[i] {
				parts[i] = runewidth.FillLeft(cell, widths[i])
			} else {
				parts[i] = runewidth.FillRight(cell, widths[i])
			}
		}
		buf.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		buf.WriteByte('\n')
	}

	line(t.headers)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	line(rule)
	for _, row := range t.rows {
		line(row)
	}
}

func writeMediaWiki(buf *bytes.Buffer, t table) {
	buf.WriteString("{| class=\"wikitable sortable\"\n")
	headers := make([]string, len(t.headers))
	for i, h := range t.headers {
		headers[i] = wikiCell(h, t.numeric[i])
	}
	buf.WriteString("! " + strings.Join(headers, " !! ") + "\n")
	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = wikiCell(c, t.numeric[i])
		}
		buf.WriteString("|-\n")
		buf.WriteString(strings.TrimRight("| "+strings.Join(cells, " || "), " ") + "\n")
	}
	buf.WriteString("|}\n")
}

var wikiEscaper = strings.NewReplacer("|", "&#124;", "<", "&lt;", ">", "&gt;")

func wikiCell(s string, numeric bool) string {
	s = wikiEscaper.Replace(s)
	if numeric {
		return `style="text-align: right;" | ` + s
	}
	return s
}
