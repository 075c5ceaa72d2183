package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sofmeright/slipway/src/scan"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Printer formats and writes scan findings.
type Printer struct {
	Writer io.Writer
	Color  bool
}

// NewPrinter creates a printer writing to stdout with color auto-detection.
func NewPrinter() *Printer {
	return &Printer{
		Writer: os.Stdout,
		Color:  isTerminal(),
	}
}

// Print outputs findings grouped by file, returns true if any exist.
func (p *Printer) Print(findings []scan.Finding) bool {
	if len(findings) == 0 {
		return false
	}

	grouped := make(map[string][]scan.Finding)
	for _, f := range findings {
		grouped[f.File] = append(grouped[f.File], f)
	}

	files := make([]string, 0, len(grouped))
	for f := range grouped {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, file := range files {
		ff := grouped[file]
		sort.Slice(ff, func(i, j int) bool {
			return ff[i].Line < ff[j].Line
		})

		fmt.Fprintf(p.Writer, "\n%s\n", p.colorize(file, colorBold))

		for _, f := range ff {
			fmt.Fprintf(p.Writer, "  %s %s %s %s\n",
				p.colorize(fmt.Sprintf("%d", f.Line), colorGray),
				p.colorize("LEAK", colorRed),
				p.colorize(f.RuleID, colorCyan),
				f.Message,
			)
		}
	}

	return true
}

// Summary prints a final summary line.
func (p *Printer) Summary(findings, filesScanned int) {
	fmt.Fprintf(p.Writer, "\n%s\n", FindingsSummaryLine(findings, filesScanned, p.Color))
}

// FindingsSummaryLine returns a one-line findings summary, optionally colored.
func FindingsSummaryLine(findings, filesScanned int, color bool) string {
	if findings == 0 {
		return fmt.Sprintf("no findings in %d files", filesScanned)
	}
	s := fmt.Sprintf("%d finding(s)", findings)
	if color {
		s = colorRed + s + colorReset
	}
	return fmt.Sprintf("%s in %d files", s, filesScanned)
}

func (p *Printer) colorize(text, color string) string {
	if !p.Color {
		return text
	}
	return color + text + colorReset
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

// SectionFindings renders findings grouped by file inside a section.
// Files are sorted lexicographically; findings within each file by line.
func SectionFindings(sec *Section, findings []scan.Finding, color bool) {
	if len(findings) == 0 {
		return
	}

	byFile := map[string][]scan.Finding{}
	for _, f := range findings {
		byFile[f.File] = append(byFile[f.File], f)
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	sec.Row("")

	for _, file := range files {
		ff := byFile[file]
		sort.Slice(ff, func(i, j int) bool {
			a, b := ff[i], ff[j]
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.RuleID < b.RuleID
		})

		if color {
			sec.Row("%s", colorBold+file+colorReset)
		} else {
			sec.Row("%s", file)
		}

		for _, f := range ff {
			sec.Row("  %-8d %-20s %s", f.Line, f.RuleID, f.Message)
		}

		sec.Row("")
	}
}

// RowStatus writes a row with label, detail, and a status icon.
func RowStatus(sec *Section, label, detail, status string, color bool) {
	icon := StatusIcon(status, color)
	if detail != "" {
		sec.Row("%s - %s %s", label, detail, icon)
	} else {
		sec.Row("%s %s", label, icon)
	}
}
