package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"sst/internal/archive"
	"sst/internal/services"
)

type palette struct {
	header  *color.Color
	ok      *color.Color
	warn    *color.Color
	err     *color.Color
	info    *color.Color
	enabled bool
}

func newPalette(colorize bool) palette {
	p := palette{
		header:  color.New(color.FgBlue, color.Bold),
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed),
		info:    color.New(color.FgBlue),
		enabled: colorize,
	}
	for _, c := range []*color.Color{p.header, p.ok, p.warn, p.err, p.info} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s services.Severity) *color.Color {
	switch s {
	case services.SeverityError:
		return p.err
	case services.SeverityWarning:
		return p.warn
	default:
		return p.info
	}
}

func severityLabel(s services.Severity) string {
	switch s {
	case services.SeverityError:
		return "ERROR"
	case services.SeverityWarning:
		return "WARN"
	default:
		return "INFO"
	}
}

// renderReport writes the archive report: the root line, one line per entry
// with its severity, and a summary.
func renderReport(out io.Writer, report *archive.Report, colorize bool) {
	p := newPalette(colorize)
	fmt.Fprintln(out, p.header.Sprint(archive.ReportPrefix+report.Root()))

	entries := report.Entries()
	if len(entries) > 0 {
		fmt.Fprintln(out)
	}
	for _, e := range entries {
		label := fmt.Sprintf("%-5s", severityLabel(e.Severity))
		fmt.Fprintf(out, "  %s %s\n", p.severity(e.Severity).Sprint(label), e.Message)
	}

	errs := report.Count(services.SeverityError)
	warns := report.Count(services.SeverityWarning)
	fmt.Fprintln(out)
	switch {
	case errs > 0:
		fmt.Fprintln(out, p.err.Sprintf("Archive finished with %d error(s) and %d warning(s)", errs, warns))
	case warns > 0:
		fmt.Fprintln(out, p.warn.Sprintf("Archive finished with %d warning(s)", warns))
	default:
		fmt.Fprintln(out, p.ok.Sprint("Archive finished cleanly"))
	}
}

// progressPrinter shows archive progress on a single rewritten terminal line.
// It stays silent when out is not a terminal.
type progressPrinter struct {
	out     io.Writer
	enabled bool
	width   int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, enabled: shouldColorize(out)}
}

func (p *progressPrinter) update(line string) {
	if !p.enabled {
		return
	}
	line = strings.ReplaceAll(line, "\n", " ")
	pad := ""
	if n := p.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	p.width = len(line)
	fmt.Fprintf(p.out, "\r%s%s", line, pad)
}

func (p *progressPrinter) finish() {
	if !p.enabled || p.width == 0 {
		return
	}
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", p.width))
	p.width = 0
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
