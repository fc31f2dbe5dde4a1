package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sst/internal/session"
)

// LabelWidth is the width of the label column.
const LabelWidth = 24

const (
	sectionGeneral      = "General Information"
	sectionDocuments    = "Documents"
	sectionMeasurements = "Measurements"
)

// Field labels. The general labels match the historical protocol files.
const (
	labelProject  = "Project:"
	labelSubject  = "Subject:"
	labelSession  = "Session:"
	labelDate     = "Date:"
	labelBooked   = "Time A:"
	labelActual   = "Time B:"
	labelUser     = "User 1:"
	labelBackup   = "User 2:"
	labelNotes    = "Notes:"
	labelFiles    = "Files:"
	labelCheck    = "Checklist:"
	labelType     = "Type:"
	labelVols     = "Vols:"
	labelName     = "Name:"
	labelLogfiles = "Logfiles:"
	labelComments = "Comments:"
)

var continuation = strings.Repeat(" ", LabelWidth)

// Write renders the record in protocol format.
func Write(w io.Writer, r session.SessionRecord) error {
	bw := bufio.NewWriter(w)
	p := &printer{w: bw}

	p.section(sectionGeneral)
	p.field(labelProject, r.Project)
	p.field(labelSubject, identifierValue(r.Subject))
	p.field(labelSession, identifierValue(r.Session))
	p.field(labelDate, r.Date)
	p.field(labelBooked, r.BookedTime)
	p.field(labelActual, r.ActualTime)
	p.field(labelUser, r.CertifiedUser)
	p.field(labelBackup, r.BackupPerson)
	p.blank()
	p.multi(labelNotes, textLines(r.Notes))
	p.blank()
	p.blank()

	p.section(sectionDocuments)
	p.multi(labelFiles, session.SplitPatterns(r.Files))
	p.blank()
	checks := make([]string, 0, len(r.Checklist))
	for _, item := range r.Checklist {
		mark := "[ ]"
		if item.Done {
			mark = "[x]"
		}
		checks = append(checks, mark+" "+item.Label)
	}
	p.multi(labelCheck, checks)
	p.blank()
	p.blank()

	p.section(sectionMeasurements)
	for _, m := range r.Measurements {
		p.line(fmt.Sprintf("No. %d", m.Number))
		p.line("-----")
		p.blank()
		p.field(labelType, string(m.Type))
		vols := ""
		if m.Vols > 0 {
			vols = strconv.Itoa(m.Vols)
		}
		p.field(labelVols, vols)
		p.field(labelName, m.Name)
		p.multi(labelLogfiles, session.SplitPatterns(m.Logfiles))
		p.blank()
		p.multi(labelComments, textLines(m.Comments))
		p.blank()
	}

	if p.err != nil {
		return p.err
	}
	return bw.Flush()
}

// WriteFile renders the record into path, replacing any existing file.
func WriteFile(path string, r session.SessionRecord) error {
	var buf bytes.Buffer
	if err := Write(&buf, r); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write protocol: %w", err)
	}
	return nil
}

// Marshal renders the record into a string.
func Marshal(r session.SessionRecord) string {
	var sb strings.Builder
	_ = Write(&sb, r)
	return sb.String()
}

type printer struct {
	w   *bufio.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = p.w.WriteString(s + "\n")
}

func (p *printer) blank() { p.line("") }

func (p *printer) section(title string) {
	p.line(title)
	p.line(strings.Repeat("=", len(title)))
	p.blank()
}

func (p *printer) field(label, value string) {
	p.line(strings.TrimRight(pad(label)+strings.TrimSpace(value), " "))
}

// multi writes the first value next to the label and every further value on
// its own continuation line. Continuation lines keep the full label column
// even when the value is empty so blank lines inside a block survive.
func (p *printer) multi(label string, values []string) {
	if len(values) == 0 {
		p.line(label)
		return
	}
	for i, value := range values {
		if i == 0 {
			p.line(strings.TrimRight(pad(label)+value, " "))
			continue
		}
		p.line(continuation + value)
	}
}

func pad(label string) string {
	if len(label) >= LabelWidth {
		return label + " "
	}
	return label + strings.Repeat(" ", LabelWidth-len(label))
}

func identifierValue(id session.Identifier) string {
	value := fmt.Sprintf("%03d", id.Number)
	if t := strings.TrimSpace(id.Type); t != "" {
		value += " " + t
	}
	return value
}

// textLines splits free text into right-trimmed lines without trailing blanks.
func textLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
