package protocol

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sst/internal/session"
)

type blockKind int

const (
	blockNone blockKind = iota
	blockNotes
	blockFiles
	blockChecklist
	blockLogfiles
	blockComments
)

// ParseError reports a malformed protocol line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("protocol line %d: %s", e.Line, e.Msg)
}

type reader struct {
	record  session.SessionRecord
	section string
	block   blockKind
	lines   []string
	current *session.Measurement
}

// Read parses a protocol file into a record.
func Read(r io.Reader) (session.SessionRecord, error) {
	rd := &reader{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := rd.consume(strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return session.SessionRecord{}, &ParseError{Line: lineNo, Msg: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return session.SessionRecord{}, fmt.Errorf("read protocol: %w", err)
	}
	rd.flush()
	rd.flushMeasurement()
	return rd.record, nil
}

// ReadFile parses the protocol file at path.
func ReadFile(path string) (session.SessionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return session.SessionRecord{}, fmt.Errorf("open protocol: %w", err)
	}
	defer f.Close()
	record, err := Read(f)
	if err != nil {
		return session.SessionRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	return record, nil
}

// Unmarshal parses protocol text.
func Unmarshal(text string) (session.SessionRecord, error) {
	return Read(strings.NewReader(text))
}

func (rd *reader) consume(line string) error {
	if strings.HasPrefix(line, continuation) {
		if rd.block != blockNone {
			rd.lines = append(rd.lines, strings.TrimRight(line[LabelWidth:], " \t"))
		}
		return nil
	}
	if strings.TrimSpace(line) == "" {
		rd.flush()
		return nil
	}
	rd.flush()

	switch {
	case line == sectionGeneral || line == sectionDocuments || line == sectionMeasurements:
		rd.section = line
		return nil
	case strings.HasPrefix(line, "==="), strings.HasPrefix(line, "---"):
		return nil
	case rd.section == sectionMeasurements && strings.HasPrefix(line, "No."):
		rd.flushMeasurement()
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "No.")))
		if err != nil {
			return fmt.Errorf("invalid measurement number %q", line)
		}
		rd.current = &session.Measurement{Number: n}
		return nil
	}

	label, value := splitField(line)
	if rd.section == sectionMeasurements {
		return rd.measurementField(label, value)
	}
	return rd.generalField(label, value)
}

func (rd *reader) generalField(label, raw string) error {
	value := strings.TrimSpace(raw)
	var err error
	switch label {
	case labelProject:
		rd.record.Project = value
	case labelSubject:
		rd.record.Subject, err = parseIdentifier(value)
	case labelSession:
		rd.record.Session, err = parseIdentifier(value)
	case labelDate:
		rd.record.Date = value
	case labelBooked:
		rd.record.BookedTime = value
	case labelActual:
		rd.record.ActualTime = value
	case labelUser:
		rd.record.CertifiedUser = value
	case labelBackup:
		rd.record.BackupPerson = value
	case labelNotes:
		rd.open(blockNotes, raw)
	case labelFiles:
		rd.open(blockFiles, value)
	case labelCheck:
		rd.open(blockChecklist, value)
	default:
		return fmt.Errorf("unknown field %q", label)
	}
	return err
}

func (rd *reader) measurementField(label, raw string) error {
	if rd.current == nil {
		return fmt.Errorf("field %q outside a measurement block", label)
	}
	value := strings.TrimSpace(raw)
	switch label {
	case labelType:
		if value == "" {
			rd.current.Type = ""
			return nil
		}
		t, err := session.ParseMeasurementType(value)
		if err != nil {
			// Kept verbatim; the archiver reports the measurement.
			t = session.MeasurementType(value)
		}
		rd.current.Type = t
	case labelVols:
		// An unreadable count is treated as unset.
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			n = 0
		}
		rd.current.Vols = n
	case labelName:
		rd.current.Name = value
	case labelLogfiles:
		rd.open(blockLogfiles, value)
	case labelComments:
		rd.open(blockComments, raw)
	default:
		return fmt.Errorf("unknown measurement field %q", label)
	}
	return nil
}

func (rd *reader) open(kind blockKind, first string) {
	rd.block = kind
	rd.lines = []string{first}
}

func (rd *reader) flush() {
	if rd.block == blockNone {
		return
	}
	lines := rd.lines
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	text := strings.Join(lines, "\n")
	switch rd.block {
	case blockNotes:
		rd.record.Notes = text
	case blockFiles:
		rd.record.Files = strings.Join(session.SplitPatterns(text), "\n")
	case blockChecklist:
		for _, entry := range session.SplitPatterns(text) {
			rd.record.Checklist = append(rd.record.Checklist, parseCheck(entry))
		}
	case blockLogfiles:
		if rd.current != nil {
			rd.current.Logfiles = strings.Join(session.SplitPatterns(text), "\n")
		}
	case blockComments:
		if rd.current != nil {
			rd.current.Comments = text
		}
	}
	rd.block = blockNone
	rd.lines = nil
}

func (rd *reader) flushMeasurement() {
	if rd.current == nil {
		return
	}
	rd.record.Measurements = append(rd.record.Measurements, *rd.current)
	rd.current = nil
}

// splitField separates the label column from the value column. Values start
// at the fixed column; labels longer than the column end at their colon.
func splitField(line string) (string, string) {
	if len(line) <= LabelWidth {
		return strings.TrimSpace(line), ""
	}
	label := strings.TrimSpace(line[:LabelWidth])
	value := line[LabelWidth:]
	if idx := strings.Index(line, ":"); idx >= LabelWidth {
		label = line[:idx+1]
		value = line[idx+1:]
	}
	return label, strings.TrimRight(value, " \t")
}

func parseIdentifier(value string) (session.Identifier, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return session.Identifier{}, nil
	}
	numberText, typeText, _ := strings.Cut(value, " ")
	n, err := strconv.Atoi(numberText)
	if err != nil {
		return session.Identifier{}, fmt.Errorf("invalid number %q", numberText)
	}
	return session.Identifier{Number: n, Type: strings.TrimSpace(typeText)}, nil
}

func parseCheck(entry string) session.ChecklistItem {
	if len(entry) >= 3 && entry[0] == '[' && entry[2] == ']' {
		return session.ChecklistItem{
			Label: strings.TrimSpace(entry[3:]),
			Done:  entry[1] == 'x' || entry[1] == 'X',
		}
	}
	return session.ChecklistItem{Label: entry}
}
