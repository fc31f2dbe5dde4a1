package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sst/internal/archive"
	"sst/internal/logging"
	"sst/internal/protocol"
	"sst/internal/services"
	"sst/internal/session"
	"sst/internal/testsupport"
)

var jobStart = time.Date(2024, 3, 5, 10, 15, 0, 0, time.Local)

type harness struct {
	archiver *archive.Archiver
	progress []string
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{}
	h.archiver = archive.NewArchiver(cfg.Archive, logging.NewNop(), archive.Options{
		Progress: func(line string) { h.progress = append(h.progress, line) },
		Now:      func() time.Time { return jobStart },
	})
	return h
}

func (h *harness) run(t *testing.T, source string, record session.SessionRecord) *archive.Result {
	t.Helper()
	result, err := h.archiver.Run(context.Background(), source, record)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func functionalRecord(vols int) session.SessionRecord {
	r := session.New()
	r.Project = "ProjA"
	r.Subject = session.Identifier{Number: 1}
	r.Session = session.Identifier{Number: 1}
	r.Date = "2024-03-05"
	r.Measurements = []session.Measurement{
		{Number: 1, Type: session.Functional, Vols: vols, Name: "Run1"},
	}
	return r
}

func sessionDir(source string) string {
	return filepath.Join(source, "~Archive20240305101500", "ProjA", "sub-001", "ses-001")
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func entriesMentioning(r *archive.Report, needle string) []archive.Entry {
	var out []archive.Entry
	for _, e := range r.Entries() {
		if strings.Contains(e.Message, needle) {
			out = append(out, e)
		}
	}
	return out
}

func TestRunCopiesMatchingImages(t *testing.T) {
	source := filepath.Join(t.TempDir(), "sub01")
	written := testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 10)

	h := newHarness(t)
	result := h.run(t, source, functionalRecord(10))

	dicomDir := filepath.Join(sessionDir(source), "functional", "001-Run1", "DICOM")
	if diff := cmp.Diff(written, listNames(t, dicomDir)); diff != "" {
		t.Fatalf("DICOM folder mismatch (-want +got):\n%s", diff)
	}
	if got := entriesMentioning(result.Report, "measurement 1"); len(got) != 0 {
		t.Fatalf("expected no entries for measurement 1, got %+v", got)
	}
	if !result.Report.Clean() {
		t.Fatalf("expected clean report:\n%s", result.Report)
	}
	if !strings.HasPrefix(result.Report.String(), "Archived to: "+result.Root) {
		t.Fatalf("report prefix wrong:\n%s", result.Report)
	}
	if !filepath.IsAbs(result.Root) {
		t.Fatalf("root must be absolute: %s", result.Root)
	}
	if h.archiver.State() != archive.StateDone {
		t.Fatalf("state = %s, want done", h.archiver.State())
	}
	if last := h.progress[len(h.progress)-1]; last != "Done" {
		t.Fatalf("last progress line = %q", last)
	}
	copyLines := 0
	for _, line := range h.progress {
		if strings.Contains(line, "copying image ") {
			copyLines++
		}
	}
	if copyLines != 10 {
		t.Fatalf("expected one progress line per image, got %d", copyLines)
	}
}

func TestRunSameSecondGetsFreshRoot(t *testing.T) {
	source := filepath.Join(t.TempDir(), "sub01")
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 3)

	h := newHarness(t)
	first := h.run(t, source, functionalRecord(3))
	second := h.run(t, source, functionalRecord(3))

	if first.Root == second.Root {
		t.Fatalf("jobs share root %s", first.Root)
	}
	if want := first.Root + "-2"; second.Root != want {
		t.Fatalf("second root = %s, want %s", second.Root, want)
	}
	if !second.Report.Clean() {
		t.Fatalf("expected clean second report:\n%s", second.Report)
	}
	for _, result := range []*archive.Result{first, second} {
		dicomDir := filepath.Join(result.SessionDir, "functional", "001-Run1", "DICOM")
		if got := len(listNames(t, dicomDir)); got != 3 {
			t.Fatalf("%s: expected 3 images, got %d", dicomDir, got)
		}
	}

	third := h.run(t, source, functionalRecord(3))
	if want := first.Root + "-3"; third.Root != want {
		t.Fatalf("third root = %s, want %s", third.Root, want)
	}
}

func TestRunCountMismatchSkipsCopy(t *testing.T) {
	source := filepath.Join(t.TempDir(), "sub01")
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 8)

	result := newHarness(t).run(t, source, functionalRecord(10))

	measurementEntries := entriesMentioning(result.Report, "measurement 1")
	if len(measurementEntries) != 1 {
		t.Fatalf("expected exactly one entry for measurement 1, got %+v", measurementEntries)
	}
	if !strings.Contains(measurementEntries[0].Message, "count mismatch") {
		t.Fatalf("unexpected entry %q", measurementEntries[0].Message)
	}
	if measurementEntries[0].Severity != services.SeverityWarning {
		t.Fatalf("count mismatch must be a warning, got %s", measurementEntries[0].Severity)
	}
	if _, err := os.Stat(filepath.Join(sessionDir(source), "functional", "001-Run1", "DICOM")); !os.IsNotExist(err) {
		t.Fatalf("no DICOM folder expected, stat err = %v", err)
	}
	if _, err := os.Stat(result.ProtocolPath); err != nil {
		t.Fatalf("protocol must still be written: %v", err)
	}
}

func TestRunNoImagesFound(t *testing.T) {
	source := t.TempDir()
	result := newHarness(t).run(t, source, functionalRecord(10))

	got := entriesMentioning(result.Report, "measurement 1")
	if len(got) != 1 || !strings.Contains(got[0].Message, "no images found") {
		t.Fatalf("expected one no-images entry, got %+v", got)
	}
}

func TestRunReportsEveryValidationFailure(t *testing.T) {
	source := t.TempDir()
	record := functionalRecord(10)
	record.Measurements = append(record.Measurements, session.Measurement{Number: 2, Type: session.Misc})

	result := newHarness(t).run(t, source, record)

	got := entriesMentioning(result.Report, "measurement 2")
	if len(got) != 3 {
		t.Fatalf("expected name, vols and no-images entries, got %+v", got)
	}
}

func TestRunReportsUnknownTypeAndContinues(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 2)
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "2-rest"), "002", 2, 2)
	record := functionalRecord(2)
	record.Measurements = append(record.Measurements, session.Measurement{Number: 2, Type: "resting", Vols: 2, Name: "Rest"})

	result := newHarness(t).run(t, source, record)

	got := entriesMentioning(result.Report, "measurement 2")
	if len(got) != 1 || !strings.Contains(got[0].Message, `'Type' "resting" not recognised`) {
		t.Fatalf("expected one unknown-type entry, got %+v", got)
	}
	if got[0].Severity != services.SeverityWarning {
		t.Fatalf("unknown type must be a warning, got %s", got[0].Severity)
	}
	if n := len(listNames(t, filepath.Join(sessionDir(source), "functional", "001-Run1", "DICOM"))); n != 2 {
		t.Fatalf("measurement 1 must still be archived, got %d images", n)
	}
}

func TestRunUnresolvedLogfilePatternContinues(t *testing.T) {
	source := filepath.Join(t.TempDir(), "sub01")
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 10)
	testsupport.WriteText(t, filepath.Join(source, "stim.txt"), "stimulus order")
	testsupport.WriteText(t, filepath.Join(source, "notes.txt"), "operator notes")

	record := functionalRecord(10)
	record.Measurements[0].Logfiles = "*.log\nstim.txt"

	result := newHarness(t).run(t, source, record)

	notFound := entriesMentioning(result.Report, "'*.log' not found")
	if len(notFound) != 1 || notFound[0].Severity != services.SeverityWarning {
		t.Fatalf("expected one not-found warning, got %+v", notFound)
	}
	if got := result.Record.Measurements[0].Logfiles; got != "*.log\nstim.txt" {
		t.Fatalf("unresolved line must stay, got %q", got)
	}

	measurementDir := filepath.Join(sessionDir(source), "functional", "001-Run1")
	if _, err := os.Stat(filepath.Join(measurementDir, "stim.txt")); err != nil {
		t.Fatalf("logfile not copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sessionDir(source), "notes.txt")); err != nil {
		t.Fatalf("general document not swept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sessionDir(source), "stim.txt")); !os.IsNotExist(err) {
		t.Fatalf("claimed logfile must not be swept, stat err = %v", err)
	}
}

func TestRunResolvesWildcardLogfilesIntoRecord(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 2)
	testsupport.WriteText(t, filepath.Join(source, "run1_a.log"), "a")
	testsupport.WriteText(t, filepath.Join(source, "run1_b.log"), "b")

	record := functionalRecord(2)
	record.Measurements[0].Logfiles = "run1_*.log"

	result := newHarness(t).run(t, source, record)
	if got := result.Record.Measurements[0].Logfiles; got != "run1_a.log\nrun1_b.log" {
		t.Fatalf("resolved logfiles = %q", got)
	}
	if record.Measurements[0].Logfiles != "run1_*.log" {
		t.Fatal("the caller's record must not be modified")
	}

	saved, err := protocol.ReadFile(result.ProtocolPath)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Measurements[0].Logfiles != "run1_a.log\nrun1_b.log" {
		t.Fatalf("protocol must carry the resolved logfiles, got %q", saved.Measurements[0].Logfiles)
	}
}

func TestRunCopiesLogfilesOfSkippedMeasurement(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteText(t, filepath.Join(source, "run1.log"), "log")

	record := functionalRecord(10)
	record.Measurements[0].Logfiles = "run1.log"

	newHarness(t).run(t, source, record)
	if _, err := os.Stat(filepath.Join(sessionDir(source), "functional", "001-Run1", "run1.log")); err != nil {
		t.Fatalf("logfile of skipped measurement not copied: %v", err)
	}
}

func TestRunSkipsAnatomicalLogfiles(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-anat"), "001", 1, 3)
	testsupport.WriteText(t, filepath.Join(source, "anat.log"), "log")

	record := functionalRecord(3)
	record.Measurements[0] = session.Measurement{Number: 1, Type: session.Anatomical, Vols: 3, Name: "T1", Logfiles: "anat.log"}

	result := newHarness(t).run(t, source, record)
	if _, err := os.Stat(filepath.Join(sessionDir(source), "anatomical", "001-T1", "anat.log")); !os.IsNotExist(err) {
		t.Fatalf("anatomical logfiles must not be copied, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(sessionDir(source), "BV")); !os.IsNotExist(err) {
		t.Fatalf("plain anatomical measurement gets no BV links, stat err = %v", err)
	}
	if !result.Report.Clean() {
		t.Fatalf("unexpected report:\n%s", result.Report)
	}
}

func TestRunBuildsBrainVoyagerLinks(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 3)
	testsupport.WriteLegacySeries(t, filepath.Join(source, "2-anat"), "SUBJ", 2, 2)

	record := functionalRecord(3)
	record.Measurements = append(record.Measurements,
		session.Measurement{Number: 2, Type: session.Anatomical, Vols: 2, Name: "Anatomy"})

	result := newHarness(t).run(t, source, record)
	if !result.Report.Clean() {
		t.Fatalf("unexpected report:\n%s", result.Report)
	}

	bvDir := filepath.Join(sessionDir(source), "BV")
	want := []string{
		"001-0001-0001-00001.dcm",
		"001-0001-0001-00002.dcm",
		"001-0001-0001-00003.dcm",
		"SUBJ-0002-0001-00001.dcm",
		"SUBJ-0002-0001-00002.dcm",
	}
	if diff := cmp.Diff(want, listNames(t, bvDir)); diff != "" {
		t.Fatalf("BV folder mismatch (-want +got):\n%s", diff)
	}

	original, err := os.Stat(filepath.Join(sessionDir(source), "functional", "001-Run1", "DICOM", "001_1_001.dcm"))
	if err != nil {
		t.Fatal(err)
	}
	link, err := os.Stat(filepath.Join(bvDir, "001-0001-0001-00001.dcm"))
	if err != nil {
		t.Fatal(err)
	}
	if !os.SameFile(original, link) {
		t.Fatal("BV entry must be a hard link to the archived image")
	}
}

func TestRunWritesReferenceCopiesWithoutHardlinks(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 2)

	newHarness(t, testsupport.WithoutHardlinks()).run(t, source, functionalRecord(2))

	bvDir := filepath.Join(sessionDir(source), "BV")
	marker, err := os.ReadFile(filepath.Join(bvDir, archive.ReferenceCopiesFile))
	if err != nil {
		t.Fatalf("marker missing: %v", err)
	}
	for _, name := range []string{"001-0001-0001-00001.dcm", "001-0001-0001-00002.dcm"} {
		if !strings.Contains(string(marker), name+"\n") {
			t.Fatalf("marker does not list %s:\n%s", name, marker)
		}
	}
	original, _ := os.Stat(filepath.Join(sessionDir(source), "functional", "001-Run1", "DICOM", "001_1_001.dcm"))
	copied, _ := os.Stat(filepath.Join(bvDir, "001-0001-0001-00001.dcm"))
	if os.SameFile(original, copied) {
		t.Fatal("expected a reference copy, not a link")
	}
}

func TestRunIntegratesTurboBrainVoyager(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "3-func"), "001", 3, 4)
	testsupport.WriteTBVSettings(t, filepath.Join(source, "TBVFiles", "run3.tbv"), 3)
	testsupport.WriteText(t, filepath.Join(source, "TBVFiles", "broken.tbv"), "FileVersion 7\n")
	testsupport.WriteText(t, filepath.Join(source, "TBVFiles", "roi", "mask.voi"), "voi")

	record := functionalRecord(4)
	record.Measurements[0].Number = 3

	result := newHarness(t).run(t, source, record)

	tbvDir := filepath.Join(sessionDir(source), "TBV")
	if _, err := os.Stat(filepath.Join(tbvDir, "TBVFiles", "roi", "mask.voi")); err != nil {
		t.Fatalf("TBV folder not copied: %v", err)
	}
	want := []string{
		"001_000003_000001.dcm",
		"001_000003_000002.dcm",
		"001_000003_000003.dcm",
		"001_000003_000004.dcm",
		"TBVFiles",
	}
	if diff := cmp.Diff(want, listNames(t, tbvDir)); diff != "" {
		t.Fatalf("TBV folder mismatch (-want +got):\n%s", diff)
	}

	broken := entriesMentioning(result.Report, "broken.tbv")
	if len(broken) != 1 || broken[0].Severity != services.SeverityWarning {
		t.Fatalf("expected one warning for broken.tbv, got %+v", broken)
	}
	if got := len(result.Report.Entries()); got != 2 {
		t.Fatalf("expected the broken.tbv warning and the documents note, got:\n%s", result.Report)
	}
}

func TestRunTurboBrainVoyagerNeedsFunctionalMeasurement(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 2)
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "2-misc"), "002", 2, 2)
	testsupport.WriteTBVSettings(t, filepath.Join(source, "TBVFiles", "misc.tbv"), 2)
	testsupport.WriteTBVSettings(t, filepath.Join(source, "TBVFiles", "absent.tbv"), 9)

	record := functionalRecord(2)
	record.Measurements = append(record.Measurements, session.Measurement{Number: 2, Type: session.Misc, Vols: 2, Name: "Rest"})

	result := newHarness(t).run(t, source, record)

	for _, file := range []string{"misc.tbv", "absent.tbv"} {
		got := entriesMentioning(result.Report, file)
		if len(got) != 1 || !strings.Contains(got[0].Message, "no functional measurement") {
			t.Fatalf("expected one missing-run warning for %s, got %+v", file, got)
		}
		if got[0].Severity != services.SeverityWarning {
			t.Fatalf("%s: expected warning, got %s", file, got[0].Severity)
		}
	}
	if diff := cmp.Diff([]string{"TBVFiles"}, listNames(t, filepath.Join(sessionDir(source), "TBV"))); diff != "" {
		t.Fatalf("TBV folder mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCopyFailureRemovesDICOMFolder(t *testing.T) {
	source := t.TempDir()
	dir := filepath.Join(source, "1-func")
	testsupport.WriteDICOMSeries(t, dir, "001", 1, 2)
	if err := os.Symlink(filepath.Join(source, "missing"), filepath.Join(dir, "001_1_003.dcm")); err != nil {
		t.Fatal(err)
	}

	result := newHarness(t).run(t, source, functionalRecord(3))

	if _, err := os.Stat(filepath.Join(sessionDir(source), "functional", "001-Run1", "DICOM")); !os.IsNotExist(err) {
		t.Fatalf("partial DICOM folder must be removed, stat err = %v", err)
	}
	got := entriesMentioning(result.Report, "measurement 1")
	if len(got) != 1 || got[0].Severity != services.SeverityError {
		t.Fatalf("expected one copy error, got %+v", got)
	}
}

func TestRunCopiesSessionFiles(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteText(t, filepath.Join(source, "forms", "consent.pdf"), "pdf")

	record := functionalRecord(0)
	record.Measurements = nil
	record.Files = "forms/*.pdf\nmissing.odt"

	result := newHarness(t).run(t, source, record)

	if _, err := os.Stat(filepath.Join(sessionDir(source), "consent.pdf")); err != nil {
		t.Fatalf("session file not copied: %v", err)
	}
	if result.Record.Files != "consent.pdf\nmissing.odt" {
		t.Fatalf("resolved files = %q", result.Record.Files)
	}
	if got := entriesMentioning(result.Report, "'missing.odt' not found"); len(got) != 1 {
		t.Fatalf("expected missing file warning, got %+v", result.Report.Entries())
	}
	if got := entriesMentioning(result.Report, "no general documents found"); len(got) != 1 || got[0].Severity != services.SeverityInfo {
		t.Fatalf("expected informational sweep note, got %+v", got)
	}
}

func TestRunWritesProtocol(t *testing.T) {
	source := t.TempDir()
	testsupport.WriteDICOMSeries(t, filepath.Join(source, "1-func"), "001", 1, 2)
	record := functionalRecord(2)
	record.Notes = "participant moved\nin run 1"

	result := newHarness(t).run(t, source, record)

	want := filepath.Join(sessionDir(source), "ScanProtocol_ProjA_sub-001_ses-001_20240305.txt")
	if result.ProtocolPath != want {
		t.Fatalf("protocol path = %s, want %s", result.ProtocolPath, want)
	}
	saved, err := protocol.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(result.Record, saved); diff != "" {
		t.Fatalf("saved protocol mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRejectsEmptySource(t *testing.T) {
	h := newHarness(t)
	_, err := h.archiver.Run(context.Background(), "  ", functionalRecord(1))
	if !errors.Is(err, archive.ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
	if h.archiver.State() != archive.StateIdle {
		t.Fatalf("state = %s, want idle", h.archiver.State())
	}
	if len(h.progress) != 0 {
		t.Fatal("no progress expected before the job starts")
	}
}

func TestRunRejectsFileSource(t *testing.T) {
	file := filepath.Join(t.TempDir(), "protocol.txt")
	testsupport.WriteText(t, file, "x")

	_, err := newHarness(t).archiver.Run(context.Background(), file, functionalRecord(1))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
