package protocol

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sst/internal/session"
)

func fullRecord() session.SessionRecord {
	return session.SessionRecord{
		Project:       "ProjA",
		Subject:       session.Identifier{Number: 7, Type: "Group1"},
		Session:       session.Identifier{Number: 2},
		Date:          "2019-03-21",
		BookedTime:    "10:00-11:00",
		ActualTime:    "10:05-10:58",
		CertifiedUser: "User1",
		BackupPerson:  "User2",
		Notes:         "Subject details\n---------------\n\n  Age: 31",
		Files:         "*.txt\nconsent.pdf",
		Checklist: []session.ChecklistItem{
			{Label: "MR Safety Screening Form", Done: true},
			{Label: "Participation Informed Consent Form"},
		},
		Measurements: []session.Measurement{
			{Number: 1, Type: session.Anatomical, Vols: 192, Name: "Anatomy"},
			{
				Number:   3,
				Type:     session.Functional,
				Vols:     300,
				Name:     "Run1",
				Logfiles: "run1.log\nstim_*.prt",
				Comments: "Answer 1: yes\n\nmoved at the end",
			},
			{Number: 4, Type: session.Misc, Name: "Run1incomplete"},
		},
	}
}

func TestWriteLayout(t *testing.T) {
	text := Marshal(fullRecord())
	lines := strings.Split(text, "\n")

	want := []string{
		"General Information",
		"===================",
		"",
		"Project:                ProjA",
		"Subject:                007 Group1",
		"Session:                002",
		"Date:                   2019-03-21",
	}
	if diff := cmp.Diff(want, lines[:len(want)]); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	for _, fragment := range []string{
		"Notes:                  Subject details\n                        ---------------\n                        \n                          Age: 31\n",
		"Files:                  *.txt\n                        consent.pdf\n",
		"Checklist:              [x] MR Safety Screening Form\n                        [ ] Participation Informed Consent Form\n",
		"No. 3\n-----\n\nType:                   functional\nVols:                   300\nName:                   Run1\nLogfiles:               run1.log\n                        stim_*.prt\n",
		"No. 4\n-----\n\nType:                   misc\nVols:\nName:                   Run1incomplete\nLogfiles:\n\nComments:\n",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected fragment %q in:\n%s", fragment, text)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	record := fullRecord()
	got, err := Unmarshal(Marshal(record))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(record, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripFile(t *testing.T) {
	record := fullRecord()
	path := filepath.Join(t.TempDir(), record.ProtocolFilename()+".txt")
	if err := WriteFile(path, record); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(record, got); diff != "" {
		t.Fatalf("file round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadEmptyRecord(t *testing.T) {
	got, err := Unmarshal(Marshal(session.SessionRecord{}))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(session.SessionRecord{}, got); diff != "" {
		t.Fatalf("empty record mismatch (-want +got):\n%s", diff)
	}
}

func TestReadToleratesMisalignedValues(t *testing.T) {
	text := "General Information\n===================\n\nProject:                  ProjB  \nSubject:                012\n\nMeasurements\n============\n\nNo. 2\n-----\n\nType:                   Functional\nVols:                   10\n"
	got, err := Unmarshal(text)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Project != "ProjB" || got.Subject.Number != 12 {
		t.Fatalf("unexpected general fields %+v", got)
	}
	if len(got.Measurements) != 1 || got.Measurements[0].Type != session.Functional || got.Measurements[0].Vols != 10 {
		t.Fatalf("unexpected measurements %+v", got.Measurements)
	}
}

func TestReadKeepsMalformedMeasurementFields(t *testing.T) {
	text := "Measurements\n============\n\n" +
		"No. 1\n-----\n\nType:                   resting\nVols:                   ten\nName:                   Broken\n\n" +
		"No. 2\n-----\n\nType:                   Functional\nVols:                   -3\nName:                   Negative\n\n" +
		"No. 3\n-----\n\nType:                   functional\nVols:                   300\nName:                   Run1\n"
	got, err := Unmarshal(text)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []session.Measurement{
		{Number: 1, Type: "resting", Name: "Broken"},
		{Number: 2, Type: session.Functional, Name: "Negative"},
		{Number: 3, Type: session.Functional, Vols: 300, Name: "Run1"},
	}
	if diff := cmp.Diff(want, got.Measurements); diff != "" {
		t.Fatalf("measurements mismatch (-want +got):\n%s", diff)
	}
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"bad number":    "Measurements\n============\n\nNo. one\n",
		"orphan field":  "Measurements\n============\n\nType:                   misc\n",
		"bad subject":   "General Information\n===================\n\nSubject:                abc\n",
		"unknown field": "General Information\n===================\n\nColour:                 red\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal(text)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Line == 0 {
				t.Fatal("expected line number")
			}
		})
	}
}
