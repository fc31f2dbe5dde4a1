package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sst/internal/config"
	"sst/internal/protocol"
	"sst/internal/session"
)

var titleCase = cases.Title(language.English)

func newProtocolCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protocol",
		Short: "Inspect and create scan protocols",
	}
	cmd.AddCommand(newProtocolShowCommand())
	cmd.AddCommand(newProtocolNewCommand(ctx))
	return cmd
}

func newProtocolShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show <protocol.txt>",
		Short:       "Display a scan protocol",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := protocol.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read protocol: %w", err)
			}
			renderRecord(cmd.OutOrStdout(), record)
			if err := record.Validate(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nProtocol problems:\n%s\n", indentLines(err.Error(), "  "))
			}
			return nil
		},
	}
}

func renderRecord(out io.Writer, r session.SessionRecord) {
	general := [][]string{
		{"Project", r.Project},
		{"Subject", identifierText(r.Subject)},
		{"Session", identifierText(r.Session)},
		{"Date", r.Date},
		{"Booked time", r.BookedTime},
		{"Actual time", r.ActualTime},
		{"Certified user", r.CertifiedUser},
		{"Backup person", r.BackupPerson},
		{"Notes", r.Notes},
		{"Files", strings.Join(session.SplitPatterns(r.Files), "\n")},
		{"Checklist", checklistText(r.Checklist)},
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, general, nil))

	if len(r.Measurements) == 0 {
		fmt.Fprintln(out, "No measurements recorded")
		return
	}
	rows := make([][]string, 0, len(r.Measurements))
	for _, m := range r.Measurements {
		vols := ""
		if m.Vols > 0 {
			vols = strconv.Itoa(m.Vols)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%03d", m.Number),
			titleCase.String(string(m.Type)),
			vols,
			m.Name,
			strings.Join(session.SplitPatterns(m.Logfiles), "\n"),
			m.Comments,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"No.", "Type", "Vols", "Name", "Logfiles", "Comments"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	))
}

func identifierText(id session.Identifier) string {
	if id.Number == 0 {
		return ""
	}
	if id.Type == "" {
		return fmt.Sprintf("%03d", id.Number)
	}
	return fmt.Sprintf("%03d (%s)", id.Number, id.Type)
}

func checklistText(items []session.ChecklistItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		mark := "[ ]"
		if item.Done {
			mark = "[x]"
		}
		lines = append(lines, mark+" "+item.Label)
	}
	return strings.Join(lines, "\n")
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

type newProtocolOptions struct {
	project     string
	subject     int
	subjectType string
	session     int
	sessionType string
	user        string
	backup      string
	date        string
	output      string
	overwrite   bool
}

func newProtocolNewCommand(ctx *commandContext) *cobra.Command {
	var opts newProtocolOptions

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a draft protocol from a project's pick-lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, _, err := ctx.loadProjects()
			if err != nil {
				return err
			}
			record, err := draftRecord(projects, opts)
			if err != nil {
				return err
			}
			if err := record.Validate(); err != nil {
				return fmt.Errorf("invalid protocol: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == "-" {
				return protocol.Write(out, record)
			}
			target := strings.TrimSpace(opts.output)
			if target == "" {
				target = record.ProtocolFilename() + ".txt"
			}
			if !opts.overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("protocol already exists at %s (use --overwrite to replace it)", target)
				}
			}
			if err := protocol.WriteFile(target, record); err != nil {
				return fmt.Errorf("write protocol: %w", err)
			}
			fmt.Fprintf(out, "Wrote draft protocol to %s (%d measurements)\n", target, len(record.Measurements))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project identifier")
	cmd.Flags().IntVar(&opts.subject, "subject", 0, "Subject number (1-999)")
	cmd.Flags().StringVar(&opts.subjectType, "subject-type", "", "Subject type tag")
	cmd.Flags().IntVar(&opts.session, "session", 1, "Session number (1-999)")
	cmd.Flags().StringVar(&opts.sessionType, "session-type", "", "Session type tag")
	cmd.Flags().StringVar(&opts.user, "user", "", "Certified user (default first of the project's Users)")
	cmd.Flags().StringVar(&opts.backup, "backup", "", "Backup person (default first of the project's Backups)")
	cmd.Flags().StringVar(&opts.date, "date", "", "Session date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default <protocol name>.txt, - for stdout)")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Overwrite an existing protocol file")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// draftRecord builds a protocol pre-filled with the project's staff, notes,
// files, checklist and measurement presets, numbered in type order.
func draftRecord(projects config.Projects, opts newProtocolOptions) (session.SessionRecord, error) {
	record := session.New()
	record.Project = strings.TrimSpace(opts.project)
	record.Subject = session.Identifier{Number: opts.subject, Type: strings.TrimSpace(opts.subjectType)}
	record.Session = session.Identifier{Number: opts.session, Type: strings.TrimSpace(opts.sessionType)}
	record.CertifiedUser = strings.TrimSpace(opts.user)
	record.BackupPerson = strings.TrimSpace(opts.backup)

	record.Date = strings.TrimSpace(opts.date)
	if record.Date == "" {
		record.Date = time.Now().Format(time.DateOnly)
	}
	if _, err := time.Parse(time.DateOnly, record.Date); err != nil {
		return session.SessionRecord{}, fmt.Errorf("date %q: expected YYYY-MM-DD", record.Date)
	}

	if len(projects) == 0 {
		return record, nil
	}
	project, ok := projects[record.Project]
	if !ok {
		return session.SessionRecord{}, fmt.Errorf("unknown project %q (configured: %s)", record.Project, strings.Join(projects.Names(), ", "))
	}
	if err := checkPick("subject type", record.Subject.Type, project.SubjectTypes); err != nil {
		return session.SessionRecord{}, err
	}
	if err := checkPick("session type", record.Session.Type, project.SessionTypes); err != nil {
		return session.SessionRecord{}, err
	}
	if err := checkPick("user", record.CertifiedUser, project.Users); err != nil {
		return session.SessionRecord{}, err
	}
	if err := checkPick("backup person", record.BackupPerson, project.Backups); err != nil {
		return session.SessionRecord{}, err
	}
	if record.CertifiedUser == "" && len(project.Users) > 0 {
		record.CertifiedUser = project.Users[0]
	}
	if record.BackupPerson == "" && len(project.Backups) > 0 {
		record.BackupPerson = project.Backups[0]
	}

	record.Notes = strings.TrimRight(project.Notes, "\n")
	record.Files = strings.Join(project.Files, "\n")
	for _, label := range project.Checklist {
		record.AddChecklistItem(label)
	}
	number := 0
	for _, t := range session.MeasurementTypes {
		for _, preset := range project.Presets(string(t)) {
			number++
			record.Measurements = append(record.Measurements, session.Measurement{
				Number:   number,
				Type:     t,
				Vols:     preset.Vols,
				Name:     preset.Name,
				Comments: preset.Comments,
			})
		}
	}
	return record, nil
}

func checkPick(what, value string, allowed []string) error {
	if value == "" || len(allowed) == 0 || slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s %q is not one of: %s", what, value, strings.Join(allowed, ", "))
}
