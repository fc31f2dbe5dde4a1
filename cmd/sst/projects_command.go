package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sst/internal/session"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project pick-lists",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the configured projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, path, err := ctx.loadProjects()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path == "" || len(projects) == 0 {
				fmt.Fprintln(out, "No projects configured")
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, name := range projects.Names() {
				p := projects[name]
				counts := make([]string, 0, len(session.MeasurementTypes))
				for _, t := range session.MeasurementTypes {
					counts = append(counts, fmt.Sprintf("%s %d", titleCase.String(string(t)), len(p.Presets(string(t)))))
				}
				rows = append(rows, []string{
					name,
					strings.Join(p.SubjectTypes, ", "),
					strings.Join(p.SessionTypes, ", "),
					strings.Join(counts, "\n"),
					strconv.Itoa(len(p.Files)),
					yesNo(len(p.Checklist) > 0),
				})
			}
			fmt.Fprintf(out, "Projects from %s\n", path)
			fmt.Fprintln(out, renderTable(
				[]string{"Project", "Subject types", "Session types", "Presets", "Files", "Extra checklist"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	})
	return cmd
}
