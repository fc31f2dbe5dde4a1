package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sst/internal/archive"
	"sst/internal/logging"
	"sst/internal/protocol"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var source string
	var resolveInPlace bool

	cmd := &cobra.Command{
		Use:   "archive <protocol.txt>",
		Short: "Archive the acquisition data of a scan session",
		Long: "Reads a scan protocol, locates the images and logfiles of every measurement in the\n" +
			"source directory, and copies them into a new ~Archive<timestamp> folder inside it.\n" +
			"Problems are collected in a report; the job never stops early.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			protocolPath := args[0]
			record, err := protocol.ReadFile(protocolPath)
			if err != nil {
				return fmt.Errorf("read protocol: %w", err)
			}
			if strings.TrimSpace(source) == "" {
				return fmt.Errorf("--source: %w", archive.ErrNoSource)
			}
			if err := record.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Protocol problems in %s:\n%s\n", protocolPath, indentLines(err.Error(), "  "))
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			lock, err := archive.LockSource(cfg.LockDir(), source)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("failed to release source lock", logging.String("lock", lock.Path()), logging.Error(err))
				}
			}()

			progress := newProgressPrinter(cmd.ErrOrStderr())
			archiver := archive.NewArchiver(cfg.Archive, logger, archive.Options{Progress: progress.update})
			result, err := archiver.Run(context.Background(), source, record)
			progress.finish()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderReport(out, result.Report, shouldColorize(out))
			if result.ProtocolPath != "" {
				fmt.Fprintf(out, "Protocol saved to %s\n", result.ProtocolPath)
			}

			if resolveInPlace {
				if err := protocol.WriteFile(protocolPath, result.Record); err != nil {
					return fmt.Errorf("update protocol: %w", err)
				}
				fmt.Fprintf(out, "Updated %s with resolved logfile names\n", protocolPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Acquisition directory to archive")
	cmd.Flags().BoolVar(&resolveInPlace, "resolve-in-place", false, "Rewrite the input protocol with resolved logfile and file names")
	return cmd
}
