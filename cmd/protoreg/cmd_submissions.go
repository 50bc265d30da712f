/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/protoreg/internal/audit"
	"github.com/friendsincode/protoreg/internal/db"
	"github.com/friendsincode/protoreg/internal/models"
)

var (
	submissionsKind   string
	submissionsSince  time.Duration
	submissionsLimit  int
	submissionsFormat string
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Inspect the submission ledger",
}

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded submissions, newest first",
	Long: `List entries from the submission ledger (requires PROTOREG_AUDIT_DB_DSN).

Examples:
  protoreg submissions list --kind protocol --since 24h
`,
	Args: cobra.NoArgs,
	RunE: runSubmissionsList,
}

func init() {
	submissionsListCmd.Flags().StringVar(&submissionsKind, "kind", "", "Filter by kind: participant or protocol")
	submissionsListCmd.Flags().DurationVar(&submissionsSince, "since", 0, "Only entries newer than this age (e.g. 24h)")
	submissionsListCmd.Flags().IntVar(&submissionsLimit, "limit", 50, "Maximum entries to print")
	submissionsListCmd.Flags().StringVarP(&submissionsFormat, "format", "o", formatTable, "Output format: table, json or yaml")
	submissionsCmd.AddCommand(submissionsListCmd)
	rootCmd.AddCommand(submissionsCmd)
}

func runSubmissionsList(cmd *cobra.Command, args []string) error {
	if err := loadConfigTo(os.Stderr); err != nil {
		return err
	}
	if !cfg.AuditEnabled() {
		return errors.New("submission ledger is disabled (set PROTOREG_AUDIT_DB_DSN)")
	}

	filters, err := submissionFilters(submissionsKind, submissionsSince, submissionsLimit, time.Now())
	if err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)

	ctx, cancel := commandContext()
	defer cancel()

	entries, total, err := audit.Query(ctx, database, filters)
	if err != nil {
		return err
	}
	return writeSubmissions(cmd.OutOrStdout(), entries, total, submissionsFormat)
}

func submissionFilters(kind string, since time.Duration, limit int, now time.Time) (audit.QueryFilters, error) {
	filters := audit.QueryFilters{Limit: limit}
	switch models.SubmissionKind(kind) {
	case "":
	case models.SubmissionParticipant, models.SubmissionProtocol:
		k := models.SubmissionKind(kind)
		filters.Kind = &k
	default:
		return filters, fmt.Errorf("unknown submission kind %q", kind)
	}
	if since > 0 {
		t := now.Add(-since)
		filters.Since = &t
	}
	return filters, nil
}

func writeSubmissions(w io.Writer, entries []models.Submission, total int64, format string) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, entries)
	case formatYAML:
		return encodeYAML(w, entries)
	case formatTable:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RECORDED\tKIND\tREFERENCE\tBLOB")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.RecordedAt.UTC().Format(time.RFC3339), e.Kind, e.Reference, e.Blob)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if int64(len(entries)) < total {
			fmt.Fprintf(w, "(%d of %d shown)\n", len(entries), total)
		}
		return nil
	default:
		return unsupportedFormat(format, formatTable, formatJSON, formatYAML)
	}
}
