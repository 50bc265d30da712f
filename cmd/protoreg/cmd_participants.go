/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/friendsincode/protoreg/internal/sheet"
)

var participantsFormat string

var participantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "Inspect the participant table",
}

var participantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered participants",
	Long: `List every row of the participant table in storage.

Examples:
  protoreg participants list
  protoreg participants list --format json
`,
	Args: cobra.NoArgs,
	RunE: runParticipantsList,
}

func init() {
	participantsListCmd.Flags().StringVarP(&participantsFormat, "format", "o", formatTable, "Output format: table, json or yaml")
	participantsCmd.AddCommand(participantsListCmd)
	rootCmd.AddCommand(participantsCmd)
}

func runParticipantsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	table, err := sheet.NewCodec(store, cfg.ParticipantBlob, logger).Load(ctx)
	if err != nil {
		return err
	}
	return writeParticipants(cmd.OutOrStdout(), table, participantsFormat)
}

func writeParticipants(w io.Writer, table *sheet.Table, format string) error {
	rows := table.Rows
	if rows == nil {
		rows = []sheet.Participant{}
	}

	switch format {
	case formatJSON:
		return encodeJSON(w, rows)
	case formatYAML:
		return encodeYAML(w, rows)
	case formatTable:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			sheet.ColParticipantID, sheet.ColFirstName, sheet.ColMiddleName, sheet.ColLastName, sheet.ColAffiliation, sheet.ColEmail)
		for _, p := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.FirstName, p.MiddleName, p.LastName, p.Affiliation, p.Email)
		}
		return tw.Flush()
	default:
		return unsupportedFormat(format, formatTable, formatJSON, formatYAML)
	}
}
