/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/friendsincode/protoreg/internal/document"
)

var (
	protocolsListFormat string
	protocolsShowFormat string
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "Inspect the protocol document",
}

var protocolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored protocol entries",
	Args:  cobra.NoArgs,
	RunE:  runProtocolsList,
}

var protocolsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print one protocol entry",
	Long: `Print the payload stored under an entry key.

Examples:
  protoreg protocols show entry_3
  protoreg protocols show entry_3 --format yaml
`,
	Args: cobra.ExactArgs(1),
	RunE: runProtocolsShow,
}

func init() {
	protocolsListCmd.Flags().StringVarP(&protocolsListFormat, "format", "o", formatTable, "Output format: table or json")
	protocolsShowCmd.Flags().StringVarP(&protocolsShowFormat, "format", "o", formatJSON, "Output format: json or yaml")
	protocolsCmd.AddCommand(protocolsListCmd, protocolsShowCmd)
	rootCmd.AddCommand(protocolsCmd)
}

func loadProtocols() (document.Document, error) {
	ctx, cancel := commandContext()
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	return document.NewCodec(store, cfg.ProtocolBlob, logger).Load(ctx), nil
}

func runProtocolsList(cmd *cobra.Command, args []string) error {
	doc, err := loadProtocols()
	if err != nil {
		return err
	}
	return writeProtocolList(cmd.OutOrStdout(), doc, protocolsListFormat)
}

func runProtocolsShow(cmd *cobra.Command, args []string) error {
	doc, err := loadProtocols()
	if err != nil {
		return err
	}
	return writeProtocolEntry(cmd.OutOrStdout(), doc, args[0], protocolsShowFormat)
}

// protocolSummary is one line of `protocols list`.
type protocolSummary struct {
	Key           string `json:"key"`
	ParticipantID string `json:"participant_id,omitempty"`
	Bytes         int    `json:"bytes"`
}

func summarizeProtocols(doc document.Document) []protocolSummary {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareEntryKeys)

	out := make([]protocolSummary, 0, len(keys))
	for _, k := range keys {
		raw := doc[k]
		s := protocolSummary{Key: k, Bytes: len(raw)}
		var fields struct {
			ParticipantID json.RawMessage `json:"participantID"`
		}
		if json.Unmarshal(raw, &fields) == nil && len(fields.ParticipantID) > 0 {
			var id string
			if json.Unmarshal(fields.ParticipantID, &id) != nil {
				id = string(fields.ParticipantID)
			}
			s.ParticipantID = id
		}
		out = append(out, s)
	}
	return out
}

// compareEntryKeys orders entry_2 before entry_10; other keys sort after,
// lexically.
func compareEntryKeys(a, b string) int {
	na, okA := entryNumber(a)
	nb, okB := entryNumber(b)
	switch {
	case okA && okB:
		return na - nb
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func entryNumber(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "entry_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

func writeProtocolList(w io.Writer, doc document.Document, format string) error {
	summaries := summarizeProtocols(doc)

	switch format {
	case formatJSON:
		return encodeJSON(w, summaries)
	case formatTable:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tPARTICIPANT\tBYTES")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Key, s.ParticipantID, s.Bytes)
		}
		return tw.Flush()
	default:
		return unsupportedFormat(format, formatTable, formatJSON)
	}
}

func writeProtocolEntry(w io.Writer, doc document.Document, key, format string) error {
	raw, ok := doc[key]
	if !ok {
		return fmt.Errorf("no protocol entry %q (%d entries stored)", key, len(doc))
	}

	switch format {
	case formatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return fmt.Errorf("format entry: %w", err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	case formatYAML:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode entry: %w", err)
		}
		return encodeYAML(w, v)
	default:
		return unsupportedFormat(format, formatJSON, formatYAML)
	}
}
