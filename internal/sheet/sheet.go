/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sheet reads and writes the participant table as an xlsx workbook.
package sheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/friendsincode/protoreg/internal/blobstore"
)

// ContentType is the MIME type of the saved workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Column headers, in file order.
const (
	ColParticipantID = "Participant ID"
	ColFirstName     = "First Name"
	ColMiddleName    = "Middle Name"
	ColLastName      = "Last Name"
	ColAffiliation   = "Affiliation"
	ColEmail         = "E-mail"
)

// Headers is the fixed column set of the participant table.
var Headers = []string{ColParticipantID, ColFirstName, ColMiddleName, ColLastName, ColAffiliation, ColEmail}

const sheetName = "Sheet1"

// Participant is one row of the table.
type Participant struct {
	ID          int    `json:"participant_id" yaml:"participant_id"`
	FirstName   string `json:"first_name" yaml:"first_name"`
	MiddleName  string `json:"middle_name" yaml:"middle_name"`
	LastName    string `json:"last_name" yaml:"last_name"`
	Affiliation string `json:"affiliation" yaml:"affiliation"`
	Email       string `json:"email" yaml:"email"`
}

// Table is the ordered participant list.
type Table struct {
	Rows []Participant
}

// HasID reports whether any row already uses id.
func (t *Table) HasID(id int) bool {
	for _, row := range t.Rows {
		if row.ID == id {
			return true
		}
	}
	return false
}

// Append adds a row at the end.
func (t *Table) Append(p Participant) {
	t.Rows = append(t.Rows, p)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Codec loads and saves the participant table as one blob.
type Codec struct {
	store  blobstore.Store
	blob   string
	logger zerolog.Logger
}

// NewCodec binds the codec to a blob name.
func NewCodec(store blobstore.Store, blob string, logger zerolog.Logger) *Codec {
	return &Codec{
		store:  store,
		blob:   blob,
		logger: logger.With().Str("component", "participant_sheet").Str("blob", blob).Logger(),
	}
}

// Blob returns the blob name the codec reads and writes.
func (c *Codec) Blob() string { return c.blob }

// Load returns the stored table, or an empty table when the blob is absent.
func (c *Codec) Load(ctx context.Context) (*Table, error) {
	data, err := c.store.Load(ctx, c.blob)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			c.logger.Debug().Msg("participant table not found, starting empty")
			return &Table{}, nil
		}
		return nil, fmt.Errorf("load participants: %w", err)
	}

	table, err := decode(data, c.logger)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	return table, nil
}

// Save encodes the whole table and overwrites the blob.
func (c *Codec) Save(ctx context.Context, table *Table) error {
	data, err := Encode(table)
	if err != nil {
		return fmt.Errorf("save participants: %w", err)
	}
	if err := c.store.Save(ctx, c.blob, data, ContentType); err != nil {
		return fmt.Errorf("save participants: %w", err)
	}
	c.logger.Debug().Int("rows", table.Len()).Msg("participant table saved")
	return nil
}

// Encode renders the table as an xlsx workbook with a header row.
func Encode(table *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, p := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{p.ID, p.FirstName, p.MiddleName, p.LastName, p.Affiliation, p.Email}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a workbook produced by Encode, or any workbook whose first
// sheet carries the participant headers in its first row.
func Decode(data []byte) (*Table, error) {
	return decode(data, zerolog.Nop())
}

func decode(data []byte, logger zerolog.Logger) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	table := &Table{}
	if len(rows) == 0 {
		return table, nil
	}

	// Columns are located by header so reordered sheets still load.
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		p := Participant{
			FirstName:   cell(row, ColFirstName),
			MiddleName:  cell(row, ColMiddleName),
			LastName:    cell(row, ColLastName),
			Affiliation: cell(row, ColAffiliation),
			Email:       cell(row, ColEmail),
		}
		if raw := strings.TrimSpace(cell(row, ColParticipantID)); raw != "" {
			id, err := parseID(raw)
			if err != nil {
				logger.Warn().Int("row", n+2).Str("value", raw).Msg("unreadable participant id, keeping row with id 0")
			}
			p.ID = id
		}
		table.Append(p)
	}
	return table, nil
}

// parseID accepts integers and integral floats ("123456.0") as written by
// other spreadsheet tools.
func parseID(raw string) (int, error) {
	if id, err := strconv.Atoi(raw); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("participant id %q is not an integer", raw)
	}
	return int(f), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
