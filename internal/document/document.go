/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package document reads and writes the protocol entry map as one JSON blob.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/friendsincode/protoreg/internal/blobstore"
)

// ContentType is the MIME type of the saved document.
const ContentType = "application/json"

// Document maps entry keys to the raw JSON payload stored under them.
type Document map[string]json.RawMessage

// Codec loads and saves a Document as one blob.
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
		logger: logger.With().Str("component", "protocol_document").Str("blob", blob).Logger(),
	}
}

// Blob returns the blob name the codec reads and writes.
func (c *Codec) Blob() string { return c.blob }

// Load returns the stored document. A missing blob, malformed JSON or any
// other read failure yields an empty document; the cause is only logged.
func (c *Codec) Load(ctx context.Context) Document {
	data, err := c.store.Load(ctx, c.blob)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			c.logger.Info().Msg("protocol document does not exist yet, starting empty")
		} else {
			c.logger.Error().Err(err).Msg("protocol document read failed, starting empty")
		}
		return Document{}
	}

	doc, err := Decode(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("protocol document is not valid JSON, starting empty")
		return Document{}
	}
	return doc
}

// Save serializes the whole document and overwrites the blob.
func (c *Codec) Save(ctx context.Context, doc Document) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("save protocols: %w", err)
	}
	if err := c.store.Save(ctx, c.blob, data, ContentType); err != nil {
		return fmt.Errorf("save protocols: %w", err)
	}
	c.logger.Info().Int("entries", len(doc)).Msg("protocol document saved")
	return nil
}

// Encode renders the document as 4-space indented JSON with sorted keys.
func Encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode parses a JSON object. A JSON null decodes as an empty document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
