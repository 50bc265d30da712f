/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/protoreg/internal/blobstore"
)

// Output formats shared by the inspection commands.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// openStore loads config with logs on stderr and opens the blob container.
func openStore(ctx context.Context) (blobstore.Store, error) {
	if err := loadConfigTo(os.Stderr); err != nil {
		return nil, err
	}
	store, err := blobstore.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open blob storage: %w", err)
	}
	return store, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func unsupportedFormat(format string, allowed ...string) error {
	return fmt.Errorf("unsupported format %q (want one of %v)", format, allowed)
}
