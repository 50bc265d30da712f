/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/protoreg/internal/models"
)

// Migrate creates or updates the ledger schema.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(&models.Submission{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
