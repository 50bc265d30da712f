/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models holds the ledger's persisted types.
package models

import "time"

// SubmissionKind names which form produced a submission.
type SubmissionKind string

const (
	SubmissionParticipant SubmissionKind = "participant"
	SubmissionProtocol    SubmissionKind = "protocol"
)

// Submission is one accepted form submission.
type Submission struct {
	ID         string         `gorm:"type:varchar(36);primaryKey"`
	Kind       SubmissionKind `gorm:"type:varchar(32);index:idx_submission_kind;not null"`
	Blob       string         `gorm:"type:varchar(255);not null"`
	Reference  string         `gorm:"type:varchar(64);not null"` // participant ID or entry key
	Details    map[string]any `gorm:"type:text;serializer:json"`
	RecordedAt time.Time      `gorm:"index:idx_submission_recorded_at;not null"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM.
func (Submission) TableName() string {
	return "submissions"
}
