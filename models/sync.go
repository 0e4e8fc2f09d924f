// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// SyncStatus describes how a local record relates to its remote copy.
// Transitions are owned by the sync engine; application code never sets it.
type SyncStatus string

const (
	// StatusSynced means the local and remote serialized forms are equal.
	StatusSynced SyncStatus = "synced"
	// StatusPendingUpload means a local create or update has not reached the
	// remote store yet.
	StatusPendingUpload SyncStatus = "pending_upload"
	// StatusPendingDelete means the record is tombstoned locally and the
	// remote delete has not been confirmed.
	StatusPendingDelete SyncStatus = "pending_delete"
	// StatusConflict marks a record whose divergent versions are being
	// reconciled.
	StatusConflict SyncStatus = "conflict"
)

// ParseSyncStatus converts a raw value into a SyncStatus.
func ParseSyncStatus(raw string) (SyncStatus, error) {
	switch s := SyncStatus(raw); s {
	case StatusSynced, StatusPendingUpload, StatusPendingDelete, StatusConflict:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown sync status %q", ErrMalformedDocument, raw)
}

// UnsyncedStatuses lists every status other than StatusSynced.
func UnsyncedStatuses() []SyncStatus {
	return []SyncStatus{StatusPendingUpload, StatusPendingDelete, StatusConflict}
}

// SyncMetadata carries the fields every synchronized entity shares.
type SyncMetadata struct {
	// ID is globally unique and never changes after creation.
	ID string
	// OwnerID is the opaque identifier of the authenticated user. Empty until
	// the record is created under a session or claimed by migration.
	OwnerID string
	// LastModified is bumped on every local mutation and is the only
	// tie-breaker used during conflict resolution.
	LastModified time.Time
	// Status is the record's current sync state.
	Status SyncStatus
	// Deleted marks a tombstone.
	Deleted bool
}

// Meta returns the metadata itself so that entity types embedding
// SyncMetadata satisfy SyncableRecord.
func (m *SyncMetadata) Meta() *SyncMetadata {
	return m
}

// AssignOwner sets OwnerID when it is still empty. An owner, once set, is
// immutable.
func (m *SyncMetadata) AssignOwner(ownerID string) {
	if m.OwnerID == "" {
		m.OwnerID = ownerID
	}
}

// SyncableRecord is implemented by every entity taking part in dual
// persistence.
type SyncableRecord interface {
	Meta() *SyncMetadata
	EntityType() EntityType
	AssignOwner(ownerID string)
	// ToRemoteDocument is total: it never fails and includes every metadata
	// field plus the entity payload.
	ToRemoteDocument() Document
}

// Dated is implemented by records that have a natural calendar position.
// Local stores index it to support retention queries.
type Dated interface {
	OccurredAt() time.Time
}

// Now returns the current UTC time truncated to the millisecond precision
// kept by every store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NormalizeDate returns midnight UTC of the calendar day t falls on.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func encodeMeta(m SyncMetadata, doc Document) Document {
	doc[FieldID] = m.ID
	doc[FieldOwnerID] = m.OwnerID
	doc[FieldLastModified] = m.LastModified.UTC()
	doc[FieldSyncStatus] = string(m.Status)
	doc[FieldDeleted] = m.Deleted
	return doc
}

func decodeMeta(doc Document) (SyncMetadata, error) {
	var (
		m   SyncMetadata
		err error
	)

	if m.ID, err = doc.String(FieldID); err != nil {
		return m, err
	}
	if m.ID == "" {
		return m, fmt.Errorf("%w: empty %q", ErrMalformedDocument, FieldID)
	}
	if m.OwnerID, err = doc.OptionalString(FieldOwnerID); err != nil {
		return m, err
	}
	if m.LastModified, err = doc.Time(FieldLastModified); err != nil {
		return m, err
	}
	if m.Deleted, err = doc.OptionalBool(FieldDeleted); err != nil {
		return m, err
	}

	status, err := doc.OptionalString(FieldSyncStatus)
	if err != nil {
		return m, err
	}
	if status == "" {
		m.Status = StatusSynced
		return m, nil
	}
	m.Status, err = ParseSyncStatus(status)
	return m, err
}
