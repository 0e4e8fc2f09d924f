// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// OperationKind is the kind of mutation waiting to be uploaded.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// ParseOperationKind validates a raw operation kind.
func ParseOperationKind(raw string) (OperationKind, error) {
	switch k := OperationKind(raw); k {
	case OperationCreate, OperationUpdate, OperationDelete:
		return k, nil
	}
	return "", fmt.Errorf("unknown operation kind %q", raw)
}

// OperationKey identifies the entity an operation applies to. The queue holds
// at most one operation per key.
type OperationKey struct {
	EntityID   string
	EntityType EntityType
}

// QueuedOperation is a pending mutation awaiting upload.
type QueuedOperation struct {
	// Seq is assigned by the queue on every enqueue or replacement and lets a
	// drain tell whether the entry it processed is still the current one.
	Seq        uint64        `json:"seq"`
	EntityID   string        `json:"entity_id"`
	EntityType EntityType    `json:"entity_type"`
	Kind       OperationKind `json:"kind"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
	// Payload is the record snapshot taken at enqueue time.
	Payload Document `json:"payload,omitempty"`
	// Base is the last synced version the mutation started from. Daily log
	// uploads merge against it to tell items removed on this device from
	// items added elsewhere.
	Base Document `json:"base,omitempty"`
}

// Key returns the dedup key of the operation.
func (o QueuedOperation) Key() OperationKey {
	return OperationKey{EntityID: o.EntityID, EntityType: o.EntityType}
}

// FailedOperation records an operation dropped after a permanent failure.
type FailedOperation struct {
	Operation QueuedOperation `json:"operation"`
	Error     string          `json:"error"`
	FailedAt  time.Time       `json:"failed_at"`
}

// DrainReport summarizes one pass over the operation queue.
type DrainReport struct {
	Attempted int
	Succeeded int
	// Deferred operations were left pending, e.g. because sync stopped
	// before they were reached.
	Deferred int
	Failures []FailedOperation
}

// MigrationReport summarizes a local data migration run.
type MigrationReport struct {
	OwnerID string
	// Claimed counts records that had no owner before the run.
	Claimed  int
	Uploaded int
	Deleted  int
	// AlreadyPresent counts records found equal on the remote side and only
	// marked synced locally.
	AlreadyPresent int
	Failed         int
}

// SyncReport is the result of a forced sync: a queue drain plus a pull of
// every collection.
type SyncReport struct {
	Drain DrainReport
	// Pulled counts remote documents applied locally.
	Pulled int
	// RemovedLocally counts synced local records missing from the remote
	// store and therefore deleted.
	RemovedLocally int
	PullErrors     int
}

// EngineStatus is a point-in-time view of the sync engine.
type EngineStatus struct {
	OwnerID          string
	Running          bool
	Syncing          bool
	MigrationPending bool
	Pending          int
	LastSyncAt       time.Time
	Failures         []FailedOperation
}
