// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the client process runtime.
//
// It wires the local stores, the remote adapter, the token auth provider and
// the sync engine into a single lifecycle that runs until its context ends.
package client
