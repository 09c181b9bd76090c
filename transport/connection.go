// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transport unifies the two changer-device access backends — the
// kernel SCSI-task user client and the direct FireWire SBP-2 login — behind
// one Connection, and dispatches CDB execution to whichever one attached.
package transport

import (
	"time"

	"github.com/discbot/jukebox/cdb"
	"github.com/discbot/jukebox/sense"
)

// BackendKind identifies which backend a Connection attached through.
type BackendKind int

const (
	BackendNone BackendKind = iota
	BackendKernelTask
	BackendSbp2
)

func (k BackendKind) String() string {
	switch k {
	case BackendKernelTask:
		return "kernel-task"
	case BackendSbp2:
		return "sbp2"
	default:
		return "none"
	}
}

// Connection is the ChangerConnection of the data model: created
// disconnected, transitions to connected on successful backend attach, and
// is single-use — Disconnect is terminal and idempotent.
type Connection struct {
	kind      BackendKind
	backend   cdb.Submitter
	release   func() error
	exclusive bool
	connected bool
	lastSense sense.Data
}

// Connect attempts the kernel SCSI-task backend first; if that fails to
// attach, it falls through to the direct SBP-2 backend. Backend attach is
// retried exactly once this way (C3 -> C4), never beyond.
func Connect() (*Connection, error) {
	if backend, exclusive, release, err := attachKernelTask(); err == nil {
		return &Connection{
			kind:      BackendKernelTask,
			backend:   backend,
			exclusive: exclusive,
			release:   release,
			connected: true,
		}, nil
	}

	if backend, release, err := attachSbp2(); err == nil {
		return &Connection{
			kind:      BackendSbp2,
			backend:   backend,
			exclusive: true,
			release:   release,
			connected: true,
		}, nil
	}

	return nil, cdb.ErrTransportUnavailable
}

// Disconnect is idempotent: releasing backend-specific resources and then
// clearing the connection's state, so any subsequent call is a no-op and no
// resource is double-released.
func (c *Connection) Disconnect() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	c.kind = BackendNone
	c.backend = nil
	release := c.release
	c.release = nil
	if release == nil {
		return nil
	}
	return release()
}

// Connected reports whether execute_cdb is currently legal on this connection.
func (c *Connection) Connected() bool { return c.connected }

// Backend reports which backend is active, or BackendNone once disconnected.
func (c *Connection) Backend() BackendKind { return c.kind }

// HasExclusiveAccess reports whether the exclusive-access lease was granted.
// Exclusive access is advisory on the kernel-task backend: failing to obtain
// it does not prevent connecting.
func (c *Connection) HasExclusiveAccess() bool { return c.exclusive }

// Execute dispatches a CDB to the active backend. Calling without an active
// backend (never connected, or after Disconnect) is an error.
func (c *Connection) Execute(cdbBytes, buf []byte, dir cdb.Direction, timeout time.Duration) error {
	if !c.connected || c.backend == nil {
		return cdb.ErrTransportUnavailable
	}
	return cdb.Execute(c.backend, c, cdbBytes, buf, dir, timeout)
}

// RecordSense implements cdb.SenseRecorder: the single sense slot lives on
// the connection, not a package-level variable, so multiple connections
// (were a future version to create them) would not interfere with each other.
func (c *Connection) RecordSense(d sense.Data) { c.lastSense = d }

// LastSense returns the sense data captured by the most recent CommandSense
// failure on this connection.
func (c *Connection) LastSense() sense.Data { return c.lastSense }
