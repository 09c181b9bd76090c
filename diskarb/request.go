// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diskarb implements the disk-arbitration coordinator (C8): the
// shared asynchronous mount/unmount/eject shape, pumped on a cooperative
// run loop with bounded timeouts and dissenter-based refusal.
package diskarb

import "sync"

// Outcome is the terminal state of a DaRequest.
type Outcome int

const (
	Pending Outcome = iota
	Completed
	TimedOut
)

// DaRequest is a one-shot state machine for a single mount/unmount/eject
// operation's callback. It is safe to mark done from whatever thread the OS
// callback arrives on, and safe to read from the thread pumping the run
// loop, mirroring the original's DACallbackContext plus an explicit
// "still waiting for this one" flag the original didn't need (single
// synchronous caller) but a cgo trampoline does (the callback may fire after
// Go has already decided to time out and moved on).
type DaRequest struct {
	mu         sync.Mutex
	outcome    Outcome
	dissented  bool
	dissentRC  int
	mountPoint string
	volumeName string
}

// Complete records a successful (or dissented) callback arrival. Calling it
// after the request has already timed out is harmless and has no effect —
// late callbacks are simply ignored, per the run-loop design note.
func (r *DaRequest) Complete(dissented bool, dissentRC int, mountPoint, volumeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome != Pending {
		return
	}
	r.outcome = Completed
	r.dissented = dissented
	r.dissentRC = dissentRC
	r.mountPoint = mountPoint
	r.volumeName = volumeName
}

// Done reports whether the callback has arrived yet.
func (r *DaRequest) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome == Completed
}

// MarkTimedOut transitions a still-pending request to TimedOut so a later
// callback arrival is recognized as late and ignored. It is a no-op if the
// callback already completed the request.
func (r *DaRequest) MarkTimedOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome == Pending {
		r.outcome = TimedOut
	}
}

// Result reads back the terminal state once Done (or after MarkTimedOut).
func (r *DaRequest) Result() (outcome Outcome, dissented bool, dissentRC int, mountPoint, volumeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome, r.dissented, r.dissentRC, r.mountPoint, r.volumeName
}
