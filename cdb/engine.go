// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cdb implements the SCSI Command Descriptor Block execution
// contract shared by every media-changer transport backend: direction and
// timeout handling, sense extraction on failure, and the closed error
// taxonomy the rest of the library builds on.
package cdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/discbot/jukebox/sense"
)

// Direction is the data-transfer direction of a CDB.
type Direction int

const (
	DirNone Direction = iota
	DirRead
	DirWrite
)

// RawResult is what a transport backend hands back from one CDB submission,
// before the Engine classifies it into Ok/SenseError/transport-error.
type RawResult struct {
	// Good is true iff the task completed with GOOD SCSI status.
	Good bool
	// SenseBuffer holds auto-sense bytes, if the backend captured any,
	// regardless of whether Good is true (callers extract sense even on a
	// submission error).
	SenseBuffer []byte
	// Transferred is the number of bytes the backend actually moved.
	Transferred int
}

// Submitter is implemented by each transport backend (kernel SCSI task,
// direct SBP-2). It owns everything backend-specific; Execute owns the
// direction/timeout contract and sense bookkeeping that both backends share.
type Submitter interface {
	Submit(cdb []byte, buf []byte, dir Direction, timeout time.Duration) (RawResult, error)
}

// SenseRecorder stores the most recently observed sense data. ChangerConnection
// implements this so the single sense slot lives on the connection, not in a
// package-level variable (see design notes on the process-global sense slot).
type SenseRecorder interface {
	RecordSense(sense.Data)
}

// Execute runs one CDB against a backend and returns nil on success,
// *SenseError if the device reported sense data, or a transport error
// wrapping ErrCommandTransport/ErrTimeout otherwise.
//
// The caller's buf must remain valid and untouched until Execute returns; no
// lifetime extension beyond the call is implied, and buf is never
// reallocated or retained by this function.
func Execute(s Submitter, rec SenseRecorder, cdbBytes []byte, buf []byte, dir Direction, timeout time.Duration) error {
	if len(cdbBytes) == 0 || len(cdbBytes) > 16 {
		return fmt.Errorf("%w: cdb length %d out of range", ErrInvalidArgument, len(cdbBytes))
	}
	if len(buf) == 0 && dir != DirNone {
		return fmt.Errorf("%w: zero-length buffer requires DirNone", ErrInvalidArgument)
	}

	raw, err := s.Submit(cdbBytes, buf, dir, timeout)
	if err != nil {
		if sd := sense.Parse(raw.SenseBuffer); sd.Valid {
			rec.RecordSense(sd)
			return &SenseError{Sense: sd}
		}
		if errors.Is(err, ErrTimeout) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCommandTransport, err)
	}

	if !raw.Good {
		sd := sense.Parse(raw.SenseBuffer)
		if sd.Valid {
			rec.RecordSense(sd)
			return &SenseError{Sense: sd}
		}
		return ErrCommandTransport
	}

	return nil
}
