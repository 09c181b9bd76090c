// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdb

import (
	"errors"
	"fmt"

	"github.com/discbot/jukebox/sense"
)

// Closed taxonomy of failure kinds, per the error handling design: every
// error returned by this module and the packages built on it satisfies
// errors.Is against exactly one of these sentinels.
var (
	ErrTransportUnavailable = errors.New("jukebox: no backend could attach")
	ErrCommandTransport     = errors.New("jukebox: transport error executing CDB")
	ErrProtocolParse        = errors.New("jukebox: response did not match expected layout")
	ErrTimeout              = errors.New("jukebox: operation timed out")
	ErrDaDissent            = errors.New("jukebox: disk arbitration refused the request")
	ErrNotFound             = errors.New("jukebox: not found")
	ErrInvalidArgument      = errors.New("jukebox: invalid argument")

	// ErrCommandSense is the sentinel wrapped by SenseError; test with
	// errors.Is(err, ErrCommandSense) when only the class matters.
	ErrCommandSense = errors.New("jukebox: command returned sense data")
)

// SenseError is CommandSense{key,asc,ascq} from the error handling design: the
// CDB reached the device, which responded with non-GOOD status and sense
// data was extracted successfully.
type SenseError struct {
	Sense sense.Data
}

func (e *SenseError) Error() string {
	return fmt.Sprintf("jukebox: command sense key=0x%02x asc=0x%02x ascq=0x%02x: %s",
		e.Sense.Key, e.Sense.ASC, e.Sense.ASCQ, e.Sense.String())
}

func (e *SenseError) Unwrap() error { return ErrCommandSense }

// TimeoutError carries which operation deadline elapsed, Timeout{op} in the
// error handling design.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("jukebox: timeout waiting for %s", e.Op)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// DissentError is DaDissent{status}: disk arbitration returned a dissenter.
type DissentError struct {
	Status int
}

func (e *DissentError) Error() string {
	return fmt.Sprintf("jukebox: disk arbitration dissent, status=0x%x", e.Status)
}

func (e *DissentError) Unwrap() error { return ErrDaDissent }
