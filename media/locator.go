// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package media implements the optical-media locator (C7): enumerating the
// OS device registry for CD/DVD/Blu-ray media and returning the system-local
// device identifier ("BSD name") of the first instance found.
package media

import (
	"time"

	"github.com/discbot/jukebox/cdb"
)

// pollInterval is how often WaitForDisc re-queries the locator, matching
// the original's usleep(500000) between mount_find_dvd_bsd_name calls.
const pollInterval = 500 * time.Millisecond

// Locator enumerates the device registry for optical media. FindDiscDevice
// returns the BSD name of the first instance found, in DVD, then CD, then
// Blu-ray class order, or ok=false if none is currently present.
type Locator interface {
	FindDiscDevice() (bsdName string, ok bool, err error)
}

// locatorFunc adapts a plain function to Locator, the way http.HandlerFunc
// adapts a function to http.Handler.
type locatorFunc func() (string, bool, error)

func (f locatorFunc) FindDiscDevice() (string, bool, error) { return f() }

// DefaultLocator is the platform locator: IOKit media-class enumeration on
// Darwin, TransportUnavailable everywhere else.
var DefaultLocator Locator = locatorFunc(findDiscDevice)

// WaitForDisc polls loc once immediately and then every 500ms until a disc
// is found or timeout elapses, returning the BSD name on success.
func WaitForDisc(loc Locator, timeout time.Duration) (string, error) {
	deadline := deadlineFrom(timeout)
	for {
		if bsdName, ok, err := loc.FindDiscDevice(); err != nil {
			return "", err
		} else if ok {
			return bsdName, nil
		}
		if !beforeDeadline(deadline) {
			return "", &cdb.TimeoutError{Op: "wait_for_disc"}
		}
		sleepFunc(pollInterval)
	}
}

// IsDiscPresent reports whether loc currently finds any disc.
func IsDiscPresent(loc Locator) bool {
	_, ok, err := loc.FindDiscDevice()
	return err == nil && ok
}

// sleepFunc is indirected so tests can run the poll loop without incurring
// real wall-clock sleeps; the deadline helpers always use the real clock.
var sleepFunc = time.Sleep

func deadlineFrom(timeout time.Duration) time.Time { return time.Now().Add(timeout) }
func beforeDeadline(deadline time.Time) bool        { return time.Now().Before(deadline) }
