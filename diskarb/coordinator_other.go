// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !darwin

package diskarb

import (
	"fmt"
	"time"

	"github.com/discbot/jukebox/cdb"
	"github.com/discbot/jukebox/runloop"
)

type unavailableBackend struct{}

// NewDarwinBackend is unavailable outside Darwin; DiskArbitration.framework
// has no equivalent elsewhere.
func NewDarwinBackend() Backend { return unavailableBackend{} }

type noopExecutor struct{}

func (noopExecutor) Pump(time.Duration) bool { return false }

func (unavailableBackend) Executor() runloop.Executor { return noopExecutor{} }

func (unavailableBackend) StartMount(string, *DaRequest) (func() error, error) {
	return nil, unavailableErr()
}

func (unavailableBackend) StartUnmount(string, bool, *DaRequest) (func() error, error) {
	return nil, unavailableErr()
}

func (unavailableBackend) StartEject(string, bool, *DaRequest) (func() error, error) {
	return nil, unavailableErr()
}

func (unavailableBackend) IsMounted(string) (bool, error)   { return false, unavailableErr() }
func (unavailableBackend) MountPoint(string) (string, error) { return "", unavailableErr() }
func (unavailableBackend) VolumeName(string) (string, error) { return "", unavailableErr() }

func unavailableErr() error {
	return fmt.Errorf("%w: disk arbitration backend requires darwin", cdb.ErrTransportUnavailable)
}
