// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diskarb

import (
	"strings"
	"time"

	"github.com/discbot/jukebox/cdb"
	"github.com/discbot/jukebox/runloop"
)

// pumpTick bounds a single run-loop pump during a wait, per the ≤100ms
// granularity the design calls for.
const pumpTick = 100 * time.Millisecond

// Backend starts one asynchronous disk-arbitration operation and reports it
// through the supplied DaRequest once its callback fires. Darwin's
// implementation wraps DiskArbitration.framework; a fakeBackend backs the
// package's tests.
type Backend interface {
	Executor() runloop.Executor
	StartMount(bsdName string, req *DaRequest) (release func() error, err error)
	StartUnmount(bsdName string, force bool, req *DaRequest) (release func() error, err error)
	StartEject(bsdName string, force bool, req *DaRequest) (release func() error, err error)
	IsMounted(bsdName string) (bool, error)
	MountPoint(bsdName string) (string, error)
	VolumeName(bsdName string) (string, error)
}

// Coordinator is the C8 upwards API: mount/unmount/eject, all routed
// through a Backend and bounded by a caller-supplied timeout.
type Coordinator struct {
	backend Backend
}

// New wraps backend in a Coordinator.
func New(backend Backend) *Coordinator {
	return &Coordinator{backend: backend}
}

// stripDevPrefix removes a leading "/dev/" so the bare BSD name can be
// handed to DiskArbitration, which rejects a qualified path.
func stripDevPrefix(name string) string {
	return strings.TrimPrefix(name, "/dev/")
}

func (c *Coordinator) wait(req *DaRequest, timeout time.Duration) bool {
	return runloop.WaitUntil(c.backend.Executor(), req.Done, timeout, pumpTick)
}

// Mount starts an asynchronous mount of bsdName and waits up to timeout for
// it to complete, returning the resulting mount point.
func (c *Coordinator) Mount(bsdName string, timeout time.Duration) (string, error) {
	req := &DaRequest{}
	release, err := c.backend.StartMount(stripDevPrefix(bsdName), req)
	if err != nil {
		return "", err
	}
	defer release()

	if !c.wait(req, timeout) {
		req.MarkTimedOut()
		return "", &cdb.TimeoutError{Op: "mount"}
	}

	_, dissented, rc, mountPoint, _ := req.Result()
	if dissented {
		return "", &cdb.DissentError{Status: rc}
	}
	return mountPoint, nil
}

// Unmount starts an asynchronous unmount of bsdName, optionally forced, and
// waits up to 30s for it to complete (the original's fixed unmount budget).
func (c *Coordinator) Unmount(bsdName string, force bool) error {
	req := &DaRequest{}
	release, err := c.backend.StartUnmount(stripDevPrefix(bsdName), force, req)
	if err != nil {
		return err
	}
	defer release()

	if !c.wait(req, 30*time.Second) {
		req.MarkTimedOut()
		return &cdb.TimeoutError{Op: "unmount"}
	}

	_, dissented, rc, _, _ := req.Result()
	if dissented {
		return &cdb.DissentError{Status: rc}
	}
	return nil
}

// Eject starts an asynchronous eject of bsdName and waits up to 30s for it
// to complete. force is accepted and passed through for API symmetry with
// Unmount, but DADiskEject has no force option of its own — the original C
// implementation accepted and silently ignored it too; this is a preserved
// behavior pending upstream API confirmation, not an oversight.
func (c *Coordinator) Eject(bsdName string, force bool) error {
	req := &DaRequest{}
	release, err := c.backend.StartEject(stripDevPrefix(bsdName), force, req)
	if err != nil {
		return err
	}
	defer release()

	if !c.wait(req, 30*time.Second) {
		req.MarkTimedOut()
		return &cdb.TimeoutError{Op: "eject"}
	}

	_, dissented, rc, _, _ := req.Result()
	if dissented {
		return &cdb.DissentError{Status: rc}
	}
	return nil
}

// IsMounted reports whether bsdName currently has a volume path.
func (c *Coordinator) IsMounted(bsdName string) (bool, error) {
	return c.backend.IsMounted(stripDevPrefix(bsdName))
}

// MountPoint returns the current volume path for bsdName, if mounted.
func (c *Coordinator) MountPoint(bsdName string) (string, error) {
	return c.backend.MountPoint(stripDevPrefix(bsdName))
}

// VolumeName returns the current volume name for bsdName, if mounted.
func (c *Coordinator) VolumeName(bsdName string) (string, error) {
	return c.backend.VolumeName(stripDevPrefix(bsdName))
}
