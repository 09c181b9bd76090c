// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jukebox is the library façade: it wires the transport, changer,
// media and diskarb packages into the upwards API a bulk-ripping workflow
// drives — connect once, inventory the changer, choreograph MOVE MEDIUM,
// then mount/rip/eject in a loop.
package jukebox

import (
	"time"

	"github.com/discbot/jukebox/changer"
	"github.com/discbot/jukebox/diskarb"
	"github.com/discbot/jukebox/media"
	"github.com/discbot/jukebox/sense"
	"github.com/discbot/jukebox/transport"
)

// Jukebox bundles a connected changer with the media locator and disk
// arbitration coordinator its MOVE MEDIUM choreography depends on.
type Jukebox struct {
	conn  *transport.Connection
	arb   *diskarb.Coordinator
	locat media.Locator
	trace changer.Trace
}

// Connect opens the changer connection (kernel-task backend, falling
// through to direct SBP-2) and readies the disk-arbitration coordinator and
// media locator. trace, if non-nil, receives the changer command layer's
// verbose element-status diagnostics.
func Connect(trace changer.Trace) (*Jukebox, error) {
	conn, err := transport.Connect()
	if err != nil {
		return nil, err
	}
	return &Jukebox{
		conn:  conn,
		arb:   diskarb.New(diskarb.NewDarwinBackend()),
		locat: media.DefaultLocator,
		trace: trace,
	}, nil
}

// Disconnect releases the changer connection. Idempotent.
func (j *Jukebox) Disconnect() error { return j.conn.Disconnect() }

// TestUnitReady issues TEST UNIT READY.
func (j *Jukebox) TestUnitReady() error { return changer.TestUnitReady(j.conn) }

// Inquiry returns the changer's INQUIRY identification.
func (j *Jukebox) Inquiry() (changer.DeviceInfo, error) { return changer.Inquiry(j.conn) }

// ModeSenseElement returns the changer's element address assignment.
func (j *Jukebox) ModeSenseElement() (changer.ElementMap, error) {
	return changer.ModeSenseElement(j.conn, j.trace)
}

// ReadElementStatus returns up to len(out) populated element statuses for
// elementType starting at start for count elements.
func (j *Jukebox) ReadElementStatus(elementType uint8, start, count uint16, out []changer.ElementStatus) (int, error) {
	return changer.ReadElementStatus(j.conn, elementType, start, count, out, j.trace)
}

// MoveMedium moves a cartridge from source to dest via transportAddr.
func (j *Jukebox) MoveMedium(transportAddr, source, dest uint16) error {
	return changer.MoveMedium(j.conn, transportAddr, source, dest)
}

// InitElementStatus asks the device to rescan all elements.
func (j *Jukebox) InitElementStatus() error { return changer.InitElementStatus(j.conn) }

// FindDVDDevice returns the BSD name of the first optical medium found, or
// ok=false if none is present.
func (j *Jukebox) FindDVDDevice() (bsdName string, ok bool, err error) {
	return j.locat.FindDiscDevice()
}

// WaitForDisc polls for an optical medium up to timeout.
func (j *Jukebox) WaitForDisc(timeout time.Duration) (string, error) {
	return media.WaitForDisc(j.locat, timeout)
}

// IsDiscPresent reports whether an optical medium is currently present.
func (j *Jukebox) IsDiscPresent() bool { return media.IsDiscPresent(j.locat) }

// MountDisc mounts bsdName, waiting up to timeout, and returns the mount point.
func (j *Jukebox) MountDisc(bsdName string, timeout time.Duration) (string, error) {
	return j.arb.Mount(bsdName, timeout)
}

// UnmountDisc unmounts bsdName.
func (j *Jukebox) UnmountDisc(bsdName string, force bool) error {
	return j.arb.Unmount(bsdName, force)
}

// EjectDisc ejects bsdName. See diskarb.Coordinator.Eject for the force-flag
// caveat: it is accepted but the underlying DiskArbitration call has no
// force option of its own.
func (j *Jukebox) EjectDisc(bsdName string, force bool) error {
	return j.arb.Eject(bsdName, force)
}

// IsMounted reports whether bsdName currently has a volume path.
func (j *Jukebox) IsMounted(bsdName string) (bool, error) { return j.arb.IsMounted(bsdName) }

// GetMountPoint returns the current volume path for bsdName.
func (j *Jukebox) GetMountPoint(bsdName string) (string, error) { return j.arb.MountPoint(bsdName) }

// GetVolumeName returns the current volume name for bsdName.
func (j *Jukebox) GetVolumeName(bsdName string) (string, error) { return j.arb.VolumeName(bsdName) }

// GetLastSense returns the sense data captured by the most recent
// CommandSense failure on the underlying connection.
func (j *Jukebox) GetLastSense() sense.Data { return j.conn.LastSense() }

// SenseString renders d the way the original CChangerLib's
// scsi_sense_string did, for display to an operator.
func SenseString(d sense.Data) string { return d.String() }

// Backend reports which transport backend the connection attached through.
func (j *Jukebox) Backend() transport.BackendKind { return j.conn.Backend() }
