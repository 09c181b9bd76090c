// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package changer implements the media-changer command layer (C6): typed
// wrappers over the CDB engine for TEST UNIT READY, INQUIRY, MODE SENSE
// page 0x1D, READ ELEMENT STATUS, MOVE MEDIUM and INITIALIZE ELEMENT STATUS,
// plus the parsers for the two structured responses.
package changer

// Element types, as encoded in READ ELEMENT STATUS's TT field and in the
// MODE SENSE Element Address Assignment page.
const (
	ElementAll       = 0x00
	ElementTransport = 0x01
	ElementStorage   = 0x02
	ElementIE        = 0x03
	ElementDrive     = 0x04
)

// ElementMap is the static layout of the changer, read once per session via
// ModeSenseElement. slots[i] == slots[0]+i always holds; SlotCount equals
// the device-reported storage-element count.
type ElementMap struct {
	TransportAddr uint16
	DriveAddr     uint16
	IEAddr        uint16
	HasIE         bool
	Slots         []uint16
}

// SlotCount is the number of storage slots in the map.
func (m ElementMap) SlotCount() int { return len(m.Slots) }

// ElementStatus is one element's volatile state from a READ ELEMENT STATUS
// page. Consumers must not cache it beyond the next state-changing command.
type ElementStatus struct {
	Address       uint16
	Full          bool
	Exception     bool
	SourceValid   bool
	SourceAddress uint16
}

// DeviceInfo is the trimmed INQUIRY identification: 8-char vendor, 16-char
// product, 4-char revision, and the 5-bit peripheral device type, with
// trailing ASCII spaces removed from each string field.
type DeviceInfo struct {
	DeviceType uint8
	Vendor     string
	Product    string
	Revision   string
}
