// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package changer

import (
	"time"

	"github.com/discbot/jukebox/cdb"
	"github.com/discbot/jukebox/transport"
)

// Trace, if set, receives a line per parsed element-status page/descriptor,
// the way the original C traced every step to stderr. Nil by default so the
// command layer stays silent; cmd/jukeboxctl's --debug flag wires it to
// log.Printf.
type Trace func(format string, args ...any)

func (t Trace) emit(format string, args ...any) {
	if t != nil {
		t(format, args...)
	}
}

// TestUnitReady issues TEST UNIT READY: CDB 00 00 00 00 00 00, no data, 10s.
func TestUnitReady(conn *transport.Connection) error {
	cdbBytes := [6]byte{0x00}
	return conn.Execute(cdbBytes[:], nil, cdb.DirNone, 10*time.Second)
}

// Inquiry issues INQUIRY (CDB 12 00 00 00 60 00, 96-byte read, 10s) and
// parses the trimmed vendor/product/revision/device-type fields.
func Inquiry(conn *transport.Connection) (DeviceInfo, error) {
	cdbBytes := [6]byte{0x12, 0x00, 0x00, 0x00, 0x60, 0x00}
	buf := make([]byte, 96)

	if err := conn.Execute(cdbBytes[:], buf, cdb.DirRead, 10*time.Second); err != nil {
		return DeviceInfo{}, err
	}

	return DeviceInfo{
		DeviceType: buf[0] & 0x1F,
		Vendor:     trimTrailingSpaces(buf[8:16]),
		Product:    trimTrailingSpaces(buf[16:32]),
		Revision:   trimTrailingSpaces(buf[32:36]),
	}, nil
}

func trimTrailingSpaces(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// ModeSenseElement issues MODE SENSE(10) page 0x1D (Element Address
// Assignment) after first clearing any UNIT ATTENTION with up to 3 TEST UNIT
// READY attempts, 100ms apart, and parses the response into an ElementMap.
func ModeSenseElement(conn *transport.Connection, trace Trace) (ElementMap, error) {
	for i := 0; i < 3; i++ {
		if err := TestUnitReady(conn); err == nil {
			break
		}
		if i < 2 {
			time.Sleep(100 * time.Millisecond)
		}
	}

	const alloc = 256
	cdbBytes := [10]byte{0x5A, 0x08, 0x1D, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}
	buf := make([]byte, alloc)

	if err := conn.Execute(cdbBytes[:], buf, cdb.DirRead, 10*time.Second); err != nil {
		return ElementMap{}, err
	}

	return parseModeSenseElement(buf, trace)
}

// ReadElementStatus issues READ ELEMENT STATUS for elementType starting at
// start for count elements, returning the number of populated entries (which
// may be fewer than len(out), never more, and never exceeds count). Passing
// a nil out still executes the command and returns the device-reported
// count of zero populated entries (the original's "just checking" mode).
func ReadElementStatus(conn *transport.Connection, elementType uint8, start, count uint16, out []ElementStatus, trace Trace) (int, error) {
	alloc := uint32(8 + 8 + uint32(count)*24)
	if alloc < 4096 {
		alloc = 4096
	}
	if alloc > 0xFFFF {
		alloc = 0xFFFF
	}

	cdbBytes := [12]byte{
		0xB8, elementType & 0x0F,
		byte(start >> 8), byte(start),
		byte(count >> 8), byte(count),
		byte(alloc >> 16), byte(alloc >> 8), byte(alloc),
		0x00, 0x00, 0x00,
	}
	buf := make([]byte, alloc)

	if err := conn.Execute(cdbBytes[:], buf, cdb.DirRead, 30*time.Second); err != nil {
		return 0, err
	}

	if len(out) > int(count) {
		out = out[:count]
	}
	return parseReadElementStatus(buf, elementType, out, trace)
}

// MoveMedium issues MOVE MEDIUM (CDB A5 00 T1 T0 S1 S0 D1 D0 ... , 120s).
func MoveMedium(conn *transport.Connection, transportAddr, source, dest uint16) error {
	cdbBytes := [12]byte{
		0xA5, 0x00,
		byte(transportAddr >> 8), byte(transportAddr),
		byte(source >> 8), byte(source),
		byte(dest >> 8), byte(dest),
		0x00, 0x00, 0x00, 0x00,
	}
	return conn.Execute(cdbBytes[:], nil, cdb.DirNone, 120*time.Second)
}

// InitElementStatus issues INITIALIZE ELEMENT STATUS (CDB 07 00 00 00 00 00,
// 120s), asking the device to rescan all elements.
func InitElementStatus(conn *transport.Connection) error {
	cdbBytes := [6]byte{0x07}
	return conn.Execute(cdbBytes[:], nil, cdb.DirNone, 120*time.Second)
}
