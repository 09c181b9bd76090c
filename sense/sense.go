// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sense decodes fixed-format SCSI sense data and maps
// (sense key, ASC, ASCQ) triples to human-readable strings.
package sense

// Data is the sense triple captured from the last non-GOOD CDB status on a
// ChangerConnection. Valid is true iff the sense response code was a fixed
// format code (0x70 or 0x71).
type Data struct {
	Key   uint8
	ASC   uint8
	ASCQ  uint8
	Valid bool
}

// Parse extracts sense data from a raw auto-sense buffer as returned
// alongside a failing CDB. It follows the fixed sense format: response
// code in byte 0 (masked to 7 bits), sense key in the low nibble of byte 2,
// ASC in byte 12, ASCQ in byte 13.
func Parse(buf []byte) Data {
	if len(buf) < 8 {
		return Data{}
	}
	responseCode := buf[0] & 0x7F
	if responseCode != 0x70 && responseCode != 0x71 {
		return Data{}
	}

	d := Data{
		Key:   buf[2] & 0x0F,
		Valid: true,
	}
	if len(buf) >= 13 {
		d.ASC = buf[12]
	}
	if len(buf) >= 14 {
		d.ASCQ = buf[13]
	}
	return d
}

// String renders the sense data the way a changer operator reads it:
// resolved against the documented key/ASC/ASCQ table, falling back to a
// generic description per sense key.
func (d Data) String() string {
	if !d.Valid {
		return "No sense data"
	}

	switch d.Key {
	case 0x00:
		return "No sense"
	case 0x02: // NOT READY
		if d.ASC == 0x04 {
			switch d.ASCQ {
			case 0x00:
				return "Not ready, cause not reportable"
			case 0x01:
				return "Becoming ready"
			case 0x02:
				return "Need INITIALIZE ELEMENT STATUS"
			case 0x03:
				return "Manual intervention required"
			}
		}
		if d.ASC == 0x3A {
			return "Medium not present"
		}
		return "Not ready"
	case 0x05: // ILLEGAL REQUEST
		return illegalRequestString(d)
	case 0x06: // UNIT ATTENTION
		if d.ASC == 0x28 {
			return "Medium may have changed"
		}
		if d.ASC == 0x29 {
			return "Power on or reset"
		}
		return "Unit attention"
	case 0x0B: // ABORTED COMMAND
		if d.ASC == 0x3B {
			return positionErrorString(d)
		}
		return "Aborted command"
	default:
		return "Unknown error"
	}
}

func illegalRequestString(d Data) string {
	switch d.ASC {
	case 0x21:
		return "Invalid element address"
	case 0x24:
		return "Invalid field in CDB"
	case 0x3B:
		return positionErrorString(d)
	}
	return "Illegal request"
}

func positionErrorString(d Data) string {
	switch d.ASCQ {
	case 0x0D:
		return "Medium destination full"
	case 0x0E:
		return "Medium source empty"
	default:
		return "Element position error"
	}
}
