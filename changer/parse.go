// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package changer

import (
	"fmt"

	"github.com/discbot/jukebox/cdb"
)

// parseModeSenseElement walks the MODE SENSE(10) header, its variable-length
// block descriptor, and the Element Address Assignment page (0x1D) that
// follows it.
func parseModeSenseElement(buf []byte, trace Trace) (ElementMap, error) {
	if len(buf) < 8 {
		return ElementMap{}, fmt.Errorf("%w: mode sense response too short: %d bytes", cdb.ErrProtocolParse, len(buf))
	}

	blockDescLen := uint32(buf[6])<<8 | uint32(buf[7])
	pageOffset := 8 + blockDescLen

	if pageOffset+18 > uint32(len(buf)) {
		return ElementMap{}, fmt.Errorf("%w: mode page too short: offset %d len %d", cdb.ErrProtocolParse, pageOffset, len(buf))
	}

	pageCode := buf[pageOffset] & 0x3F
	pageLen := buf[pageOffset+1]
	if pageCode != 0x1D || pageLen < 16 {
		return ElementMap{}, fmt.Errorf("%w: unexpected mode page 0x%02x len %d", cdb.ErrProtocolParse, pageCode, pageLen)
	}

	p := buf[pageOffset+2:]

	transportAddr := uint16(p[0])<<8 | uint16(p[1])

	firstStorage := uint16(p[4])<<8 | uint16(p[5])
	numStorage := uint16(p[6])<<8 | uint16(p[7])

	firstIE := uint16(p[8])<<8 | uint16(p[9])
	numIE := uint16(p[10])<<8 | uint16(p[11])

	driveAddr := uint16(p[12])<<8 | uint16(p[13])

	m := ElementMap{
		TransportAddr: transportAddr,
		DriveAddr:     driveAddr,
	}

	if numStorage > 0 {
		m.Slots = make([]uint16, numStorage)
		for i := range m.Slots {
			m.Slots[i] = firstStorage + uint16(i)
		}
	}

	if numIE > 0 {
		m.IEAddr = firstIE
		m.HasIE = true
	}

	trace.emit("mode sense element: transport=%d drive=%d slots=%d ie=%v(%d)",
		m.TransportAddr, m.DriveAddr, len(m.Slots), m.HasIE, m.IEAddr)

	return m, nil
}

// parseReadElementStatus walks the READ ELEMENT STATUS response: an 8-byte
// overall header, one or more 8-byte element-type page headers each followed
// by fixed-length descriptors, writing up to len(out) populated entries into
// out and returning how many it wrote. A nil out still parses the header for
// its report byte count and returns 0 without touching descriptors, mirroring
// the original's "just checking" mode.
func parseReadElementStatus(buf []byte, elementType uint8, out []ElementStatus, trace Trace) (int, error) {
	if len(buf) < 8 {
		return 0, fmt.Errorf("%w: read element status response too short: %d bytes", cdb.ErrProtocolParse, len(buf))
	}

	reportBytes := uint32(buf[5])<<16 | uint32(buf[6])<<8 | uint32(buf[7])

	trace.emit("read element status type=%d: report_bytes=%d", elementType, reportBytes)

	if reportBytes == 0 {
		return 0, nil
	}
	if out == nil {
		return 0, nil
	}

	statusIdx := 0
	offset := uint32(8)
	end := 8 + reportBytes
	if end > uint32(len(buf)) {
		end = uint32(len(buf))
	}

	for offset+8 <= end && statusIdx < len(out) {
		pageType := buf[offset] & 0x0F
		descLen := uint32(buf[offset+2])<<8 | uint32(buf[offset+3])
		pageBytes := uint32(buf[offset+5])<<16 | uint32(buf[offset+6])<<8 | uint32(buf[offset+7])

		trace.emit("  page header: type=%d desc_len=%d page_bytes=%d", pageType, descLen, pageBytes)

		offset += 8

		if descLen == 0 || pageBytes == 0 {
			break
		}

		pageEnd := offset + pageBytes
		if pageEnd > end {
			pageEnd = end
		}

		for offset+descLen <= pageEnd && statusIdx < len(out) {
			if descLen < 2 {
				offset = pageEnd
				break
			}

			addr := uint16(buf[offset])<<8 | uint16(buf[offset+1])
			flags := buf[offset+2]

			allZero := true
			limit := descLen
			if limit > 12 {
				limit = 12
			}
			for i := uint32(0); i < limit; i++ {
				if buf[offset+i] != 0 {
					allZero = false
					break
				}
			}

			if !allZero || pageType != ElementStorage {
				es := ElementStatus{
					Address:   addr,
					Full:      flags&0x01 != 0,
					Exception: flags&0x04 != 0,
				}
				if descLen >= 12 {
					es.SourceValid = buf[offset+9]&0x80 != 0
					es.SourceAddress = uint16(buf[offset+10])<<8 | uint16(buf[offset+11])
				}

				trace.emit("  element: addr=%d full=%v except=%v src_valid=%v src=%d",
					addr, es.Full, es.Exception, es.SourceValid, es.SourceAddress)

				out[statusIdx] = es
				statusIdx++
			} else {
				trace.emit("  element: addr=%d skipped (all-zero storage)", addr)
			}

			offset += descLen
		}

		if offset < pageEnd {
			offset = pageEnd
		}
	}

	return statusIdx, nil
}
