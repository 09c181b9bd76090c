// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package changer

import "testing"

// buildModeSensePage1D assembles a minimal MODE SENSE(10) response with a
// zero-length block descriptor and an Element Address Assignment page.
func buildModeSensePage1D(transportAddr, firstStorage, numStorage, firstIE, numIE, driveAddr uint16) []byte {
	buf := make([]byte, 8+20)
	// mode data length / medium type / device-specific / block desc len = 0
	buf[6] = 0
	buf[7] = 0

	p := buf[8:]
	p[0] = 0x1D         // page code
	p[1] = 18           // page length
	q := p[2:]
	q[0], q[1] = byte(transportAddr>>8), byte(transportAddr)
	q[2], q[3] = 0, 1 // num transport (unused)
	q[4], q[5] = byte(firstStorage>>8), byte(firstStorage)
	q[6], q[7] = byte(numStorage>>8), byte(numStorage)
	q[8], q[9] = byte(firstIE>>8), byte(firstIE)
	q[10], q[11] = byte(numIE>>8), byte(numIE)
	q[12], q[13] = byte(driveAddr>>8), byte(driveAddr)
	q[14], q[15] = 0, 1 // num drive (unused)

	return buf
}

// TestParseModeSenseElementInventory is scenario S1: transport=0x00E0,
// first_storage=0, count=5, drive=0x0100, no IE.
func TestParseModeSenseElementInventory(t *testing.T) {
	buf := buildModeSensePage1D(0x00E0, 0x0000, 5, 0, 0, 0x0100)

	m, err := parseModeSenseElement(buf, nil)
	if err != nil {
		t.Fatalf("parseModeSenseElement: %v", err)
	}

	if m.TransportAddr != 0x00E0 {
		t.Errorf("TransportAddr = 0x%04X, want 0x00E0", m.TransportAddr)
	}
	if m.DriveAddr != 0x0100 {
		t.Errorf("DriveAddr = 0x%04X, want 0x0100", m.DriveAddr)
	}
	if m.HasIE {
		t.Errorf("HasIE = true, want false")
	}
	want := []uint16{0, 1, 2, 3, 4}
	if len(m.Slots) != len(want) {
		t.Fatalf("Slots = %v, want %v", m.Slots, want)
	}
	for i, s := range want {
		if m.Slots[i] != s {
			t.Errorf("Slots[%d] = %d, want %d", i, m.Slots[i], s)
		}
	}
}

// TestParseModeSenseElementSlotInvariant covers invariant 1: slots[i] -
// slots[0] == i for all i, for an arbitrary non-zero first_storage.
func TestParseModeSenseElementSlotInvariant(t *testing.T) {
	buf := buildModeSensePage1D(0x0010, 0x0020, 12, 0x0000, 0, 0x0030)

	m, err := parseModeSenseElement(buf, nil)
	if err != nil {
		t.Fatalf("parseModeSenseElement: %v", err)
	}
	if m.SlotCount() != 12 {
		t.Fatalf("SlotCount() = %d, want 12", m.SlotCount())
	}
	for i := range m.Slots {
		if m.Slots[i]-m.Slots[0] != uint16(i) {
			t.Errorf("Slots[%d]-Slots[0] = %d, want %d", i, m.Slots[i]-m.Slots[0], i)
		}
	}
}

func TestParseModeSenseElementWithIE(t *testing.T) {
	buf := buildModeSensePage1D(0x00E0, 0x0000, 5, 0x00F0, 1, 0x0100)

	m, err := parseModeSenseElement(buf, nil)
	if err != nil {
		t.Fatalf("parseModeSenseElement: %v", err)
	}
	if !m.HasIE || m.IEAddr != 0x00F0 {
		t.Errorf("HasIE/IEAddr = %v/0x%04X, want true/0x00F0", m.HasIE, m.IEAddr)
	}
}

func TestParseModeSenseElementWrongPageCode(t *testing.T) {
	buf := buildModeSensePage1D(0, 0, 0, 0, 0, 0)
	buf[8] = 0x01 // wrong page code

	if _, err := parseModeSenseElement(buf, nil); err == nil {
		t.Fatal("expected error for unexpected page code")
	}
}

// buildDescriptor appends a 12-byte storage/IE descriptor: 2-byte address,
// 1-byte flags, 6 reserved bytes, then source-valid flag and source address.
func buildDescriptor(addr uint16, full, exception, sourceValid bool, source uint16) []byte {
	d := make([]byte, 12)
	d[0], d[1] = byte(addr>>8), byte(addr)
	var flags byte
	if full {
		flags |= 0x01
	}
	if exception {
		flags |= 0x04
	}
	d[2] = flags
	if sourceValid {
		d[9] = 0x80
	}
	d[10], d[11] = byte(source>>8), byte(source)
	return d
}

func buildReadElementStatusResponse(pageType uint8, descs [][]byte) []byte {
	descLen := 0
	if len(descs) > 0 {
		descLen = len(descs[0])
	}
	pageBytes := descLen * len(descs)
	reportBytes := 8 + pageBytes

	buf := make([]byte, 8+reportBytes)
	buf[2], buf[3] = 0, byte(len(descs)) // num elem (unused by parser); first elem stays 0
	buf[5] = byte(reportBytes >> 16)
	buf[6] = byte(reportBytes >> 8)
	buf[7] = byte(reportBytes)

	page := buf[8:]
	page[0] = pageType
	page[2] = byte(descLen >> 8)
	page[3] = byte(descLen)
	page[5] = byte(pageBytes >> 16)
	page[6] = byte(pageBytes >> 8)
	page[7] = byte(pageBytes)

	off := 8
	for _, d := range descs {
		copy(page[off:], d)
		off += descLen
	}
	return buf
}

// TestReadElementStatusTwoDescriptors is scenario S6.
func TestReadElementStatusTwoDescriptors(t *testing.T) {
	descs := [][]byte{
		buildDescriptor(0x0010, true, false, false, 0),
		buildDescriptor(0x0011, false, false, false, 0),
	}
	buf := buildReadElementStatusResponse(ElementStorage, descs)

	out := make([]ElementStatus, 4)
	n, err := parseReadElementStatus(buf, ElementStorage, out, nil)
	if err != nil {
		t.Fatalf("parseReadElementStatus: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if out[0].Address != 0x0010 || !out[0].Full {
		t.Errorf("out[0] = %+v, want addr=0x0010 full=true", out[0])
	}
	if out[1].Address != 0x0011 || out[1].Full {
		t.Errorf("out[1] = %+v, want addr=0x0011 full=false", out[1])
	}
}

// TestReadElementStatusZeroReportBytes covers invariant 6.
func TestReadElementStatusZeroReportBytes(t *testing.T) {
	buf := make([]byte, 8)
	out := make([]ElementStatus, 4)
	n, err := parseReadElementStatus(buf, ElementStorage, out, nil)
	if err != nil {
		t.Fatalf("parseReadElementStatus: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
}

// TestReadElementStatusSkipsAllZeroStorageOnly covers invariant 7: an
// all-zero descriptor is skipped for a storage page but kept for any other
// element type (e.g. a drive page reporting an empty-but-valid slot).
func TestReadElementStatusSkipsAllZeroStorageOnly(t *testing.T) {
	zero := make([]byte, 12)
	descs := [][]byte{zero, buildDescriptor(0x0099, true, false, false, 0)}

	storageBuf := buildReadElementStatusResponse(ElementStorage, descs)
	out := make([]ElementStatus, 4)
	n, err := parseReadElementStatus(storageBuf, ElementStorage, out, nil)
	if err != nil {
		t.Fatalf("parseReadElementStatus (storage): %v", err)
	}
	if n != 1 {
		t.Fatalf("storage page: n = %d, want 1 (all-zero skipped)", n)
	}

	driveBuf := buildReadElementStatusResponse(ElementDrive, descs)
	n, err = parseReadElementStatus(driveBuf, ElementDrive, out, nil)
	if err != nil {
		t.Fatalf("parseReadElementStatus (drive): %v", err)
	}
	if n != 2 {
		t.Fatalf("drive page: n = %d, want 2 (all-zero kept outside storage)", n)
	}
}

// TestReadElementStatusNeverExceedsOutCapacity covers invariant 4: the
// number of populated entries never exceeds len(out) even if the device
// reports more descriptors than the caller allocated room for.
func TestReadElementStatusNeverExceedsOutCapacity(t *testing.T) {
	descs := [][]byte{
		buildDescriptor(1, true, false, false, 0),
		buildDescriptor(2, true, false, false, 0),
		buildDescriptor(3, true, false, false, 0),
	}
	buf := buildReadElementStatusResponse(ElementStorage, descs)

	out := make([]ElementStatus, 2)
	n, err := parseReadElementStatus(buf, ElementStorage, out, nil)
	if err != nil {
		t.Fatalf("parseReadElementStatus: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2 (capped at len(out))", n)
	}
}

func TestReadElementStatusNilOutIsJustChecking(t *testing.T) {
	descs := [][]byte{buildDescriptor(1, true, false, false, 0)}
	buf := buildReadElementStatusResponse(ElementStorage, descs)

	n, err := parseReadElementStatus(buf, ElementStorage, nil, nil)
	if err != nil {
		t.Fatalf("parseReadElementStatus: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0 for nil out", n)
	}
}

func TestReadElementStatusSourceAddress(t *testing.T) {
	descs := [][]byte{buildDescriptor(0x0020, true, true, true, 0x00E0)}
	buf := buildReadElementStatusResponse(ElementDrive, descs)

	out := make([]ElementStatus, 1)
	n, err := parseReadElementStatus(buf, ElementDrive, out, nil)
	if err != nil {
		t.Fatalf("parseReadElementStatus: %v", err)
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	if !out[0].Exception {
		t.Errorf("Exception = false, want true")
	}
	if !out[0].SourceValid || out[0].SourceAddress != 0x00E0 {
		t.Errorf("SourceValid/SourceAddress = %v/0x%04X, want true/0x00E0", out[0].SourceValid, out[0].SourceAddress)
	}
}

func TestTrimTrailingSpaces(t *testing.T) {
	cases := map[string]string{
		"ACME    ": "ACME",
		"NoSpace":  "NoSpace",
		"        ": "",
		"":         "",
	}
	for in, want := range cases {
		if got := trimTrailingSpaces([]byte(in)); got != want {
			t.Errorf("trimTrailingSpaces(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFingerprintStableForSameLayout(t *testing.T) {
	info := DeviceInfo{Vendor: "ACME", Product: "Jukebox 5000", Revision: "1.0"}
	m := ElementMap{TransportAddr: 0x00E0, DriveAddr: 0x0100, Slots: []uint16{0, 1, 2, 3, 4}}

	a := Fingerprint(info, m)
	b := Fingerprint(info, m)
	if len(a) == 0 {
		t.Fatal("Fingerprint returned empty result")
	}
	if string(a) != string(b) {
		t.Error("Fingerprint not stable for identical inputs")
	}

	other := m
	other.DriveAddr = 0x0200
	if string(Fingerprint(info, other)) == string(a) {
		t.Error("Fingerprint did not change for a different element map")
	}
}
