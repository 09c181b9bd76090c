// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sense

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want Data
	}{
		{"too short", []byte{0x70, 0, 0x06}, Data{}},
		{"not fixed format", append([]byte{0x72, 0, 0x06, 0, 0, 0, 0, 0}, make([]byte, 6)...), Data{}},
		{
			"full fixed sense",
			fixedSense(0x70, 0x06, 0x29, 0x00),
			Data{Key: 0x06, ASC: 0x29, ASCQ: 0x00, Valid: true},
		},
		{
			"response code 0x71 also fixed",
			fixedSense(0x71, 0x05, 0x3B, 0x0E),
			Data{Key: 0x05, ASC: 0x3B, ASCQ: 0x0E, Valid: true},
		},
		{
			"no ASCQ byte present",
			fixedSense(0x70, 0x02, 0x04, 0x00)[:13],
			Data{Key: 0x02, ASC: 0x04, ASCQ: 0x00, Valid: true},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Parse(c.buf)
			if got != c.want {
				t.Errorf("Parse(%x) = %+v, want %+v", c.buf, got, c.want)
			}
		})
	}
}

func fixedSense(responseCode, key, asc, ascq uint8) []byte {
	buf := make([]byte, 14)
	buf[0] = responseCode
	buf[2] = key
	buf[12] = asc
	buf[13] = ascq
	return buf
}

func TestStringTable(t *testing.T) {
	cases := []struct {
		d    Data
		want string
	}{
		{Data{}, "No sense data"},
		{Data{Valid: true, Key: 0x00}, "No sense"},
		{Data{Valid: true, Key: 0x02, ASC: 0x04, ASCQ: 0x00}, "Not ready, cause not reportable"},
		{Data{Valid: true, Key: 0x02, ASC: 0x04, ASCQ: 0x01}, "Becoming ready"},
		{Data{Valid: true, Key: 0x02, ASC: 0x04, ASCQ: 0x02}, "Need INITIALIZE ELEMENT STATUS"},
		{Data{Valid: true, Key: 0x02, ASC: 0x04, ASCQ: 0x03}, "Manual intervention required"},
		{Data{Valid: true, Key: 0x02, ASC: 0x3A, ASCQ: 0x01}, "Medium not present"},
		{Data{Valid: true, Key: 0x05, ASC: 0x21}, "Invalid element address"},
		{Data{Valid: true, Key: 0x05, ASC: 0x24}, "Invalid field in CDB"},
		{Data{Valid: true, Key: 0x05, ASC: 0x3B, ASCQ: 0x0D}, "Medium destination full"},
		{Data{Valid: true, Key: 0x05, ASC: 0x3B, ASCQ: 0x0E}, "Medium source empty"},
		{Data{Valid: true, Key: 0x0B, ASC: 0x3B, ASCQ: 0x0E}, "Medium source empty"},
		{Data{Valid: true, Key: 0x05, ASC: 0x3B, ASCQ: 0x01}, "Element position error"},
		{Data{Valid: true, Key: 0x06, ASC: 0x28}, "Medium may have changed"},
		{Data{Valid: true, Key: 0x06, ASC: 0x29}, "Power on or reset"},
		{Data{Valid: true, Key: 0x0F}, "Unknown error"},
	}
	for _, c := range cases {
		if got := c.d.String(); got != c.want {
			t.Errorf("%+v.String() = %q, want %q", c.d, got, c.want)
		}
	}
}

// S2 from the end-to-end scenarios: MOVE MEDIUM against a known-empty slot.
func TestScenarioS2MediumSourceEmpty(t *testing.T) {
	d := Data{Key: 0x05, ASC: 0x3B, ASCQ: 0x0E, Valid: true}
	if got := d.String(); got != "Medium source empty" {
		t.Errorf("S2 sense_string = %q, want %q", got, "Medium source empty")
	}
}
