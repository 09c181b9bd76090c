// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package changer

import (
	"crypto/sha1"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Fingerprint derives a stable identifier for a changer's physical layout
// from its INQUIRY identification and element map, so a caller can detect a
// reconnect landing on a different unit than the one last inventoried.
// Grounded in HashSedutilDTA's salted-PBKDF2 construction; here the "salt"
// is the fixed-width device identity rather than a drive serial, and the
// derived key is a fingerprint rather than a key-unlock credential, so a
// cheap single round suffices.
func Fingerprint(info DeviceInfo, m ElementMap) []byte {
	salt := fmt.Sprintf("%-8s%-16s%-4s", info.Vendor, info.Product, info.Revision)
	password := fmt.Sprintf("t=%d d=%d ie=%v(%d) slots=%d-%d",
		m.TransportAddr, m.DriveAddr, m.HasIE, m.IEAddr, firstSlot(m), len(m.Slots))
	return pbkdf2.Key([]byte(password), []byte(salt), 1, 20, sha1.New)
}

func firstSlot(m ElementMap) uint16 {
	if len(m.Slots) == 0 {
		return 0
	}
	return m.Slots[0]
}
