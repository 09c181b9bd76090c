// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package media

import "strings"

// DevicePath turns a bare BSD name ("disk3") or an already-qualified path
// ("/dev/disk3") into a full device path, for callers (e.g. a ripping tool)
// that need to open the node directly rather than go through DiskArbitration.
func DevicePath(bsdName string) string {
	if strings.HasPrefix(bsdName, "/") {
		return bsdName
	}
	return "/dev/" + bsdName
}

// StripDevPrefix is the inverse: it removes a leading "/dev/" so the name
// can be handed to DiskArbitration, which wants the bare BSD name.
func StripDevPrefix(name string) string {
	return strings.TrimPrefix(name, "/dev/")
}
