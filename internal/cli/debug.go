// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/discbot/jukebox/changer"
)

// DumpElementMap spew-dumps m when enabled (--debug), the way
// cmd/tcgsdiag/cmd/tcgstorage dump TCG structures for diagnosis.
func DumpElementMap(enabled bool, m changer.ElementMap) {
	if !enabled {
		return
	}
	spew.Dump(m)
}

// DumpElementStatuses spew-dumps statuses when enabled (--debug).
func DumpElementStatuses(enabled bool, statuses []changer.ElementStatus) {
	if !enabled {
		return
	}
	spew.Dump(statuses)
}
