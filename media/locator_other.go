// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !darwin

package media

import (
	"fmt"

	"github.com/discbot/jukebox/cdb"
)

func findDiscDevice() (string, bool, error) {
	return "", false, fmt.Errorf("%w: media locator requires darwin", cdb.ErrTransportUnavailable)
}
