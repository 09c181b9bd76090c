// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !darwin

package transport

import (
	"fmt"

	"github.com/discbot/jukebox/cdb"
)

// Both changer backends are Darwin-only: the kernel SCSI-task user client
// and FireWire SBP-2 login are IOKit/DiskArbitration facilities with no
// equivalent here. Non-Darwin builds report TransportUnavailable so the rest
// of the module still links on other platforms.

func attachKernelTask() (cdb.Submitter, bool, func() error, error) {
	return nil, false, nil, fmt.Errorf("%w: kernel SCSI-task backend requires darwin", cdb.ErrTransportUnavailable)
}

func attachSbp2() (cdb.Submitter, func() error, error) {
	return nil, nil, fmt.Errorf("%w: SBP-2 backend requires darwin", cdb.ErrTransportUnavailable)
}
