// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"log"

	"github.com/discbot/jukebox"
	"github.com/discbot/jukebox/changer"
)

var device = flag.String("device", "", "BSD name of a mounted optical medium to report mount state for (optional)")

func main() {
	flag.Parse()

	jb, err := jukebox.Connect(nil)
	if err != nil {
		log.Fatalf("jukebox.Connect: %v", err)
	}
	defer jb.Disconnect()

	m, err := jb.ModeSenseElement()
	if err != nil {
		log.Fatalf("ModeSenseElement: %v", err)
	}

	statuses := make([]changer.ElementStatus, m.SlotCount())
	n, err := jb.ReadElementStatus(changer.ElementStorage, m.Slots[0], uint16(m.SlotCount()), statuses)
	if err != nil {
		log.Fatalf("ReadElementStatus: %v", err)
	}

	var mountState *MountState
	if *device != "" {
		mounted, err := jb.IsMounted(*device)
		if err != nil {
			log.Printf("IsMounted(%s): %v", *device, err)
		} else {
			mountState = &MountState{Device: *device, Mounted: mounted}
		}
	}

	outputMetrics(m, statuses[:n], jb.GetLastSense(), mountState)
}
