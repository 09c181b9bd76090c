// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/discbot/jukebox"
	"github.com/discbot/jukebox/changer"
	jbcli "github.com/discbot/jukebox/internal/cli"
)

var logger = log.New(os.Stderr, "jukeboxctl: ", log.LstdFlags)

// context is the context struct required by kong command line parser
type context struct{}

type inventoryCmd struct {
	Debug bool `flag:"" optional:"" help:"Dump the raw element map and status pages"`
}

type moveCmd struct {
	Transport uint16 `flag:"" required:"" help:"Transport element address"`
	Source    uint16 `flag:"" required:"" short:"s" help:"Source element address"`
	Dest      uint16 `flag:"" required:"" short:"d" help:"Destination element address"`
}

type mountCmd struct {
	Device  string        `flag:"" required:"" short:"D" help:"BSD name or /dev path of the optical medium"`
	Timeout time.Duration `flag:"" optional:"" default:"30s" help:"How long to wait for the mount to complete"`
}

type unmountCmd struct {
	Device string `flag:"" required:"" short:"D" help:"BSD name or /dev path of the optical medium"`
	Force  bool   `flag:"" optional:"" help:"Force unmount"`
}

type ejectCmd struct {
	Device    string `flag:"" required:"" short:"D" help:"BSD name or /dev path of the optical medium"`
	Force     bool   `flag:"" optional:"" help:"Request a forced eject (requires confirmation)"`
	ForceYes  bool   `flag:"" optional:"" name:"force-yes" help:"Skip the force-eject confirmation prompt"`
}

type scanCmd struct {
	Timeout time.Duration `flag:"" optional:"" default:"30s" help:"How long to wait for a disc to appear"`
}

// cli is the main command line interface struct required by kong command line parser
var cli struct {
	Inventory inventoryCmd `cmd:"" help:"Inventory the changer's element map and current occupancy"`
	Move      moveCmd      `cmd:"" help:"Move a cartridge between elements"`
	Mount     mountCmd     `cmd:"" help:"Mount an optical medium"`
	Unmount   unmountCmd   `cmd:"" help:"Unmount an optical medium"`
	Eject     ejectCmd     `cmd:"" help:"Eject an optical medium"`
	Scan      scanCmd      `cmd:"" help:"Wait for and report an optical medium"`
}

func connectTraced(debug bool) (*jukebox.Jukebox, error) {
	var trace changer.Trace
	if debug {
		trace = func(format string, args ...any) { logger.Printf(format, args...) }
	}
	return jukebox.Connect(trace)
}

func (c *inventoryCmd) Run(ctx *context) error {
	jb, err := connectTraced(c.Debug)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer jb.Disconnect()

	info, err := jb.Inquiry()
	if err != nil {
		return fmt.Errorf("inquiry: %w", err)
	}
	fmt.Printf("device: %s %s rev %s (type %d)\n", info.Vendor, info.Product, info.Revision, info.DeviceType)

	m, err := jb.ModeSenseElement()
	if err != nil {
		return fmt.Errorf("mode sense element: %w", err)
	}
	jbcli.DumpElementMap(c.Debug, m)
	fmt.Printf("transport=0x%04x drive=0x%04x slots=%d", m.TransportAddr, m.DriveAddr, m.SlotCount())
	if m.HasIE {
		fmt.Printf(" ie=0x%04x", m.IEAddr)
	}
	fmt.Println()

	statuses := make([]changer.ElementStatus, m.SlotCount())
	n, err := jb.ReadElementStatus(changer.ElementStorage, m.Slots[0], uint16(m.SlotCount()), statuses)
	if err != nil {
		return fmt.Errorf("read element status: %w", err)
	}
	jbcli.DumpElementStatuses(c.Debug, statuses[:n])
	for _, s := range statuses[:n] {
		fmt.Printf("  slot 0x%04x: full=%v exception=%v\n", s.Address, s.Full, s.Exception)
	}

	return nil
}

func (c *moveCmd) Run(ctx *context) error {
	jb, err := connectTraced(false)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer jb.Disconnect()

	if err := jb.MoveMedium(c.Transport, c.Source, c.Dest); err != nil {
		return fmt.Errorf("move medium %d -> %d: %w", c.Source, c.Dest, err)
	}
	fmt.Printf("moved %d -> %d\n", c.Source, c.Dest)
	return nil
}

func (c *mountCmd) Run(ctx *context) error {
	jb, err := connectTraced(false)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer jb.Disconnect()

	mp, err := jb.MountDisc(c.Device, c.Timeout)
	if err != nil {
		return fmt.Errorf("mount %s: %w", c.Device, err)
	}
	fmt.Println(mp)
	return nil
}

func (c *unmountCmd) Run(ctx *context) error {
	jb, err := connectTraced(false)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer jb.Disconnect()

	if err := jb.UnmountDisc(c.Device, c.Force); err != nil {
		return fmt.Errorf("unmount %s: %w", c.Device, err)
	}
	return nil
}

func (c *ejectCmd) Run(ctx *context) error {
	jb, err := connectTraced(false)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer jb.Disconnect()

	if c.Force {
		confirmed, err := jbcli.ConfirmForceEject(c.Device, c.ForceYes)
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("force eject of %s not confirmed", c.Device)
		}
	}

	if err := jb.EjectDisc(c.Device, c.Force); err != nil {
		return fmt.Errorf("eject %s: %w", c.Device, err)
	}
	return nil
}

func (c *scanCmd) Run(ctx *context) error {
	jb, err := connectTraced(false)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer jb.Disconnect()

	bsdName, err := jb.WaitForDisc(c.Timeout)
	if err != nil {
		return fmt.Errorf("wait for disc: %w", err)
	}
	fmt.Println(bsdName)
	return nil
}
