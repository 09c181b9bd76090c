// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cli holds the ambient tooling cmd/jukeboxctl wires in on top of
// the library proper: an interactive confirmation prompt and a --debug dump,
// adapted from pkg/cmdutil's kong.Resolver pattern.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ConfirmForceEject prompts an operator to confirm an eject requested with
// force=true before the caller is allowed to go through with it — per the
// design note that force eject should not silently promote without
// confirming intent upstream, since DADiskEject itself has no force option
// to refuse into. autoYes (the --force-yes flag) skips the prompt.
func ConfirmForceEject(bsdName string, autoYes bool) (bool, error) {
	if autoYes {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("force eject of %s requires confirmation, but stdin is not a terminal (use --force-yes)", bsdName)
	}

	fmt.Printf("Force eject %s? [y/N]: ", bsdName)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("could not read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
