// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import "testing"

func TestConfirmForceEjectAutoYesSkipsPrompt(t *testing.T) {
	ok, err := ConfirmForceEject("disk3", true)
	if err != nil {
		t.Fatalf("ConfirmForceEject: %v", err)
	}
	if !ok {
		t.Error("autoYes=true should confirm without prompting")
	}
}

func TestConfirmForceEjectRefusesNonInteractiveStdin(t *testing.T) {
	// Under `go test`, stdin is not a terminal, so this exercises the
	// refuse-rather-than-block path without needing a real tty.
	ok, err := ConfirmForceEject("disk3", false)
	if err == nil {
		t.Fatal("expected an error when stdin is not a terminal")
	}
	if ok {
		t.Error("ok should be false alongside the error")
	}
}
