// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"testing"
	"time"

	"github.com/discbot/jukebox/cdb"
)

func withFakeSleep(t *testing.T) *int {
	t.Helper()
	calls := 0
	orig := sleepFunc
	sleepFunc = func(time.Duration) { calls++ }
	t.Cleanup(func() { sleepFunc = orig })
	return &calls
}

func TestWaitForDiscFindsImmediately(t *testing.T) {
	withFakeSleep(t)
	loc := locatorFunc(func() (string, bool, error) { return "disk3", true, nil })

	got, err := WaitForDisc(loc, time.Second)
	if err != nil {
		t.Fatalf("WaitForDisc: %v", err)
	}
	if got != "disk3" {
		t.Errorf("got %q, want disk3", got)
	}
}

func TestWaitForDiscFindsAfterPolls(t *testing.T) {
	withFakeSleep(t)
	attempts := 0
	loc := locatorFunc(func() (string, bool, error) {
		attempts++
		if attempts < 3 {
			return "", false, nil
		}
		return "disk5", true, nil
	})

	got, err := WaitForDisc(loc, time.Hour)
	if err != nil {
		t.Fatalf("WaitForDisc: %v", err)
	}
	if got != "disk5" {
		t.Errorf("got %q, want disk5", got)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWaitForDiscTimesOut(t *testing.T) {
	withFakeSleep(t)
	loc := locatorFunc(func() (string, bool, error) { return "", false, nil })

	_, err := WaitForDisc(loc, -time.Millisecond)
	if !errors.Is(err, cdb.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestWaitForDiscPropagatesLocatorError(t *testing.T) {
	withFakeSleep(t)
	wantErr := errors.New("registry lookup failed")
	loc := locatorFunc(func() (string, bool, error) { return "", false, wantErr })

	_, err := WaitForDisc(loc, time.Second)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestIsDiscPresent(t *testing.T) {
	present := locatorFunc(func() (string, bool, error) { return "disk1", true, nil })
	if !IsDiscPresent(present) {
		t.Error("IsDiscPresent() = false, want true")
	}

	absent := locatorFunc(func() (string, bool, error) { return "", false, nil })
	if IsDiscPresent(absent) {
		t.Error("IsDiscPresent() = true, want false")
	}

	errored := locatorFunc(func() (string, bool, error) { return "", false, errors.New("boom") })
	if IsDiscPresent(errored) {
		t.Error("IsDiscPresent() = true on error, want false")
	}
}

func TestDevicePath(t *testing.T) {
	cases := map[string]string{
		"disk3":      "/dev/disk3",
		"/dev/disk3": "/dev/disk3",
	}
	for in, want := range cases {
		if got := DevicePath(in); got != want {
			t.Errorf("DevicePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripDevPrefix(t *testing.T) {
	cases := map[string]string{
		"/dev/disk3": "disk3",
		"disk3":      "disk3",
	}
	for in, want := range cases {
		if got := StripDevPrefix(in); got != want {
			t.Errorf("StripDevPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
