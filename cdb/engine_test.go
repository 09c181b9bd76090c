// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdb

import (
	"errors"
	"testing"
	"time"

	"github.com/discbot/jukebox/sense"
)

type fakeSubmitter struct {
	result RawResult
	err    error
}

func (f *fakeSubmitter) Submit(cdbBytes, buf []byte, dir Direction, timeout time.Duration) (RawResult, error) {
	return f.result, f.err
}

type fakeRecorder struct {
	last sense.Data
}

func (f *fakeRecorder) RecordSense(d sense.Data) { f.last = d }

func TestExecuteSuccess(t *testing.T) {
	s := &fakeSubmitter{result: RawResult{Good: true}}
	r := &fakeRecorder{}
	err := Execute(s, r, []byte{0x00}, nil, DirNone, 10*time.Second)
	if err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
}

func TestExecuteZeroLengthBufferRequiresDirNone(t *testing.T) {
	s := &fakeSubmitter{result: RawResult{Good: true}}
	r := &fakeRecorder{}
	err := Execute(s, r, []byte{0x00}, nil, DirRead, 10*time.Second)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Execute() = %v, want ErrInvalidArgument", err)
	}
}

func TestExecuteSenseOnBadStatus(t *testing.T) {
	senseBuf := make([]byte, 14)
	senseBuf[0] = 0x70
	senseBuf[2] = 0x05
	senseBuf[12] = 0x3B
	senseBuf[13] = 0x0E
	s := &fakeSubmitter{result: RawResult{Good: false, SenseBuffer: senseBuf}}
	r := &fakeRecorder{}

	err := Execute(s, r, []byte{0xA5}, nil, DirNone, time.Second)

	var se *SenseError
	if !errors.As(err, &se) {
		t.Fatalf("Execute() = %v, want *SenseError", err)
	}
	if se.Sense.Key != 0x05 || se.Sense.ASC != 0x3B || se.Sense.ASCQ != 0x0E {
		t.Errorf("sense = %+v, want key=5 asc=3b ascq=e", se.Sense)
	}
	// Invariant 2: get_last_sense().valid == true and matches the returned triple.
	if !r.last.Valid || r.last != se.Sense {
		t.Errorf("recorded sense %+v does not match returned sense %+v", r.last, se.Sense)
	}
}

func TestExecuteSenseExtractedEvenOnTransportError(t *testing.T) {
	senseBuf := make([]byte, 14)
	senseBuf[0] = 0x70
	senseBuf[2] = 0x06
	senseBuf[12] = 0x29
	s := &fakeSubmitter{
		result: RawResult{Good: false, SenseBuffer: senseBuf},
		err:    errors.New("host adapter busy"),
	}
	r := &fakeRecorder{}

	err := Execute(s, r, []byte{0x00}, nil, DirNone, time.Second)

	var se *SenseError
	if !errors.As(err, &se) {
		t.Fatalf("Execute() = %v, want *SenseError even though Submit also errored", err)
	}
	if se.Sense.Key != 0x06 || se.Sense.ASC != 0x29 {
		t.Errorf("sense = %+v, want key=6 asc=29", se.Sense)
	}
}

func TestExecuteTransportErrorNoSense(t *testing.T) {
	s := &fakeSubmitter{result: RawResult{Good: false}, err: errors.New("device vanished")}
	r := &fakeRecorder{}

	err := Execute(s, r, []byte{0x00}, nil, DirNone, time.Second)
	if !errors.Is(err, ErrCommandTransport) {
		t.Fatalf("Execute() = %v, want ErrCommandTransport", err)
	}
}

func TestExecuteTimeout(t *testing.T) {
	s := &fakeSubmitter{result: RawResult{}, err: ErrTimeout}
	r := &fakeRecorder{}

	err := Execute(s, r, []byte{0xA5}, nil, DirNone, time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() = %v, want ErrTimeout", err)
	}
}

func TestExecuteInvalidCDBLength(t *testing.T) {
	s := &fakeSubmitter{result: RawResult{Good: true}}
	r := &fakeRecorder{}

	if err := Execute(s, r, nil, nil, DirNone, time.Second); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty cdb: Execute() = %v, want ErrInvalidArgument", err)
	}
	if err := Execute(s, r, make([]byte, 17), nil, DirNone, time.Second); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("17-byte cdb: Execute() = %v, want ErrInvalidArgument", err)
	}
}
