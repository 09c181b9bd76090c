// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

// Direct SBP-2 backend (C4): the fallback path used when the kernel does
// not own the changer (so the kernel SCSI-task backend fails to attach).
// Logs in to the FireWire SBP-2 LUN directly, submits ORBs, and receives
// status via a run-loop callback. Transliterated from the shape described
// in spec 4.4; CChangerLib/sbp2.c itself was a thin stub in the original,
// so this follows the documented contract rather than copying that file.
package transport

/*
#cgo LDFLAGS: -framework CoreFoundation -framework IOKit
#include <IOKit/IOKitLib.h>
#include <IOKit/IOCFPlugIn.h>
#include <IOKit/firewire/IOFireWireLib.h>
#include <IOKit/sbp2/IOFireWireSBP2LibInterface.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    IOCFPlugInInterface **plugin;
    IOFireWireSBP2LibLUNInterface **lun;
    IOFireWireSBP2LibLoginInterface **login;
    CFRunLoopRef runLoop;
} sbp2Handle;

extern void goSBP2LoginCallback(void *refcon, int status);
extern void goSBP2StatusCallback(void *refcon, int event, unsigned char *statusBlock, int statusBlockLen);

static io_service_t find_sbp2_lun(void) {
    io_iterator_t iter = IO_OBJECT_NULL;
    io_service_t found = IO_OBJECT_NULL;
    CFMutableDictionaryRef matching = IOServiceMatching("IOFireWireSBP2LUN");
    if (!matching) {
        return IO_OBJECT_NULL;
    }
    if (IOServiceGetMatchingServices(kIOMasterPortDefault, matching, &iter) != KERN_SUCCESS) {
        return IO_OBJECT_NULL;
    }
    io_object_t service;
    while ((service = IOIteratorNext(iter)) != IO_OBJECT_NULL) {
        if (found == IO_OBJECT_NULL) {
            CFTypeRef typeProp = IORegistryEntryCreateCFProperty(service,
                CFSTR("Device Type"), kCFAllocatorDefault, 0);
            if (typeProp) {
                if (CFGetTypeID(typeProp) == CFNumberGetTypeID()) {
                    int devType = -1;
                    CFNumberGetValue((CFNumberRef)typeProp, kCFNumberIntType, &devType);
                    if (devType == 8) {
                        found = service;
                        CFRelease(typeProp);
                        continue;
                    }
                }
                CFRelease(typeProp);
            }
        }
        IOObjectRelease(service);
    }
    IOObjectRelease(iter);
    return found;
}

// sbp2_login_trampoline adapts the real FWSBP2LoginCallback ABI
// (void(*)(void*, FWSBP2LoginCompleteParamsPtr)) to the scalar-only
// goSBP2LoginCallback export, the same shape da_mount_callback uses to
// adapt DADiskMountCallback in the disk-arbitration backend.
static void sbp2_login_trampoline(void *refcon, FWSBP2LoginCompleteParamsPtr params) {
    int status = params ? (int)params->status : -1;
    goSBP2LoginCallback(refcon, status);
}

// sbp2_status_trampoline adapts the real FWSBP2StatusCallback ABI
// (void(*)(void*, FWSBP2NotifyParams*)) to the scalar-only
// goSBP2StatusCallback export.
static void sbp2_status_trampoline(void *refcon, FWSBP2NotifyParams *params) {
    if (!params) {
        goSBP2StatusCallback(refcon, -1, NULL, 0);
        return;
    }
    goSBP2StatusCallback(refcon, (int)params->notificationEvent,
        (unsigned char *)params->message, (int)params->length);
}

static sbp2Handle *sbp2_attach(void *refcon, char *errbuf, size_t errbuf_len) {
    io_service_t lunService = find_sbp2_lun();
    if (lunService == IO_OBJECT_NULL) {
        snprintf(errbuf, errbuf_len, "no FireWire SBP-2 medium-changer LUN found");
        return NULL;
    }

    IOCFPlugInInterface **plugin = NULL;
    SInt32 score = 0;
    kern_return_t kr = IOCreatePlugInInterfaceForService(lunService,
        kIOFireWireSBP2LibTypeID, kIOCFPlugInInterfaceID, &plugin, &score);
    IOObjectRelease(lunService);
    if (kr != KERN_SUCCESS || !plugin) {
        snprintf(errbuf, errbuf_len, "IOCreatePlugInInterfaceForService failed: 0x%x", kr);
        return NULL;
    }

    IOFireWireSBP2LibLUNInterface **lun = NULL;
    HRESULT hr = (*plugin)->QueryInterface(plugin,
        CFUUIDGetUUIDBytes(kIOFireWireSBP2LibLUNInterfaceID), (LPVOID *)&lun);
    if (hr != S_OK || !lun) {
        snprintf(errbuf, errbuf_len, "QueryInterface for SBP2LibLUNInterface failed");
        (*plugin)->Release(plugin);
        return NULL;
    }

    sbp2Handle *h = (sbp2Handle *)calloc(1, sizeof(sbp2Handle));
    h->plugin = plugin;
    h->lun = lun;
    h->runLoop = CFRunLoopGetCurrent();

    (*lun)->AddCallbackDispatcherToRunLoop(lun, h->runLoop);

    IOFireWireSBP2LibLoginInterface **login = (*lun)->Login(lun);
    if (!login) {
        snprintf(errbuf, errbuf_len, "Login() returned no login interface");
        (*lun)->Release(lun);
        (*plugin)->Release(plugin);
        free(h);
        return NULL;
    }
    h->login = login;

    (*login)->SetLoginFlags(login, kFWSBP2ExclusiveLogin);
    (*login)->SetLoginCallback(login, refcon, sbp2_login_trampoline);
    (*login)->SetStatusNotifyCallback(login, refcon, sbp2_status_trampoline);
    (*login)->SubmitLogin(login);

    return h;
}

static void sbp2_release(sbp2Handle *h) {
    if (!h) {
        return;
    }
    if (h->login) {
        (*h->login)->SubmitLogout(h->login);
        (*h->login)->Release(h->login);
    }
    if (h->lun) {
        (*h->lun)->RemoveCallbackDispatcherFromRunLoop(h->lun);
        (*h->lun)->Release(h->lun);
    }
    if (h->plugin) {
        (*h->plugin)->Release(h->plugin);
    }
    free(h);
}

static void sbp2_runloop_pump(sbp2Handle *h, double maxWaitSeconds) {
    CFRunLoopRunInMode(kCFRunLoopDefaultMode, maxWaitSeconds, true);
}

// Builds and submits one ORB. refcon identifies the Go-side waiter that
// goSBP2StatusCallback will signal.
static int sbp2_submit_orb(sbp2Handle *h, void *refcon,
    unsigned char *cdbBytes, int cdbLen,
    unsigned char *buf, int bufLen, int directionIsRead,
    unsigned int timeoutMs, char *errbuf, size_t errbuf_len) {

    if (!h || !h->login) {
        snprintf(errbuf, errbuf_len, "no active SBP-2 login");
        return -1;
    }

    IOFireWireSBP2LibORBInterface **orb = (*h->login)->CreateORB(h->login);
    if (!orb) {
        snprintf(errbuf, errbuf_len, "CreateORB failed");
        return -1;
    }

    UInt32 flags = kFWSBP2CommandCompleteNotify | kFWSBP2CommandNormalORB;
    if (directionIsRead) {
        flags |= kFWSBP2CommandTransferDataFromTarget;
    }
    (*orb)->SetCommandFlags(orb, flags);
    (*orb)->SetCommandTimeout(orb, timeoutMs);
    (*orb)->SetCommandBlock(orb, cdbBytes, (UInt32)cdbLen);

    if (bufLen > 0) {
        (*orb)->SetCommandBuffersAsRanges(orb, buf, (UInt32)bufLen, 0, 0, NULL);
    }

    (*orb)->SetRefCon(orb, refcon);
    (*h->login)->SubmitORB(h->login, orb);
    (*h->login)->RingDoorbell(h->login);

    (*orb)->Release(orb);
    return 0;
}
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"sync"
	"time"
	"unsafe"

	"github.com/discbot/jukebox/cdb"
	"github.com/discbot/jukebox/runloop"
)

// loginWaiter and statusWaiter are the "scoped owning handle" the design
// notes ask for in place of raw stack pointers passed into the callback:
// a cgo.Handle keeps the Go value alive exactly as long as the C side might
// still fire into it, and cancel marks it cancelled so a late callback after
// a timeout is ignored rather than writing into freed state.
type loginWaiter struct {
	mu       sync.Mutex
	done     bool
	status   C.int
	fired    bool
	canceled bool
}

func (w *loginWaiter) onLogin(status C.int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.canceled {
		return
	}
	w.status = status
	w.fired = true
	w.done = true
}

func (w *loginWaiter) cancel() {
	w.mu.Lock()
	w.canceled = true
	w.mu.Unlock()
}

func (w *loginWaiter) isDone() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

const (
	sbp2EventNormalCommandStatus = 0
)

type statusWaiter struct {
	mu       sync.Mutex
	done     bool
	event    C.int
	sense    []byte
	canceled bool
}

func (w *statusWaiter) onStatus(event C.int, statusBlock []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.canceled {
		return
	}
	w.event = event
	w.sense = statusBlock
	w.done = true
}

func (w *statusWaiter) cancel() {
	w.mu.Lock()
	w.canceled = true
	w.mu.Unlock()
}

func (w *statusWaiter) isDone() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

//export goSBP2LoginCallback
func goSBP2LoginCallback(refcon unsafe.Pointer, status C.int) {
	h := cgo.Handle(uintptr(refcon))
	if w, ok := h.Value().(*loginWaiter); ok {
		w.onLogin(status)
	}
}

//export goSBP2StatusCallback
func goSBP2StatusCallback(refcon unsafe.Pointer, event C.int, statusBlock *C.uchar, statusBlockLen C.int) {
	h := cgo.Handle(uintptr(refcon))
	if w, ok := h.Value().(*statusWaiter); ok {
		var sense []byte
		if statusBlockLen > 0 && statusBlock != nil {
			sense = C.GoBytes(unsafe.Pointer(statusBlock), statusBlockLen)
		}
		w.onStatus(event, sense)
	}
}

type sbp2Submitter struct {
	handle *C.sbp2Handle
	exec   runloop.Executor
}

// darwinRunLoopExecutor pumps the SBP-2 handle's attached run loop.
type darwinRunLoopExecutor struct {
	handle *C.sbp2Handle
}

func (e darwinRunLoopExecutor) Pump(maxWait time.Duration) bool {
	C.sbp2_runloop_pump(e.handle, C.double(maxWait.Seconds()))
	return true
}

// attachSbp2 implements C4's discovery+login sequence: open the LUN,
// schedule its callback dispatcher on the current run loop, request an
// exclusive login, and wait up to 5s for completion.
func attachSbp2() (cdb.Submitter, func() error, error) {
	waiter := &loginWaiter{}
	handleHandle := cgo.NewHandle(waiter)
	defer handleHandle.Delete()

	var errbuf [256]C.char
	h := C.sbp2_attach(unsafe.Pointer(uintptr(handleHandle)), &errbuf[0], C.size_t(len(errbuf)))
	if h == nil {
		return nil, nil, fmt.Errorf("%w: %s", cdb.ErrTransportUnavailable, C.GoString(&errbuf[0]))
	}

	exec := darwinRunLoopExecutor{handle: h}
	ok := runloop.WaitUntil(exec, waiter.isDone, 5*time.Second, 100*time.Millisecond)
	waiter.cancel()
	if !ok {
		C.sbp2_release(h)
		return nil, nil, fmt.Errorf("%w: SBP-2 login did not complete within 5s", cdb.ErrTransportUnavailable)
	}
	if waiter.status != 0 {
		C.sbp2_release(h)
		return nil, nil, fmt.Errorf("%w: SBP-2 login failed, status=0x%x", cdb.ErrTransportUnavailable, int(waiter.status))
	}

	s := &sbp2Submitter{handle: h, exec: darwinRunLoopExecutor{handle: h}}
	release := func() error {
		C.sbp2_release(h)
		return nil
	}
	return s, release, nil
}

func (s *sbp2Submitter) Submit(cdbBytes, buf []byte, dir cdb.Direction, timeout time.Duration) (cdb.RawResult, error) {
	waiter := &statusWaiter{}
	handle := cgo.NewHandle(waiter)
	defer handle.Delete()

	cCdb := C.CBytes(cdbBytes)
	defer C.free(cCdb)

	var bufPtr *C.uchar
	if len(buf) > 0 {
		bufPtr = (*C.uchar)(unsafe.Pointer(&buf[0]))
	}
	directionIsRead := C.int(0)
	if dir == cdb.DirRead {
		directionIsRead = 1
	}

	var errbuf [256]C.char
	rc := C.sbp2_submit_orb(
		s.handle, unsafe.Pointer(uintptr(handle)),
		(*C.uchar)(cCdb), C.int(len(cdbBytes)),
		bufPtr, C.int(len(buf)), directionIsRead,
		C.uint(timeout.Milliseconds()),
		&errbuf[0], C.size_t(len(errbuf)),
	)
	if rc != 0 {
		return cdb.RawResult{}, fmt.Errorf("sbp2 submit orb: %s", C.GoString(&errbuf[0]))
	}

	// Per spec 4.4: wait up to timeout_ms + 1s for the status-notify callback.
	ok := runloop.WaitUntil(s.exec, waiter.isDone, timeout+time.Second, 100*time.Millisecond)
	waiter.cancel()
	if !ok {
		return cdb.RawResult{}, cdb.ErrTimeout
	}
	if int(waiter.event) != sbp2EventNormalCommandStatus {
		return cdb.RawResult{SenseBuffer: waiter.sense}, fmt.Errorf("sbp2 status event=%d, want NormalCommandStatus", waiter.event)
	}

	return cdb.RawResult{
		Good:        true,
		SenseBuffer: waiter.sense,
		Transferred: len(buf),
	}, nil
}
