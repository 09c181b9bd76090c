// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

// Darwin disk-arbitration backend: wraps DiskArbitration.framework, one
// session+disk pair per operation, the way CChangerLib/mount.c does it, but
// non-blocking — the callback fires asynchronously and Coordinator pumps the
// run loop itself via runloop.Executor instead of mount.c's private
// da_runloop_wait spin.
package diskarb

/*
#cgo LDFLAGS: -framework CoreFoundation -framework DiskArbitration
#include <CoreFoundation/CoreFoundation.h>
#include <DiskArbitration/DiskArbitration.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    DASessionRef session;
    DADiskRef disk;
} daOpHandle;

extern void goDAMountCallback(void *refcon, int dissented, int status, char *mountPoint);
extern void goDAUnmountCallback(void *refcon, int dissented, int status);
extern void goDAEjectCallback(void *refcon, int dissented, int status);

static void da_mount_callback(DADiskRef disk, DADissenterRef dissenter, void *refcon) {
    char mountPointBuf[1024];
    memset(mountPointBuf, 0, sizeof(mountPointBuf));
    int dissented = 0, status = 0;
    if (dissenter) {
        dissented = 1;
        status = (int)DADissenterGetStatus(dissenter);
    } else if (disk) {
        CFDictionaryRef desc = DADiskCopyDescription(disk);
        if (desc) {
            CFURLRef path = CFDictionaryGetValue(desc, kDADiskDescriptionVolumePathKey);
            if (path) {
                CFURLGetFileSystemRepresentation(path, true, (UInt8 *)mountPointBuf, sizeof(mountPointBuf));
            }
            CFRelease(desc);
        }
    }
    goDAMountCallback(refcon, dissented, status, mountPointBuf);
}

static void da_unmount_callback(DADiskRef disk, DADissenterRef dissenter, void *refcon) {
    int dissented = 0, status = 0;
    if (dissenter) {
        dissented = 1;
        status = (int)DADissenterGetStatus(dissenter);
    }
    goDAUnmountCallback(refcon, dissented, status);
}

static void da_eject_callback(DADiskRef disk, DADissenterRef dissenter, void *refcon) {
    int dissented = 0, status = 0;
    if (dissenter) {
        dissented = 1;
        status = (int)DADissenterGetStatus(dissenter);
    }
    goDAEjectCallback(refcon, dissented, status);
}

static daOpHandle *da_open(const char *bsdName, char *errbuf, size_t errbuf_len) {
    DASessionRef session = DASessionCreate(kCFAllocatorDefault);
    if (!session) {
        snprintf(errbuf, errbuf_len, "DASessionCreate failed");
        return NULL;
    }
    DASessionScheduleWithRunLoop(session, CFRunLoopGetCurrent(), kCFRunLoopDefaultMode);

    DADiskRef disk = DADiskCreateFromBSDName(kCFAllocatorDefault, session, bsdName);
    if (!disk) {
        snprintf(errbuf, errbuf_len, "DADiskCreateFromBSDName failed for %s", bsdName);
        DASessionUnscheduleFromRunLoop(session, CFRunLoopGetCurrent(), kCFRunLoopDefaultMode);
        CFRelease(session);
        return NULL;
    }

    daOpHandle *h = (daOpHandle *)calloc(1, sizeof(daOpHandle));
    h->session = session;
    h->disk = disk;
    return h;
}

static daOpHandle *da_start_mount(const char *bsdName, void *refcon, char *errbuf, size_t errbuf_len) {
    daOpHandle *h = da_open(bsdName, errbuf, errbuf_len);
    if (!h) {
        return NULL;
    }
    DADiskMount(h->disk, NULL, kDADiskMountOptionDefault, da_mount_callback, refcon);
    return h;
}

static daOpHandle *da_start_unmount(const char *bsdName, int force, void *refcon, char *errbuf, size_t errbuf_len) {
    daOpHandle *h = da_open(bsdName, errbuf, errbuf_len);
    if (!h) {
        return NULL;
    }
    DADiskUnmountOptions options = kDADiskUnmountOptionDefault;
    if (force) {
        options |= kDADiskUnmountOptionForce;
    }
    DADiskUnmount(h->disk, options, da_unmount_callback, refcon);
    return h;
}

static daOpHandle *da_start_eject(const char *bsdName, void *refcon, char *errbuf, size_t errbuf_len) {
    daOpHandle *h = da_open(bsdName, errbuf, errbuf_len);
    if (!h) {
        return NULL;
    }
    // DADiskEject has no force option; the force flag is accepted by the Go
    // API above this backend and deliberately not threaded through here.
    DADiskEject(h->disk, kDADiskEjectOptionDefault, da_eject_callback, refcon);
    return h;
}

static void da_release(daOpHandle *h) {
    if (!h) {
        return;
    }
    if (h->disk) {
        CFRelease(h->disk);
    }
    if (h->session) {
        DASessionUnscheduleFromRunLoop(h->session, CFRunLoopGetCurrent(), kCFRunLoopDefaultMode);
        CFRelease(h->session);
    }
    free(h);
}

static void da_runloop_pump(double maxWaitSeconds) {
    CFRunLoopRunInMode(kCFRunLoopDefaultMode, maxWaitSeconds, true);
}

static int da_is_mounted(const char *bsdName) {
    DASessionRef session = DASessionCreate(kCFAllocatorDefault);
    if (!session) {
        return 0;
    }
    DADiskRef disk = DADiskCreateFromBSDName(kCFAllocatorDefault, session, bsdName);
    if (!disk) {
        CFRelease(session);
        return 0;
    }
    CFDictionaryRef desc = DADiskCopyDescription(disk);
    CFRelease(disk);
    CFRelease(session);
    if (!desc) {
        return 0;
    }
    CFURLRef path = CFDictionaryGetValue(desc, kDADiskDescriptionVolumePathKey);
    int mounted = path != NULL;
    CFRelease(desc);
    return mounted;
}

static int da_copy_mount_point(const char *bsdName, char *buf, size_t buflen) {
    DASessionRef session = DASessionCreate(kCFAllocatorDefault);
    if (!session) {
        return 0;
    }
    DADiskRef disk = DADiskCreateFromBSDName(kCFAllocatorDefault, session, bsdName);
    if (!disk) {
        CFRelease(session);
        return 0;
    }
    CFDictionaryRef desc = DADiskCopyDescription(disk);
    CFRelease(disk);
    CFRelease(session);
    if (!desc) {
        return 0;
    }
    int found = 0;
    CFURLRef path = CFDictionaryGetValue(desc, kDADiskDescriptionVolumePathKey);
    if (path && CFURLGetFileSystemRepresentation(path, true, (UInt8 *)buf, (CFIndex)buflen)) {
        found = 1;
    }
    CFRelease(desc);
    return found;
}

static int da_copy_volume_name(const char *bsdName, char *buf, size_t buflen) {
    DASessionRef session = DASessionCreate(kCFAllocatorDefault);
    if (!session) {
        return 0;
    }
    DADiskRef disk = DADiskCreateFromBSDName(kCFAllocatorDefault, session, bsdName);
    if (!disk) {
        CFRelease(session);
        return 0;
    }
    CFDictionaryRef desc = DADiskCopyDescription(disk);
    CFRelease(disk);
    CFRelease(session);
    if (!desc) {
        return 0;
    }
    int found = 0;
    CFStringRef volName = CFDictionaryGetValue(desc, kDADiskDescriptionVolumeNameKey);
    if (volName && CFGetTypeID(volName) == CFStringGetTypeID() &&
        CFStringGetCString(volName, buf, (CFIndex)buflen, kCFStringEncodingUTF8)) {
        found = 1;
    }
    CFRelease(desc);
    return found;
}
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"time"
	"unsafe"

	"github.com/discbot/jukebox/cdb"
	"github.com/discbot/jukebox/runloop"
)

//export goDAMountCallback
func goDAMountCallback(refcon unsafe.Pointer, dissented C.int, status C.int, mountPoint *C.char) {
	req, ok := cgo.Handle(uintptr(refcon)).Value().(*DaRequest)
	if !ok {
		return
	}
	mp := ""
	if mountPoint != nil {
		mp = C.GoString(mountPoint)
	}
	req.Complete(dissented != 0, int(status), mp, "")
}

//export goDAUnmountCallback
func goDAUnmountCallback(refcon unsafe.Pointer, dissented C.int, status C.int) {
	if req, ok := cgo.Handle(uintptr(refcon)).Value().(*DaRequest); ok {
		req.Complete(dissented != 0, int(status), "", "")
	}
}

//export goDAEjectCallback
func goDAEjectCallback(refcon unsafe.Pointer, dissented C.int, status C.int) {
	if req, ok := cgo.Handle(uintptr(refcon)).Value().(*DaRequest); ok {
		req.Complete(dissented != 0, int(status), "", "")
	}
}

type darwinExecutor struct{}

func (darwinExecutor) Pump(maxWait time.Duration) bool {
	C.da_runloop_pump(C.double(maxWait.Seconds()))
	return true
}

type darwinBackend struct{}

// NewDarwinBackend returns the DiskArbitration.framework-backed Backend.
func NewDarwinBackend() Backend { return darwinBackend{} }

func (darwinBackend) Executor() runloop.Executor { return darwinExecutor{} }

func (darwinBackend) start(bsdName string, req *DaRequest, open func(cName *C.char, refcon unsafe.Pointer, errbuf *C.char, errbufLen C.size_t) *C.daOpHandle) (func() error, error) {
	handle := cgo.NewHandle(req)
	cName := C.CString(bsdName)
	defer C.free(unsafe.Pointer(cName))

	var errbuf [256]C.char
	h := open(cName, unsafe.Pointer(uintptr(handle)), &errbuf[0], C.size_t(len(errbuf)))
	if h == nil {
		handle.Delete()
		return nil, fmt.Errorf("%w: %s", cdb.ErrTransportUnavailable, C.GoString(&errbuf[0]))
	}

	release := func() error {
		C.da_release(h)
		handle.Delete()
		return nil
	}
	return release, nil
}

func (b darwinBackend) StartMount(bsdName string, req *DaRequest) (func() error, error) {
	return b.start(bsdName, req, func(cName *C.char, refcon unsafe.Pointer, errbuf *C.char, errbufLen C.size_t) *C.daOpHandle {
		return C.da_start_mount(cName, refcon, errbuf, errbufLen)
	})
}

func (b darwinBackend) StartUnmount(bsdName string, force bool, req *DaRequest) (func() error, error) {
	forceFlag := C.int(0)
	if force {
		forceFlag = 1
	}
	return b.start(bsdName, req, func(cName *C.char, refcon unsafe.Pointer, errbuf *C.char, errbufLen C.size_t) *C.daOpHandle {
		return C.da_start_unmount(cName, forceFlag, refcon, errbuf, errbufLen)
	})
}

func (b darwinBackend) StartEject(bsdName string, force bool, req *DaRequest) (func() error, error) {
	return b.start(bsdName, req, func(cName *C.char, refcon unsafe.Pointer, errbuf *C.char, errbufLen C.size_t) *C.daOpHandle {
		return C.da_start_eject(cName, refcon, errbuf, errbufLen)
	})
}

func (darwinBackend) IsMounted(bsdName string) (bool, error) {
	cName := C.CString(bsdName)
	defer C.free(unsafe.Pointer(cName))
	return C.da_is_mounted(cName) != 0, nil
}

func (darwinBackend) MountPoint(bsdName string) (string, error) {
	cName := C.CString(bsdName)
	defer C.free(unsafe.Pointer(cName))
	var buf [1024]C.char
	if C.da_copy_mount_point(cName, &buf[0], C.size_t(len(buf))) == 0 {
		return "", cdb.ErrNotFound
	}
	return C.GoString(&buf[0]), nil
}

func (darwinBackend) VolumeName(bsdName string) (string, error) {
	cName := C.CString(bsdName)
	defer C.free(unsafe.Pointer(cName))
	var buf [256]C.char
	if C.da_copy_volume_name(cName, &buf[0], C.size_t(len(buf))) == 0 {
		return "", cdb.ErrNotFound
	}
	return C.GoString(&buf[0]), nil
}
