// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package media

/*
#cgo LDFLAGS: -framework CoreFoundation -framework IOKit
#include <IOKit/IOKitLib.h>
#include <IOKit/storage/IOMedia.h>
#include <stdlib.h>
#include <string.h>

// Matches the first instance of className, if any, and copies its "BSD
// Name" property into buf. Returns 1 if found, 0 if not, -1 on lookup error.
static int find_media_class(const char *className, char *buf, size_t buflen) {
    CFMutableDictionaryRef matching = IOServiceMatching(className);
    if (!matching) {
        return -1;
    }

    io_iterator_t iter = IO_OBJECT_NULL;
    if (IOServiceGetMatchingServices(kIOMasterPortDefault, matching, &iter) != KERN_SUCCESS) {
        return -1;
    }

    io_service_t service = IOIteratorNext(iter);
    IOObjectRelease(iter);
    if (service == IO_OBJECT_NULL) {
        return 0;
    }

    int found = 0;
    CFTypeRef bsdProp = IORegistryEntryCreateCFProperty(service, CFSTR("BSD Name"), kCFAllocatorDefault, 0);
    if (bsdProp && CFGetTypeID(bsdProp) == CFStringGetTypeID()) {
        if (CFStringGetCString((CFStringRef)bsdProp, buf, (CFIndex)buflen, kCFStringEncodingUTF8)) {
            found = 1;
        }
    }
    if (bsdProp) {
        CFRelease(bsdProp);
    }
    IOObjectRelease(service);
    return found;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// mediaClasses is queried in this fixed order: the original's DVD-then-CD
// fallback, extended with Blu-ray. These are the IOKit registry class names
// declared in IODVDMedia.h/IOCDMedia.h/IOBDMedia.h (kIODVDMediaClass etc.),
// spelled out here since cgo cannot resolve their extern-const declarations
// as compile-time Go constants.
var mediaClasses = []string{"IODVDMedia", "IOCDMedia", "IOBDMedia"}

func findDiscDevice() (string, bool, error) {
	for _, class := range mediaClasses {
		cClass := C.CString(class)
		var buf [64]C.char
		rc := C.find_media_class(cClass, &buf[0], C.size_t(len(buf)))
		C.free(unsafe.Pointer(cClass))

		switch rc {
		case 1:
			return C.GoString(&buf[0]), true, nil
		case -1:
			return "", false, fmt.Errorf("find_media_class(%s): lookup failed", class)
		}
	}
	return "", false, nil
}
