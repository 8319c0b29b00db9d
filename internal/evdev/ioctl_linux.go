package evdev

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// EventSize is the input_event size on this platform.
const EventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uint32) uintptr {
	return uintptr((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

// IO is _IO(typ, nr).
func IO(typ byte, nr uint32) uintptr { return ioc(iocNone, uint32(typ), nr, 0) }

// IOW is _IOW(typ, nr, size).
func IOW(typ byte, nr uint32, size uintptr) uintptr {
	return ioc(iocWrite, uint32(typ), nr, uint32(size))
}

// IOR is _IOR(typ, nr, size).
func IOR(typ byte, nr uint32, size uintptr) uintptr {
	return ioc(iocRead, uint32(typ), nr, uint32(size))
}

// Ioctl issues req on fd with a pointer argument.
func Ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// IoctlInt issues req on fd with an integer argument.
func IoctlInt(fd int, req uintptr, v int) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(v))
	if errno != 0 {
		return errno
	}
	return nil
}

// GetAbsInfo reads EVIOCGABS(code).
func GetAbsInfo(fd int, code int) (AbsInfo, error) {
	var info AbsInfo
	req := IOR('E', uint32(0x40+code), unsafe.Sizeof(info))
	if err := Ioctl(fd, req, unsafe.Pointer(&info)); err != nil {
		return AbsInfo{}, err
	}
	return info, nil
}

// Grab takes the device exclusively (EVIOCGRAB).
func Grab(fd int) error {
	var one int32 = 1
	return Ioctl(fd, IOW('E', 0x90, unsafe.Sizeof(one)), unsafe.Pointer(&one))
}
