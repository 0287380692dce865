//go:build unix

package hostinfo

import "golang.org/x/sys/unix"

func kernelVersion() (name, release string, err error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", "", err
	}
	return unix.ByteSliceToString(uts.Sysname[:]), unix.ByteSliceToString(uts.Release[:]), nil
}
