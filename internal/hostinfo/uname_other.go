//go:build !unix

package hostinfo

import "errors"

func kernelVersion() (string, string, error) {
	return "", "", errors.ErrUnsupported
}
