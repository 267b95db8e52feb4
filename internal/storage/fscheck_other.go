//go:build !darwin && !linux

package storage

import "errors"

func fsTypeOf(string) (string, error) {
	return "", errors.New("unsupported platform")
}
