//go:build !linux

package kernel

import "syscall"

// Get always fails on non-Linux platforms: fibio's backend is Linux-only.
func Get() (Version, error) {
	return Version{}, syscall.EINVAL
}
