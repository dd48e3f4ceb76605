//go:build linux

package kernel

import (
	"bytes"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	versionOnce sync.Once
	version     Version
	versionErr  error
)

const minParsedParts = 2

func parseKernelVersion(release string) (v Version, err error) {
	var partial string
	parsed, _ := fmt.Sscanf(release, "%d.%d%s", &v.Major, &v.Minor, &partial)
	if parsed < minParsedParts {
		err = fmt.Errorf("kernel: cannot parse release %q", release)
		return
	}
	// patch is best-effort; distro releases append flavor suffixes
	// (e.g. "6.8.0-45-generic") that Sscanf("-%d", ...) won't fully consume.
	fmt.Sscanf(partial, ".%d", &v.Patch)
	return
}

// Get returns the running kernel's parsed version, caching the result.
func Get() (Version, error) {
	versionOnce.Do(func() {
		var uts unix.Utsname
		if err := unix.Uname(&uts); err != nil {
			versionErr = err
			return
		}
		release := string(uts.Release[:bytes.IndexByte(uts.Release[:], 0)])
		version, versionErr = parseKernelVersion(release)
	})
	return version, versionErr
}
