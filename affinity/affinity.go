// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// CPU pinning for goroutines locked to their OS thread. Platform-specific
// implementations live in build-tagged files.

package affinity

import "errors"

// ErrNotSupported is returned where thread affinity is unavailable.
var ErrNotSupported = errors.New("affinity: not supported on this platform")

// Any means no pinning.
const Any = -1

// SetAffinity pins the calling OS thread to cpuID. The caller must hold
// runtime.LockOSThread, otherwise the goroutine may migrate off the
// pinned thread. Any is a no-op.
func SetAffinity(cpuID int) error {
	if cpuID == Any {
		return nil
	}
	if cpuID < 0 {
		return errors.New("affinity: negative cpu id")
	}
	return setAffinityPlatform(cpuID)
}
