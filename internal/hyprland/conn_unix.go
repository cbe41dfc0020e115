// conn_unix.go implements request socket discovery. Hyprland 0.40 and later
// put the instance directory under XDG_RUNTIME_DIR; older releases used /tmp.

//go:build !windows

package hyprland

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrIPCNotAvailable is returned when no Hyprland request socket can be reached.
var ErrIPCNotAvailable = errors.New("hyprland IPC not available")

// probeTimeout bounds each discovery dial.
const probeTimeout = 500 * time.Millisecond

// ///////////////////////////////////////////////
// Discovery
// ///////////////////////////////////////////////

// findSocket tries each candidate path in order and returns the first one
// that accepts a connection. The probe connection is closed immediately.
func findSocket(candidates []string) (string, error) {
	var lastErr error
	for _, path := range candidates {
		conn, err := net.DialTimeout("unix", path, probeTimeout)
		if err == nil {
			conn.Close()
			return path, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrIPCNotAvailable, lastErr)
	}
	return "", ErrIPCNotAvailable
}
