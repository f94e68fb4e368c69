//go:build !windows

package probe

import (
	"context"
	"net"
	"os"
	"path/filepath"
)

// Endpoint returns the unix socket path for name.
func Endpoint(name string) string {
	return filepath.Join(os.TempDir(), name+".sock")
}

// Listen opens the probe's unix socket, replacing a stale one.
func Listen(name string) (net.Listener, error) {
	path := Endpoint(name)
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0o700)
	return l, nil
}

// Dial connects to the probe listening on name.
func Dial(ctx context.Context, name string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", Endpoint(name))
}
