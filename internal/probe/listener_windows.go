//go:build windows

package probe

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// pipeSecurityDescriptor grants full access to SYSTEM, Administrators and
// the pipe's creator only.
const pipeSecurityDescriptor = "D:(A;;GA;;;SY)(A;;GA;;;BA)(A;;GA;;;CO)"

// Endpoint returns the pipe path for name.
func Endpoint(name string) string {
	return `\\.\pipe\` + name
}

// Listen opens the probe's named pipe.
func Listen(name string) (net.Listener, error) {
	return winio.ListenPipe(Endpoint(name), &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
	})
}

// Dial connects to the probe listening on name.
func Dial(ctx context.Context, name string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, Endpoint(name))
}
