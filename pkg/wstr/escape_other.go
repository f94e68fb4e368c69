//go:build !windows

package wstr

import "al.essio.dev/pkg/shellescape"

func escape(s string) string {
	return shellescape.Quote(s)
}
