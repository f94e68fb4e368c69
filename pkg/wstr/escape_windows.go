//go:build windows

package wstr

import "golang.org/x/sys/windows"

// escape follows the CommandLineToArgvW quoting rules.
func escape(s string) string {
	return windows.EscapeArg(s)
}
