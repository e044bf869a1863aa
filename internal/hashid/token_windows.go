//go:build windows

package hashid

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

// fileToken returns the identity token and the path form fed to the
// hash. Windows editors key workspaces by creation time in milliseconds
// and hash the lowercased path.
func fileToken(path string) (int64, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, "", err
	}
	st, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return 0, "", fmt.Errorf("no stat data for %s", path)
	}
	ms := st.CreationTime.Nanoseconds() / 1e6
	return ms, strings.ToLower(path), nil
}
