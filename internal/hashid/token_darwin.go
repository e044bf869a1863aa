//go:build darwin

package hashid

import (
	"fmt"
	"os"
	"syscall"
)

// fileToken returns the identity token and the path form fed to the
// hash. macOS editors key workspaces by birthtime in milliseconds.
func fileToken(path string) (int64, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, "", err
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, "", fmt.Errorf("no stat data for %s", path)
	}
	ms := st.Birthtimespec.Sec*1000 + st.Birthtimespec.Nsec/1e6
	return ms, path, nil
}
