//go:build linux

package hashid

import (
	"fmt"
	"os"
	"syscall"
)

// fileToken returns the identity token and the path form fed to the
// hash. Linux editors key workspaces by inode.
func fileToken(path string) (int64, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, "", err
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, "", fmt.Errorf("no stat data for %s", path)
	}
	return int64(st.Ino), path, nil
}
