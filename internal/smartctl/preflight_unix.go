//go:build !windows

package smartctl

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// privilegeWarning reports when smartctl will run without root.
func privilegeWarning() string {
	if euid := unix.Geteuid(); euid != 0 {
		return fmt.Sprintf("running as uid %d without sudo, smartctl will likely fail to open devices", euid)
	}
	return ""
}
