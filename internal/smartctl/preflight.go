package smartctl

import (
	"fmt"
	"os/exec"
)

// Preflight returns warnings about the environment smartctl will run in.
// None of them prevents startup.
func Preflight(opts Options) []string {
	var warnings []string

	path := opts.Path
	if path == "" {
		path = "smartctl"
	}
	if _, err := exec.LookPath(path); err != nil {
		warnings = append(warnings, fmt.Sprintf("%s not found: %v", path, err))
	}

	if opts.PrependSudo {
		sudo := opts.SudoPath
		if sudo == "" {
			sudo = "sudo"
		}
		if _, err := exec.LookPath(sudo); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s not found: %v", sudo, err))
		}
	} else if w := privilegeWarning(); w != "" {
		warnings = append(warnings, w)
	}

	return warnings
}
