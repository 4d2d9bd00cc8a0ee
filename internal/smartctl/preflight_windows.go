//go:build windows

package smartctl

// privilegeWarning is a no-op on Windows; smartctl there requires an
// elevated shell, which cannot be detected from the effective uid.
func privilegeWarning() string {
	return ""
}
