package blockdev

import "regexp"

// Filter selects the devices that should be queried. It is read-only after
// construction and safe for concurrent use.
type Filter struct {
	excludes []*regexp.Regexp
}

// NewFilter returns a filter that rejects devices whose raw name matches
// any of excludes.
func NewFilter(excludes []*regexp.Regexp) *Filter {
	return &Filter{excludes: append([]*regexp.Regexp(nil), excludes...)}
}

// IsEligible reports whether d is a disk not excluded by name.
func (f *Filter) IsEligible(d BlockDevice) bool {
	if d.Type != TypeDisk {
		return false
	}
	return !f.Excluded(d.Name)
}

// Excluded reports whether name matches an exclusion pattern.
func (f *Filter) Excluded(name string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.excludes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Eligible returns the eligible devices in their original order.
func (f *Filter) Eligible(devices []BlockDevice) []BlockDevice {
	var result []BlockDevice
	for _, d := range devices {
		if f.IsEligible(d) {
			result = append(result, d)
		}
	}
	return result
}
