package blockdev

import (
	"regexp"
	"testing"
)

func TestFilter_OnlyDisksAreEligible(t *testing.T) {
	f := NewFilter(nil)

	for _, typ := range []string{"rom", "part", "loop", "lvm", "raid1", ""} {
		if f.IsEligible(BlockDevice{Name: "x", Type: typ}) {
			t.Errorf("type %q should not be eligible", typ)
		}
	}
	if !f.IsEligible(BlockDevice{Name: "sda", Type: TypeDisk}) {
		t.Error("disk should be eligible")
	}
}

func TestFilter_ExcludePatternsMatchRawName(t *testing.T) {
	f := NewFilter([]*regexp.Regexp{
		regexp.MustCompile(`^sd[bc]$`),
		regexp.MustCompile(`^nvme1`),
	})

	tests := []struct {
		device BlockDevice
		want   bool
	}{
		{BlockDevice{Name: "sda", Type: TypeDisk}, true},
		{BlockDevice{Name: "sdb", Type: TypeDisk}, false},
		{BlockDevice{Name: "sdc", Type: TypeDisk}, false},
		{BlockDevice{Name: "nvme0n1", Type: TypeDisk}, true},
		{BlockDevice{Name: "nvme1n1", Type: TypeDisk}, false},
	}
	for _, tt := range tests {
		if got := f.IsEligible(tt.device); got != tt.want {
			t.Errorf("IsEligible(%s) = %v, want %v", tt.device.Name, got, tt.want)
		}
	}
}

// TestFilter_PatternIgnoresSignature checks that patterns are applied to the
// device name, never to model or serial.
func TestFilter_PatternIgnoresSignature(t *testing.T) {
	f := NewFilter([]*regexp.Regexp{regexp.MustCompile(`Samsung`)})

	d := BlockDevice{Name: "nvme0n1", Type: TypeDisk, Model: strPtr("Samsung SSD"), Serial: strPtr("S1")}
	if !f.IsEligible(d) {
		t.Error("pattern matching the model must not exclude the device")
	}
}

func TestFilter_NilFilterOnlyChecksType(t *testing.T) {
	var f *Filter
	if !f.IsEligible(BlockDevice{Name: "sda", Type: TypeDisk}) {
		t.Error("nil filter should accept disks")
	}
	if f.IsEligible(BlockDevice{Name: "sr0", Type: "rom"}) {
		t.Error("nil filter should still reject non-disks")
	}
}

func TestFilter_EligiblePreservesOrder(t *testing.T) {
	f := NewFilter([]*regexp.Regexp{regexp.MustCompile(`^sdb$`)})
	devices := []BlockDevice{
		{Name: "sdc", Type: TypeDisk},
		{Name: "sdb", Type: TypeDisk},
		{Name: "sr0", Type: "rom"},
		{Name: "sda", Type: TypeDisk},
	}

	got := f.Eligible(devices)
	if len(got) != 2 || got[0].Name != "sdc" || got[1].Name != "sda" {
		t.Errorf("unexpected eligible devices: %+v", got)
	}
}

func TestNewFilter_CopiesPatterns(t *testing.T) {
	patterns := []*regexp.Regexp{regexp.MustCompile(`^sda$`)}
	f := NewFilter(patterns)
	patterns[0] = regexp.MustCompile(`^sdb$`)

	if f.IsEligible(BlockDevice{Name: "sda", Type: TypeDisk}) {
		t.Error("filter should keep its own copy of the patterns")
	}
}
