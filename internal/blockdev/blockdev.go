// Package blockdev models the block devices reported by lsblk and decides
// which of them are eligible for SMART queries.
package blockdev

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TypeDisk is the lsblk TYPE of a physical disk.
const TypeDisk = "disk"

// BlockDevice is one top-level entry of lsblk output.
type BlockDevice struct {
	Name      string        `json:"name"`
	MajMin    string        `json:"maj:min"`
	Removable Flag          `json:"rm"`
	Size      string        `json:"size"`
	ReadOnly  Flag          `json:"ro"`
	Type      string        `json:"type"`
	Model     *string       `json:"model"`
	Serial    *string       `json:"serial"`
	WWN       *string       `json:"wwn"`
	Children  []BlockDevice `json:"children,omitempty"`
}

// Normalize trims vendor padding from model, serial and wwn. Values that
// are empty after trimming become absent.
func (d *BlockDevice) Normalize() {
	d.Model = trimmed(d.Model)
	d.Serial = trimmed(d.Serial)
	d.WWN = trimmed(d.WWN)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// Signature is the identity used as metric label and in log lines:
// "model_serial", "model" or the device name, in that order of preference.
func (d BlockDevice) Signature() string {
	switch {
	case d.Model != nil && d.Serial != nil:
		return *d.Model + "_" + *d.Serial
	case d.Model != nil:
		return *d.Model
	default:
		return d.Name
	}
}

// Path returns the device node, e.g. /dev/sda.
func (d BlockDevice) Path() string {
	return "/dev/" + d.Name
}

// Flag decodes lsblk boolean columns. Depending on the util-linux version
// they are emitted as true/false, "0"/"1" or 0/1.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid lsblk flag %s", data)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}
