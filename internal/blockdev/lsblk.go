package blockdev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"smartctlexporter/internal/command"
	"smartctlexporter/internal/logger"
)

// LsblkColumns are the columns requested from lsblk.
const LsblkColumns = "NAME,MAJ:MIN,RM,SIZE,RO,TYPE,MODEL,SERIAL,WWN"

type lsblkOutput struct {
	BlockDevices *[]BlockDevice `json:"blockdevices"`
}

// Enumerator lists block devices by running lsblk.
type Enumerator struct {
	runner command.Runner
	path   string
}

// NewEnumerator creates an Enumerator running the lsblk binary at path.
func NewEnumerator(runner command.Runner, path string) *Enumerator {
	if path == "" {
		path = "lsblk"
	}
	return &Enumerator{runner: runner, path: path}
}

// Args returns the lsblk command line arguments.
func (e *Enumerator) Args() []string {
	return []string{"-J", "-o", LsblkColumns}
}

// Enumerate runs lsblk and returns the top-level devices. Any failure is
// fatal for the caller's cycle; there is no partial result.
func (e *Enumerator) Enumerate(ctx context.Context) ([]BlockDevice, error) {
	out, err := e.runner.Run(ctx, e.path, e.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to run lsblk: %w", err)
	}

	devices, err := ParseLsblk(out)
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("lsblk")
	log.Debug().Int("devices", len(devices)).Msg("Block devices enumerated")
	return devices, nil
}

// ParseLsblk decodes `lsblk -J` output and normalizes every top-level entry.
func ParseLsblk(data []byte) ([]BlockDevice, error) {
	var out lsblkOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse lsblk JSON: %w", err)
	}
	if out.BlockDevices == nil {
		return nil, errors.New("lsblk output has no blockdevices field")
	}

	log := logger.WithComponent("lsblk")
	devices := make([]BlockDevice, 0, len(*out.BlockDevices))
	for _, d := range *out.BlockDevices {
		if d.Name == "" {
			log.Debug().Str("type", d.Type).Msg("Ignoring block device without name")
			continue
		}
		d.Normalize()
		devices = append(devices, d)
	}
	return devices, nil
}
