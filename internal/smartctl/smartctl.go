// Package smartctl queries a device's SMART data with smartctl's JSON output.
package smartctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"smartctlexporter/internal/blockdev"
	"smartctlexporter/internal/command"
	"smartctlexporter/internal/logger"
	"smartctlexporter/internal/rules"
)

// Power modes accepted by smartctl -n.
var PowerModes = []string{"never", "sleep", "standby", "idle"}

// Options configures how smartctl is invoked.
type Options struct {
	Path        string
	PrependSudo bool
	SudoPath    string
	// PowerMode is passed to -n so spun-down disks are not woken up.
	PowerMode string
}

// Client runs smartctl for one device at a time.
type Client struct {
	runner command.Runner
	opts   Options
}

// NewClient creates a Client, filling unset options with defaults.
func NewClient(runner command.Runner, opts Options) *Client {
	if opts.Path == "" {
		opts.Path = "smartctl"
	}
	if opts.SudoPath == "" {
		opts.SudoPath = "sudo"
	}
	if opts.PowerMode == "" {
		opts.PowerMode = "standby"
	}
	return &Client{runner: runner, opts: opts}
}

// Args returns the program and arguments used to query dev.
func (c *Client) Args(dev blockdev.BlockDevice) (string, []string) {
	args := []string{"-n", c.opts.PowerMode, "-a", "-j", dev.Path()}
	if c.opts.PrependSudo {
		return c.opts.SudoPath, append([]string{c.opts.Path}, args...)
	}
	return c.opts.Path, args
}

// Query runs smartctl for dev and parses its JSON output.
//
// smartctl encodes disk health in its exit status, so a non-zero exit that
// still produced output is not treated as a failure; the document is handed
// to the rule engine as usual.
func (c *Client) Query(ctx context.Context, dev blockdev.BlockDevice) (rules.Document, error) {
	log := logger.WithComponent("smartctl")
	name, args := c.Args(dev)

	out, err := c.runner.Run(ctx, name, args...)
	if err != nil {
		var cmdErr *command.Error
		if !errors.As(err, &cmdErr) || cmdErr.ExitCode <= 0 || len(bytes.TrimSpace(out)) == 0 {
			return rules.Document{}, fmt.Errorf("failed to query %s: %w", dev.Path(), err)
		}
		log.Debug().
			Str("device", dev.Signature()).
			Int("exit_code", cmdErr.ExitCode).
			Strs("status", ExitStatus(cmdErr.ExitCode)).
			Msg("smartctl exited with non-zero status")
	}

	doc, err := rules.ParseDocument(out)
	if err != nil {
		return rules.Document{}, fmt.Errorf("invalid smartctl output for %s: %w", dev.Path(), err)
	}
	return doc, nil
}

var exitBits = []string{
	"command line did not parse",
	"device open failed or device in low-power mode",
	"SMART command failed or checksum error",
	"SMART status reports disk failing",
	"prefail attributes at or below threshold",
	"attributes were at or below threshold in the past",
	"error log contains errors",
	"self-test log contains errors",
}

// ExitStatus decodes smartctl's exit status bit mask.
func ExitStatus(code int) []string {
	var status []string
	for i, s := range exitBits {
		if code&(1<<i) != 0 {
			status = append(status, s)
		}
	}
	return status
}
