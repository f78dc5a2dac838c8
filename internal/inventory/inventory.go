package inventory

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Device describes an erasable target as reported by the platform.
// The Protected flag is advisory only: the safety validator derives its own
// protected-resource decision and never trusts this flag to allow anything.
type Device struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	SizeBytes  int64  `json:"sizeBytes"`
	Removable  bool   `json:"removable"`
	Protected  bool   `json:"protected"`
}

// Inventory enumerates erasable targets. Implementations are
// platform-specific collaborators; the orchestrator only consumes this
// interface.
type Inventory interface {
	ListTargets(ctx context.Context) ([]Device, error)
}

// Static serves a fixed device list, used in tests and for deployments that
// feed the inventory from a file.
type Static struct {
	devices []Device
}

func NewStatic(devices []Device) *Static {
	return &Static{devices: devices}
}

func (s *Static) ListTargets(_ context.Context) ([]Device, error) {
	out := make([]Device, len(s.devices))
	copy(out, s.devices)
	return out, nil
}

// NewFromFile loads a JSON device list from disk.
func NewFromFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading inventory file")
	}

	var devices []Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, errors.Wrap(err, "parsing inventory file")
	}
	return NewStatic(devices), nil
}

// Find returns the device whose identifier matches target, case-insensitively.
func Find(devices []Device, target string) (Device, bool) {
	for _, d := range devices {
		if strings.EqualFold(d.Identifier, target) {
			return d, true
		}
	}
	return Device{}, false
}
