package bridge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/lantuya-core/internal/device"
)

// DevicesFile is the on-disk device registration list.
//
// Registrations carry the secrets and hints the cloud knows about each
// device: the local key, optional MAC address, advertised attribute codes,
// and an optional pinned code-to-name mapping.
type DevicesFile struct {
	Devices []device.DeviceData `yaml:"devices"`
}

// LoadDevices reads device registrations from a YAML file.
//
// Parameters:
//   - path: Path to the devices YAML file
//
// Returns:
//   - []device.DeviceData: Parsed registrations, in file order
//   - error: If the file cannot be read or parsed
func LoadDevices(path string) ([]device.DeviceData, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading devices file: %w", err)
	}

	var file DevicesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing devices file: %w", err)
	}

	return file.Devices, nil
}
