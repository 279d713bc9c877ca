package device

// DeviceData is the registration record for one device, typically loaded
// from the devices file. Attributes preserves the order codes appear in the
// vendor registration; that order is what positional code mapping depends
// on.
type DeviceData struct {
	Name        string   `yaml:"name" json:"name"`
	ID          string   `yaml:"id" json:"id"`
	LocalKey    string   `yaml:"local_key" json:"local_key"`
	UID         string   `yaml:"uid,omitempty" json:"uid,omitempty"`
	Category    string   `yaml:"category,omitempty" json:"category,omitempty"`
	Attributes  []string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Model       string   `yaml:"model,omitempty" json:"model,omitempty"`
	ProductName string   `yaml:"product_name,omitempty" json:"product_name,omitempty"`
	ProductID   string   `yaml:"product_id,omitempty" json:"product_id,omitempty"`
	ProductKey  string   `yaml:"product_key,omitempty" json:"product_key,omitempty"`
	Mac         string   `yaml:"mac,omitempty" json:"mac,omitempty"`
	Online      bool     `yaml:"online,omitempty" json:"online,omitempty"`

	// IP and Version may be pre-seeded in the devices file or bound later
	// from a discovery result.
	IP      string `yaml:"ip,omitempty" json:"ip,omitempty"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// CodeToName, when present, pins the mapping from numeric data-point
	// codes to attribute codes explicitly, bypassing positional derivation.
	CodeToName map[string]string `yaml:"code_to_name,omitempty" json:"code_to_name,omitempty"`
}

// Command is a set of attribute writes keyed by generic attribute name.
type Command map[string]any
