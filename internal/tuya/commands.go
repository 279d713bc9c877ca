package tuya

import "fmt"

// Version identifies a Tuya LAN protocol generation.
type Version string

// Supported protocol generations.
const (
	Version31 Version = "3.1"
	Version33 Version = "3.3"
)

// Valid reports whether v is a generation this package speaks.
func (v Version) Valid() bool {
	return v == Version31 || v == Version33
}

// Tuya command codes carried in the frame header.
//
// Only DP_QUERY and CONTROL are exercised by the core; the remaining codes
// are defined by the protocol and kept for completeness.
const (
	CmdControl    uint32 = 7  // set data points
	CmdStatus     uint32 = 8  // state query
	CmdHeartbeat  uint32 = 9  // keepalive
	CmdDPQuery    uint32 = 10 // get data points
	CmdControlNew uint32 = 13 // 0x0d variant used by 22-char-id devices
	CmdDPQueryNew uint32 = 16
	CmdUpdateDPS  uint32 = 18 // request refresh of selected data points
)

// cryptoPolicy selects how a payload is protected on the wire.
type cryptoPolicy uint8

const (
	// cryptoNone sends the JSON payload as plain UTF-8.
	cryptoNone cryptoPolicy = iota

	// cryptoECB encrypts with AES-128-ECB, raw bytes (no base64).
	cryptoECB

	// cryptoECBSigned encrypts with AES-128-ECB, base64 encodes, and prefixes
	// the "3.1" version bytes plus a truncated MD5 signature.
	cryptoECBSigned
)

// headerPolicy selects whether the 16-byte version header is prepended.
type headerPolicy uint8

const (
	headerNone headerPolicy = iota

	// headerVersion prepends the ASCII version bytes padded with zeros to 16
	// bytes ("3.3" + 12 zero bytes).
	headerVersion
)

// commandSpec describes one command's JSON template: which identity and
// timestamp fields the device expects to be populated.
type commandSpec struct {
	gwID      bool
	devID     bool
	uid       bool
	timestamp bool

	// dpID indicates the command carries a dpId list instead of a dps map.
	dpID bool
}

// wireSpec describes how a command's payload is wrapped for one protocol
// generation: its encryption policy and version-header policy.
type wireSpec struct {
	crypto cryptoPolicy
	header headerPolicy
}

// commandTable maps command codes to their payload templates.
// Mirrors the "default" device request templates of the LAN protocol.
var commandTable = map[uint32]commandSpec{
	CmdControl:    {devID: true, uid: true, timestamp: true},
	CmdStatus:     {gwID: true, devID: true},
	CmdHeartbeat:  {gwID: true, devID: true},
	CmdDPQuery:    {gwID: true, devID: true, uid: true, timestamp: true},
	CmdControlNew: {devID: true, uid: true, timestamp: true},
	CmdDPQueryNew: {devID: true, uid: true, timestamp: true},
	CmdUpdateDPS:  {dpID: true},
}

// defaultUpdateDPS is the data-point list requested by UPDATEDPS when the
// caller does not provide one.
var defaultUpdateDPS = []int{18, 19, 20}

// wireTable resolves the encryption and header policy for a command under a
// protocol generation. Commands absent from a generation's map fall back to
// that generation's default entry (command code 0).
var wireTable = map[Version]map[uint32]wireSpec{
	// "3.1" sends plain JSON for everything except CONTROL, which is
	// encrypted, base64 encoded, and signed.
	Version31: {
		0:          {crypto: cryptoNone, header: headerNone},
		CmdControl: {crypto: cryptoECBSigned, header: headerNone},
	},
	// "3.3" always encrypts and carries the 16-byte version header except on
	// the plain data-point query and the refresh request.
	Version33: {
		0:            {crypto: cryptoECB, header: headerVersion},
		CmdDPQuery:   {crypto: cryptoECB, header: headerNone},
		CmdUpdateDPS: {crypto: cryptoECB, header: headerNone},
	},
}

// resolveWireSpec returns the wire policy for cmd under version.
func resolveWireSpec(version Version, cmd uint32) (wireSpec, error) {
	table, ok := wireTable[version]
	if !ok {
		return wireSpec{}, fmt.Errorf("%w: %q", ErrBadVersion, string(version))
	}
	if spec, ok := table[cmd]; ok {
		return spec, nil
	}
	return table[0], nil
}
