package utils

import (
	"regexp"
	"strings"

	"golang.org/x/xerrors"
)

const (
	// AddressLength is the length of a canonical address, including the 0x prefix.
	AddressLength = 66

	addressHexLength = AddressLength - 2
)

var (
	addressRegexp = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	hexRegexp     = regexp.MustCompile(`^[0-9a-fA-F]+$`)

	networks = map[string]struct{}{
		"mainnet":  {},
		"testnet":  {},
		"devnet":   {},
		"localnet": {},
	}
)

// IsValidAddress reports whether the input is a canonical 32-byte address or object id.
func IsValidAddress(address string) bool {
	return addressRegexp.MatchString(strings.TrimSpace(address))
}

// NormalizeAddress lower-cases the address and left-pads it to 32 bytes,
// so that "0x6" and "0x000...006" compare equal.
func NormalizeAddress(address string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(address), "0x")
	if len(trimmed) == 0 || len(trimmed) > addressHexLength || !hexRegexp.MatchString(trimmed) {
		return "", xerrors.Errorf("invalid address: %q", address)
	}

	return "0x" + strings.Repeat("0", addressHexLength-len(trimmed)) + strings.ToLower(trimmed), nil
}

// ShortAddress renders an address as 0x1234...abcd.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}

	return address[:6] + "..." + address[len(address)-4:]
}

// ParseNetwork validates a network name, e.g. `testnet`.
func ParseNetwork(networkName string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(networkName))
	if _, ok := networks[name]; !ok {
		return "", xerrors.Errorf("unknown network: `%s`", networkName)
	}

	return name, nil
}
