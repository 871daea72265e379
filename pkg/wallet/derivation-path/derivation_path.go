package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

const (
	hardenedKeyStart = hdkeychain.HardenedKeyStart

	// ExternalBranch is the chain used for receiving addresses.
	ExternalBranch = 0
)

// DerivationPath is a BIP-32 path, each element being a child index.
type DerivationPath []uint32

// ParseDerivationPath parses either an absolute (m/...) or a relative path.
// Hardened elements are marked with a trailing quote, values can be decimal
// or hexadecimal (0x prefixed).
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	return parseDerivationPath(strPath, false)
}

// ParseRootDerivationPath parses a root path in the form
// m/purpose'/coin_type'.
func ParseRootDerivationPath(strPath string) (DerivationPath, error) {
	p, err := parseDerivationPath(strPath, true)
	if err != nil {
		return nil, err
	}
	if len(p) != 2 {
		return nil, ErrInvalidRootPathLen
	}
	for _, elem := range p {
		if elem < hardenedKeyStart {
			return nil, ErrInvalidRootPath
		}
	}
	return p, nil
}

// AddressPath returns the full path root/account'/branch/index of a
// single-sig address.
func AddressPath(
	root DerivationPath, account, branch, index uint32,
) (DerivationPath, error) {
	if account >= hardenedKeyStart {
		return nil, ErrOutOfRangeAccount
	}
	p := make(DerivationPath, 0, len(root)+3)
	p = append(p, root...)
	return append(p, account+hardenedKeyStart, branch, index), nil
}

func (p DerivationPath) String() string {
	if len(p) <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("m")
	for _, elem := range p {
		sb.WriteString("/")
		if elem >= hardenedKeyStart {
			sb.WriteString(strconv.FormatUint(uint64(elem-hardenedKeyStart), 10))
			sb.WriteString("'")
			continue
		}
		sb.WriteString(strconv.FormatUint(uint64(elem), 10))
	}
	return sb.String()
}

func parseDerivationPath(
	strPath string, requireAbsolute bool,
) (DerivationPath, error) {
	if strPath == "" {
		return nil, ErrMissingDerivationPath
	}

	elems := strings.Split(strPath, "/")
	for _, elem := range elems {
		if elem == "" {
			return nil, ErrMalformedDerivationPath
		}
	}
	isAbsolute := strings.TrimSpace(elems[0]) == "m"
	if requireAbsolute && !isAbsolute {
		return nil, ErrRequiredAbsoluteDerivationPath
	}
	if len(elems) < 2 {
		return nil, ErrMalformedDerivationPath
	}
	if isAbsolute {
		elems = elems[1:]
	}

	p := make(DerivationPath, 0, len(elems))
	for _, elem := range elems {
		value, err := parseElem(elem)
		if err != nil {
			return nil, err
		}
		p = append(p, value)
	}
	return p, nil
}

func parseElem(elem string) (uint32, error) {
	elem = strings.TrimSpace(elem)

	var offset uint64
	if strings.HasSuffix(elem, "'") {
		offset = hardenedKeyStart
		elem = strings.TrimSpace(strings.TrimSuffix(elem, "'"))
	}

	if strings.HasPrefix(elem, "-") {
		return 0, fmt.Errorf("elem %s must not be negative", elem)
	}
	value, err := strconv.ParseUint(elem, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid elem '%s' in path", elem)
	}

	max := uint64(1<<32-1) - offset
	if value > max {
		if offset == 0 {
			return 0, fmt.Errorf("elem %d must be in range [0, %d]", value, max)
		}
		return 0, fmt.Errorf("elem %d must be in hardened range [0, %d]", value, max)
	}
	return uint32(value + offset), nil
}
