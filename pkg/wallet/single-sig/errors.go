package singlesig

import (
	"fmt"
)

var (
	ErrMissingNetwork  = fmt.Errorf("missing network")
	ErrUnknownNetwork  = fmt.Errorf("unknown network")
	ErrMissingMnemonic = fmt.Errorf("missing mnemonic")
	ErrMissingRootPath = fmt.Errorf("missing root derivation path")
)
