package application

import "fmt"

var (
	ErrInvalidRecoveryRequest = fmt.Errorf(
		"recovery request must contain either an envelope or typed words",
	)
	ErrMissingRecoveryResult = fmt.Errorf("missing recovery result")
	ErrMissingConfirmation   = fmt.Errorf("missing mnemonic confirmation")
)
