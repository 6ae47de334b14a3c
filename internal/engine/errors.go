package engine

import "errors"

// Every error aborts the invocation; the runtime's atomic transaction
// semantics roll back anything done before the failure, so there is no
// recovery or compensation path here.
var (
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrMathOverflow                = errors.New("math overflow")
	ErrMissingUserSignature        = errors.New("user must sign the outer call")
	ErrMissingMainLeg              = errors.New("main leg required")
	ErrMissingReflectionLeg        = errors.New("reflection leg required")
	ErrUnexpectedReflectionLeg     = errors.New("reflection leg unexpected when disabled or dusted")
	ErrInvalidInputMintOwner       = errors.New("input mint owner does not match provided token program")
	ErrInvalidInputMint            = errors.New("invalid input mint")
	ErrInvalidUserSource           = errors.New("invalid user source account")
	ErrInvalidVaultMint            = errors.New("invalid vault mint")
	ErrInvalidVaultOwner           = errors.New("invalid vault owner, must be the derived swap authority")
	ErrInvalidMainAccount          = errors.New("invalid main token account")
	ErrInvalidReflectionAccount    = errors.New("invalid reflection token account")
	ErrAccountMismatch             = errors.New("account mismatch for forwarded call")
	ErrSwapCPIFailed               = errors.New("swap CPI failed")
	ErrMainBelowMinOut             = errors.New("main amount below min")
	ErrReflectionBelowMinOut       = errors.New("reflection amount below min")
	ErrInvalidMainAccounting       = errors.New("invalid main accounting delta")
	ErrInvalidReflectionAccounting = errors.New("invalid reflection accounting delta")
)
