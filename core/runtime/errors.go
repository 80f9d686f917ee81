package runtime

import "errors"

var (
	ErrUnknownProgram      = errors.New("runtime: unknown program")
	ErrProgramRegistered   = errors.New("runtime: program already registered")
	ErrMissingSignature    = errors.New("runtime: missing required signature")
	ErrUndeclaredAccount   = errors.New("runtime: account not declared by instruction")
	ErrReadonlyAccount     = errors.New("runtime: account is not writable")
	ErrIllegalOwner        = errors.New("runtime: account not owned by program")
	ErrPrivilegeEscalation = errors.New("runtime: cross-program invocation escalates privileges")
	ErrInvalidSeeds        = errors.New("runtime: seeds do not derive the expected address")
	ErrCallDepth           = errors.New("runtime: cross-program invocation depth exceeded")
	ErrNotEnoughAccounts   = errors.New("runtime: not enough account keys")
)
