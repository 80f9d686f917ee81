package otc

import "errors"

var (
	ErrOrderNotActive     = errors.New("otc: order is not active")
	ErrUnauthorized       = errors.New("otc: unauthorized")
	ErrWrongMint          = errors.New("otc: wrong mint")
	ErrWrongRecipient     = errors.New("otc: recipient account not owned by maker")
	ErrSameToken          = errors.New("otc: offered and wanted token are the same")
	ErrZeroAmount         = errors.New("otc: amount must be positive")
	ErrOrderExists        = errors.New("otc: order already exists")
	ErrSeedsMismatch      = errors.New("otc: derived address mismatch")
	ErrInvalidInstruction = errors.New("otc: invalid instruction")
	ErrInvalidAccountData = errors.New("otc: invalid account data")
	ErrWrongTokenProgram  = errors.New("otc: unexpected token program")
)

// ErrorCode is the stable numeric identity of a program error, reported to
// clients alongside the message.
type ErrorCode struct {
	Code uint32
	Name string
}

// Custom program errors start at 6000.
var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrOrderNotActive, ErrorCode{6000, "OrderNotActive"}},
	{ErrUnauthorized, ErrorCode{6001, "Unauthorized"}},
	{ErrWrongMint, ErrorCode{6002, "WrongMint"}},
	{ErrWrongRecipient, ErrorCode{6003, "WrongRecipient"}},
	{ErrSameToken, ErrorCode{6004, "SameToken"}},
	{ErrZeroAmount, ErrorCode{6005, "ZeroAmount"}},
	{ErrOrderExists, ErrorCode{6006, "OrderExists"}},
	{ErrSeedsMismatch, ErrorCode{6007, "SeedsMismatch"}},
	{ErrInvalidInstruction, ErrorCode{6008, "InvalidInstruction"}},
	{ErrInvalidAccountData, ErrorCode{6009, "InvalidAccountData"}},
	{ErrWrongTokenProgram, ErrorCode{6010, "WrongTokenProgram"}},
}

// Code maps err to its program error code. Errors raised outside the escrow
// program (token, runtime) report false.
func Code(err error) (ErrorCode, bool) {
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code, true
		}
	}
	return ErrorCode{}, false
}

// reason returns a short label for metrics.
func reason(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := Code(err); ok {
		return code.Name
	}
	return "other"
}
