package types

import "github.com/gagliardetto/solana-go"

// Account is the ledger's view of an address: the program that owns it and
// the opaque data only that program may rewrite.
type Account struct {
	Owner solana.PublicKey
	Data  []byte
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{Owner: a.Owner, Data: append([]byte(nil), a.Data...)}
}

// OwnedBy reports whether program owns the account.
func (a *Account) OwnedBy(program solana.PublicKey) bool {
	return a != nil && a.Owner.Equals(program)
}
