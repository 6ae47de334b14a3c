package engine

import (
	"github.com/gagliardetto/solana-go"

	"github.com/thepaypay420/racepump/internal/ledger"
)

// ResolvedAccount pairs one leg reference, already resolved to a concrete
// table entry, with the privileges the outer call actually granted it.
type ResolvedAccount struct {
	Granted           ledger.GrantedAccount
	RequestedSigner   bool
	RequestedWritable bool
}

// ReconcilePermissions produces the account metas a forwarded call may use.
//
// Writable is always the granted bit: the requested flag is informational
// and never escalates access. Signer is requested AND granted, with one
// override: the derived authority is forced non-signer no matter what was
// requested or granted, because its only legitimate signing context is the
// outer wrapper call, never a call it forwards.
func ReconcilePermissions(accounts []ResolvedAccount, derivedAuthority *solana.PublicKey) []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, 0, len(accounts))
	for _, a := range accounts {
		isSigner := a.RequestedSigner && a.Granted.IsSigner
		if derivedAuthority != nil && a.Granted.Key.Equals(*derivedAuthority) {
			isSigner = false
		}
		metas = append(metas, &solana.AccountMeta{
			PublicKey:  a.Granted.Key,
			IsSigner:   isSigner,
			IsWritable: a.Granted.IsWritable,
		})
	}
	return metas
}
