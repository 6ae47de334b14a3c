package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/thepaypay420/racepump/internal/ledger"
	"github.com/thepaypay420/racepump/internal/request"
)

// dispatchLeg resolves exactly call.AccountCount references from the cursor,
// reconciles their permissions, and invokes the aggregator with the leg's
// opaque payload. A callee failure surfaces as the single opaque
// ErrSwapCPIFailed; the engine neither inspects nor retries it.
func (e *Engine) dispatchLeg(
	ctx context.Context,
	rt ledger.Runtime,
	call *request.OpaqueCall,
	cur *Cursor,
	derivedAuthority *solana.PublicKey,
) error {
	resolved := make([]ResolvedAccount, 0, call.AccountCount)
	for i := 0; i < int(call.AccountCount); i++ {
		if i >= len(call.Refs) {
			return fmt.Errorf("%w: leg declares %d accounts, supplies %d references", ErrAccountMismatch, call.AccountCount, len(call.Refs))
		}
		ref := call.Refs[i]

		var (
			entry ledger.GrantedAccount
			err   error
		)
		switch e.params.Encoding {
		case request.EncodingIndexed:
			entry, err = cur.TakeIndexed(ref)
		default:
			entry, err = cur.TakeSequential(ref)
		}
		if err != nil {
			return err
		}

		resolved = append(resolved, ResolvedAccount{
			Granted:           entry,
			RequestedSigner:   ref.RequestedSigner,
			RequestedWritable: ref.RequestedWritable,
		})
	}

	metas := ReconcilePermissions(resolved, derivedAuthority)
	ix := solana.NewInstruction(e.params.Aggregator, metas, call.Payload)

	if err := rt.Invoke(ctx, ix); err != nil {
		e.log.WithError(err).Warn("forwarded call failed")
		return ErrSwapCPIFailed
	}
	return nil
}
