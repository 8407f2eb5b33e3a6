// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/chain"
	"github.com/cnsuite/cnwallet/chaincfg"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/cnutil"
	"github.com/cnsuite/cnwallet/transfers"
	"github.com/cnsuite/cnwallet/wire"
	"github.com/cnsuite/cnwallet/wtxmgr"
)

// outputSpec is one planned output: an amount locked to addr, as a term
// deposit when term is nonzero.
type outputSpec struct {
	addr   cnutil.Address
	amount uint64
	term   uint32
}

// inputSpec is one planned key input.  The ephemeral keypair and key image
// are computed at selection time; the ring is attached once decoys arrive.
type inputSpec struct {
	output       transfers.OutputInfo
	ephemeralPub cncrypto.PublicKey
	ephemeralSec cncrypto.SecretKey
	keyImage     cncrypto.KeyImage
	ring         []ringMember
	secIndex     int
}

// ringMember is one ring entry, ordered by global index.
type ringMember struct {
	globalIndex uint32
	key         cncrypto.PublicKey
}

// parseDestinations validates the recipient list and returns the decoded
// addresses with the checked amount total.
func parseDestinations(params *chaincfg.Params,
	destinations []Destination) ([]outputSpec, uint64, error) {

	if len(destinations) == 0 {
		return nil, 0, walletError(ErrZeroDestination,
			"transaction has no destinations", nil)
	}

	specs := make([]outputSpec, 0, len(destinations))
	var total uint64
	for _, dst := range destinations {
		addr, err := cnutil.DecodeAddress(dst.Address,
			params.PublicAddressBase58Prefix)
		if err != nil {
			return nil, 0, walletError(ErrBadAddress,
				fmt.Sprintf("bad destination address %q", dst.Address),
				err)
		}
		if dst.Amount == 0 {
			return nil, 0, walletError(ErrZeroDestination,
				"destination amount is zero", nil)
		}
		sum := total + dst.Amount
		if sum < total {
			return nil, 0, walletError(ErrSumOverflow,
				"destination amounts overflow", nil)
		}
		total = sum
		specs = append(specs, outputSpec{addr: addr, amount: dst.Amount})
	}
	return specs, total, nil
}

// validateMixin checks the requested ring size against network policy.  A
// mixin of zero requests no decoys and is always allowed.
func validateMixin(params *chaincfg.Params, mixin uint64) error {
	if mixin != 0 && (mixin < params.MinMixin || mixin > params.MaxMixin) {
		return walletError(ErrMixinOutOfRange,
			fmt.Sprintf("mixin %d outside [%d, %d]", mixin,
				params.MinMixin, params.MaxMixin), nil)
	}
	return nil
}

// validateFee checks the fee and its interaction with a transaction TTL.
// Fee-free transactions must carry a TTL and vice versa.
func validateFee(params *chaincfg.Params, fee, ttl uint64) error {
	if ttl != 0 {
		if fee != 0 {
			return walletError(ErrTTLConflictsFee,
				"transaction with a TTL must be fee-free", nil)
		}
		return nil
	}
	if fee < params.MinimumFee {
		return walletError(ErrFeeTooSmall,
			fmt.Sprintf("fee %d below minimum %d", fee,
				params.MinimumFee), nil)
	}
	return nil
}

// decomposeAmount splits an amount into its decimal digit denominations.
// Digits below dustThreshold are merged into a single leading chunk so
// sub-threshold change never fans out into unmixable outputs.
func decomposeAmount(amount, dustThreshold uint64) []uint64 {
	var chunks []uint64
	var dust uint64
	for order := uint64(1); amount != 0; order *= 10 {
		chunk := (amount % 10) * order
		amount /= 10
		if chunk == 0 {
			continue
		}
		if chunk < dustThreshold {
			dust += chunk
		} else {
			chunks = append(chunks, chunk)
		}
	}
	if dust != 0 {
		chunks = append([]uint64{dust}, chunks...)
	}
	return chunks
}

// splitOutputs decomposes every planned key output into digit
// denominations.  Deposit outputs keep their full amount: the term locks
// the whole principal as one output.
func splitOutputs(specs []outputSpec, dustThreshold uint64) []outputSpec {
	split := make([]outputSpec, 0, len(specs))
	for _, spec := range specs {
		if spec.term != 0 {
			split = append(split, spec)
			continue
		}
		for _, chunk := range decomposeAmount(spec.amount, dustThreshold) {
			split = append(split, outputSpec{addr: spec.addr, amount: chunk})
		}
	}
	sort.SliceStable(split, func(i, j int) bool {
		return split[i].amount < split[j].amount
	})
	return split
}

// selectTransfersLocked picks unlocked key outputs covering needed,
// skipping outputs already committed to an in-flight transaction.  Returns
// the selection and its total.
func (w *Wallet) selectTransfersLocked(needed uint64) ([]transfers.OutputInfo, uint64, error) {
	outs := w.container.Outputs(transfers.IncludeKeyUnlocked)

	var selected []transfers.OutputInfo
	var found uint64
	for i := range outs {
		if w.store.IsOutputInFlight(outs[i].OutputKey) {
			continue
		}
		selected = append(selected, outs[i])
		found += outs[i].Amount
		if found >= needed {
			return selected, found, nil
		}
	}
	return nil, 0, walletError(ErrInsufficientFunds,
		fmt.Sprintf("found %d of %d required", found, needed), nil)
}

// prepareInputs computes the ephemeral keypair and key image of every
// selected output.  Each input starts with a ring of itself only; decoys
// are mixed in by mixRings.
func prepareInputs(suite cncrypto.Suite, keys *transfers.AccountKeys,
	selected []transfers.OutputInfo) ([]inputSpec, error) {

	inputs := make([]inputSpec, 0, len(selected))
	for i := range selected {
		out := &selected[i]
		derivation, err := suite.GenerateKeyDerivation(
			out.TransactionPublicKey, keys.ViewSecretKey)
		if err != nil {
			return nil, walletError(ErrInternal,
				"key derivation failed", err)
		}
		sec := suite.DeriveSecretKey(derivation, out.OutputInTransaction,
			keys.SpendSecretKey)
		pub, err := suite.DerivePublicKey(derivation,
			out.OutputInTransaction, keys.SpendPublicKey)
		if err != nil {
			return nil, walletError(ErrInternal,
				"one-time key derivation failed", err)
		}
		if pub != out.OutputKey {
			return nil, walletError(ErrInternal,
				"derived key does not match tracked output", nil)
		}
		image, err := suite.GenerateKeyImage(pub, sec)
		if err != nil {
			return nil, walletError(ErrInternal,
				"key image generation failed", err)
		}
		inputs = append(inputs, inputSpec{
			output:       *out,
			ephemeralPub: pub,
			ephemeralSec: sec,
			keyImage:     image,
			ring: []ringMember{{
				globalIndex: out.GlobalOutputIndex,
				key:         out.OutputKey,
			}},
		})
	}
	return inputs, nil
}

// mixRings folds the node's decoy candidates into every input's ring.  The
// node was asked for mixin+1 candidates per denomination because the reply
// may include the wallet's own output; any bucket left short of mixin
// usable decoys fails the whole transaction.
func mixRings(inputs []inputSpec, randomOuts []chain.RandomOuts, mixin uint64) error {
	buckets := make(map[uint64][]*chain.RandomOuts)
	for i := range randomOuts {
		buckets[randomOuts[i].Amount] = append(
			buckets[randomOuts[i].Amount], &randomOuts[i])
	}

	for i := range inputs {
		in := &inputs[i]
		amount := in.output.Amount

		bucket := buckets[amount]
		if len(bucket) == 0 {
			return walletError(ErrNotEnoughMixins,
				fmt.Sprintf("no decoy candidates for amount %d",
					amount), nil)
		}
		candidates := bucket[0]
		buckets[amount] = bucket[1:]

		ring := in.ring[:1]
		for _, entry := range candidates.Outs {
			if uint64(len(ring)) > mixin {
				break
			}
			if entry.Key == in.output.OutputKey ||
				entry.GlobalIndex == in.output.GlobalOutputIndex {
				continue
			}
			ring = append(ring, ringMember{
				globalIndex: entry.GlobalIndex,
				key:         entry.Key,
			})
		}
		if uint64(len(ring)) != mixin+1 {
			return walletError(ErrNotEnoughMixins,
				fmt.Sprintf("only %d of %d decoys usable for amount %d",
					len(ring)-1, mixin, amount), nil)
		}

		sort.Slice(ring, func(a, b int) bool {
			return ring[a].globalIndex < ring[b].globalIndex
		})
		in.secIndex = -1
		for j := range ring {
			if ring[j].key == in.output.OutputKey {
				in.secIndex = j
				break
			}
		}
		if in.secIndex < 0 {
			return walletError(ErrInternal,
				"own output missing from ring", nil)
		}
		in.ring = ring
	}
	return nil
}

// absoluteToDeltaOffsets converts sorted global indices to the
// delta-encoded form carried on the wire.
func absoluteToDeltaOffsets(ring []ringMember) []uint32 {
	offsets := make([]uint32, len(ring))
	var prev uint32
	for i := range ring {
		offsets[i] = ring[i].globalIndex - prev
		prev = ring[i].globalIndex
	}
	return offsets
}

// buildExtra assembles the tx extra bytes: public key, optional payment
// id, messages, optional TTL deadline.
func buildExtra(txPublicKey cncrypto.PublicKey, paymentID *chainhash.Hash,
	messages []string, ttlDeadline uint64) []byte {

	extra := wire.AppendTransactionPublicKeyToExtra(nil, txPublicKey)
	if paymentID != nil {
		extra = wire.AppendPaymentIDToExtra(extra, *paymentID)
	}
	for _, msg := range messages {
		extra = wire.AppendMessageToExtra(extra, []byte(msg))
	}
	if ttlDeadline != 0 {
		extra = wire.AppendTTLToExtra(extra, ttlDeadline)
	}
	return extra
}

// constructTransaction derives the one-time output keys, assembles the
// wire transaction and signs every key input with a ring signature.
func constructTransaction(suite cncrypto.Suite, inputs []inputSpec,
	outputs []outputSpec, txSecretKey cncrypto.SecretKey,
	unlockTime uint64, extra []byte) (*wire.Transaction, error) {

	tx := &wire.Transaction{
		Version:    wire.TxVersion,
		UnlockTime: unlockTime,
		Extra:      extra,
	}

	for i := range inputs {
		tx.Inputs = append(tx.Inputs, wire.KeyInput{
			Amount:        inputs[i].output.Amount,
			OutputOffsets: absoluteToDeltaOffsets(inputs[i].ring),
			KeyImage:      inputs[i].keyImage,
		})
	}

	for i, out := range outputs {
		derivation, err := suite.GenerateKeyDerivation(out.addr.ViewKey,
			txSecretKey)
		if err != nil {
			return nil, walletError(ErrInternal,
				"output key derivation failed", err)
		}
		key, err := suite.DerivePublicKey(derivation, uint32(i),
			out.addr.SpendKey)
		if err != nil {
			return nil, walletError(ErrInternal,
				"one-time output key failed", err)
		}

		var target wire.TxOutputTarget
		if out.term != 0 {
			target = wire.DepositOutput{
				Keys:               []cncrypto.PublicKey{key},
				RequiredSignatures: 1,
				Term:               out.term,
			}
		} else {
			target = wire.KeyOutput{Key: key}
		}
		tx.Outputs = append(tx.Outputs, wire.TxOutput{
			Amount: out.amount,
			Target: target,
		})
	}

	prefixHash := tx.PrefixHash()
	for i := range inputs {
		ringKeys := make([]cncrypto.PublicKey, len(inputs[i].ring))
		for j, m := range inputs[i].ring {
			ringKeys[j] = m.key
		}
		sigs, err := suite.GenerateRingSignature(prefixHash,
			inputs[i].keyImage, ringKeys, inputs[i].ephemeralSec,
			inputs[i].secIndex)
		if err != nil {
			return nil, walletError(ErrInternal,
				"ring signature failed", err)
		}
		tx.Signatures = append(tx.Signatures, sigs)
	}
	return tx, nil
}

// constructWithdrawTransaction assembles and signs a deposit withdrawal:
// deposit inputs spent with plain signatures, a single key output paying
// the wallet itself.
func constructWithdrawTransaction(suite cncrypto.Suite,
	keys *transfers.AccountKeys, deposits []transfers.OutputInfo,
	self cnutil.Address, amount uint64, txSecretKey cncrypto.SecretKey,
	extra []byte) (*wire.Transaction, error) {

	tx := &wire.Transaction{
		Version: wire.TxVersion,
		Extra:   extra,
	}

	type depositSigner struct {
		pub cncrypto.PublicKey
		sec cncrypto.SecretKey
	}
	signers := make([]depositSigner, 0, len(deposits))
	for i := range deposits {
		out := &deposits[i]
		derivation, err := suite.GenerateKeyDerivation(
			out.TransactionPublicKey, keys.ViewSecretKey)
		if err != nil {
			return nil, walletError(ErrInternal,
				"key derivation failed", err)
		}
		sec := suite.DeriveSecretKey(derivation, out.OutputInTransaction,
			keys.SpendSecretKey)
		pub, err := suite.DerivePublicKey(derivation,
			out.OutputInTransaction, keys.SpendPublicKey)
		if err != nil {
			return nil, walletError(ErrInternal,
				"one-time key derivation failed", err)
		}
		signers = append(signers, depositSigner{pub: pub, sec: sec})

		tx.Inputs = append(tx.Inputs, wire.DepositInput{
			Amount:      out.Amount,
			Term:        out.Term,
			OutputIndex: out.OutputInTransaction,
		})
	}

	derivation, err := suite.GenerateKeyDerivation(self.ViewKey, txSecretKey)
	if err != nil {
		return nil, walletError(ErrInternal,
			"output key derivation failed", err)
	}
	key, err := suite.DerivePublicKey(derivation, 0, self.SpendKey)
	if err != nil {
		return nil, walletError(ErrInternal,
			"one-time output key failed", err)
	}
	tx.Outputs = append(tx.Outputs, wire.TxOutput{
		Amount: amount,
		Target: wire.KeyOutput{Key: key},
	})

	prefixHash := tx.PrefixHash()
	for _, signer := range signers {
		sig, err := suite.GenerateSignature(prefixHash, signer.pub,
			signer.sec)
		if err != nil {
			return nil, walletError(ErrInternal,
				"deposit signature failed", err)
		}
		tx.Signatures = append(tx.Signatures,
			[]cncrypto.Signature{sig})
	}
	return tx, nil
}

// spentOutputKeys lists the one-time keys consumed by a selection, for
// in-flight tracking.
func spentOutputKeys(selected []transfers.OutputInfo) []cncrypto.PublicKey {
	keys := make([]cncrypto.PublicKey, len(selected))
	for i := range selected {
		keys[i] = selected[i].OutputKey
	}
	return keys
}

// registerDestinations converts the recipient list to ledger transfer
// rows, one per original destination.
func registerDestinations(destinations []Destination) []wtxmgr.Transfer {
	rows := make([]wtxmgr.Transfer, 0, len(destinations))
	for _, dst := range destinations {
		rows = append(rows, wtxmgr.Transfer{
			Address: dst.Address,
			Amount:  int64(dst.Amount),
		})
	}
	return rows
}
