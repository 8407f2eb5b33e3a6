// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/cnutil"
	"github.com/cnsuite/cnwallet/transfers"
	"github.com/cnsuite/cnwallet/wire"
	"github.com/cnsuite/cnwallet/wtxmgr"
)

func writeProofUvarint(w *bytes.Buffer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.Write(buf[:n])
}

// Human-readable prefixes of the proof and signature encodings.
const (
	txProofPrefix      = "ProofV1"
	reserveProofPrefix = "ReserveProofV1"
	signaturePrefix    = "SigV1"
)

// GetTxKey returns the secret key of a transaction this wallet originated.
func (w *Wallet) GetTxKey(txHash chainhash.Hash) (cncrypto.SecretKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return cncrypto.NullSecretKey, err
	}

	id := w.store.TransactionByHash(&txHash)
	if id == wtxmgr.InvalidTransactionID {
		return cncrypto.NullSecretKey, walletError(ErrTxSecretKeyNotFound,
			fmt.Sprintf("no transaction %v", txHash), nil)
	}
	tx, err := w.store.Transaction(id)
	if err != nil {
		return cncrypto.NullSecretKey, walletError(ErrInternal,
			"transaction lookup failed", err)
	}
	if tx.SecretKey == nil || tx.SecretKey.IsNull() {
		return cncrypto.NullSecretKey, walletError(ErrTxSecretKeyNotFound,
			fmt.Sprintf("no secret key recorded for %v", txHash), nil)
	}
	return *tx.SecretKey, nil
}

// GetTxProof produces a proof that the transaction paid the given address,
// without revealing the transaction secret key.  The receiver verifies it
// with CheckTxProof.
func (w *Wallet) GetTxProof(txHash chainhash.Hash, address string) (string, error) {
	r, err := w.GetTxKey(txHash)
	if err != nil {
		return "", err
	}

	addr, err := cnutil.DecodeAddress(address,
		w.params.PublicAddressBase58Prefix)
	if err != nil {
		return "", walletError(ErrBadAddress,
			fmt.Sprintf("bad address %q", address), err)
	}

	bigR, err := w.suite.SecretKeyToPublicKey(r)
	if err != nil {
		return "", walletError(ErrInternal, "bad transaction key", err)
	}
	sharedD, err := w.suite.ScalarmultKey(
		cncrypto.PublicKeyAsKeyImage(addr.ViewKey),
		cncrypto.SecretKeyAsKeyImage(r))
	if err != nil {
		return "", walletError(ErrInternal, "shared point failed", err)
	}
	sig, err := w.suite.GenerateTxProof(txHash, r, bigR, addr.ViewKey,
		cncrypto.KeyImageAsPublicKey(sharedD))
	if err != nil {
		return "", walletError(ErrInternal, "proof generation failed", err)
	}

	payload := make([]byte, 0, cncrypto.PublicKeySize+cncrypto.SignatureSize)
	payload = append(payload, sharedD[:]...)
	payload = append(payload, sig[:]...)
	return txProofPrefix + base58.Encode(payload), nil
}

// CheckTxProof verifies a GetTxProof string against a transaction known to
// this wallet's container.
func (w *Wallet) CheckTxProof(txHash chainhash.Hash, address, proof string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return false, err
	}

	addr, err := cnutil.DecodeAddress(address,
		w.params.PublicAddressBase58Prefix)
	if err != nil {
		return false, walletError(ErrBadAddress,
			fmt.Sprintf("bad address %q", address), err)
	}
	if !strings.HasPrefix(proof, txProofPrefix) {
		return false, walletError(ErrBadProof,
			"missing transaction proof prefix", nil)
	}
	payload := base58.Decode(proof[len(txProofPrefix):])
	if len(payload) != cncrypto.PublicKeySize+cncrypto.SignatureSize {
		return false, walletError(ErrBadProof,
			"malformed transaction proof", nil)
	}
	var sharedD cncrypto.PublicKey
	var sig cncrypto.Signature
	copy(sharedD[:], payload[:cncrypto.PublicKeySize])
	copy(sig[:], payload[cncrypto.PublicKeySize:])

	info, ok := w.container.TransactionInfo(txHash)
	if !ok {
		return false, walletError(ErrBadProof,
			fmt.Sprintf("transaction %v is not known", txHash), nil)
	}
	bigR, err := wire.TransactionPublicKeyFromExtra(info.Extra)
	if err != nil {
		return false, walletError(ErrBadProof,
			"transaction has no public key", err)
	}

	return w.suite.CheckTxProof(txHash, bigR, addr.ViewKey, sharedD, sig), nil
}

// reserveProofEntry is one proven output inside a reserve proof.
type reserveProofEntry struct {
	txHash       chainhash.Hash
	outputIndex  uint32
	amount       uint64
	sharedSecret cncrypto.PublicKey
	keyImage     cncrypto.KeyImage
	sharedSig    cncrypto.Signature
	ownershipSig cncrypto.Signature
}

// reserveProofHash binds a reserve proof to the proving address and an
// arbitrary challenge message.
func reserveProofHash(address, message string) chainhash.Hash {
	return cncrypto.FastHash(append([]byte(address), message...))
}

// GetReserveProof proves the wallet controls at least amount of unlocked
// funds.  The proof covers a minimal greedy selection of unlocked outputs
// and is bound to message, typically a challenge chosen by the verifier.
func (w *Wallet) GetReserveProof(amount uint64, message string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return "", err
	}
	if w.account.isTracking() {
		return "", walletError(ErrTrackingWallet,
			"tracking wallet cannot prove reserves", nil)
	}

	outs := w.container.Outputs(transfers.IncludeKeyUnlocked)
	sort.SliceStable(outs, func(i, j int) bool {
		return outs[i].Amount > outs[j].Amount
	})
	var selected []transfers.OutputInfo
	var total uint64
	for i := range outs {
		if total >= amount {
			break
		}
		selected = append(selected, outs[i])
		total += outs[i].Amount
	}
	if total < amount {
		return "", walletError(ErrInsufficientFunds,
			fmt.Sprintf("unlocked %d below proven amount %d", total,
				amount), nil)
	}

	address := w.account.address(w.params).String()
	prefixHash := reserveProofHash(address, message)
	keys := &w.account.Keys

	entries := make([]reserveProofEntry, 0, len(selected))
	for i := range selected {
		out := &selected[i]
		derivation, err := w.suite.GenerateKeyDerivation(
			out.TransactionPublicKey, keys.ViewSecretKey)
		if err != nil {
			return "", walletError(ErrInternal,
				"key derivation failed", err)
		}
		sec := w.suite.DeriveSecretKey(derivation,
			out.OutputInTransaction, keys.SpendSecretKey)
		pub, err := w.suite.DerivePublicKey(derivation,
			out.OutputInTransaction, keys.SpendPublicKey)
		if err != nil {
			return "", walletError(ErrInternal,
				"one-time key derivation failed", err)
		}
		image, err := w.suite.GenerateKeyImage(pub, sec)
		if err != nil {
			return "", walletError(ErrInternal,
				"key image generation failed", err)
		}

		// Prove the shared secret was formed with this wallet's view
		// key, then prove ownership of the one-time key through its
		// key image.
		sharedSig, err := w.suite.GenerateTxProof(prefixHash,
			keys.ViewSecretKey, keys.ViewPublicKey,
			out.TransactionPublicKey,
			cncrypto.DerivationAsPublicKey(derivation))
		if err != nil {
			return "", walletError(ErrInternal,
				"shared secret proof failed", err)
		}
		ringSigs, err := w.suite.GenerateRingSignature(prefixHash, image,
			[]cncrypto.PublicKey{pub}, sec, 0)
		if err != nil {
			return "", walletError(ErrInternal,
				"ownership proof failed", err)
		}

		entries = append(entries, reserveProofEntry{
			txHash:       out.TransactionHash,
			outputIndex:  out.OutputInTransaction,
			amount:       out.Amount,
			sharedSecret: cncrypto.DerivationAsPublicKey(derivation),
			keyImage:     image,
			sharedSig:    sharedSig,
			ownershipSig: ringSigs[0],
		})
	}

	headerSig, err := w.suite.GenerateSignature(prefixHash,
		keys.SpendPublicKey, keys.SpendSecretKey)
	if err != nil {
		return "", walletError(ErrInternal, "proof signature failed", err)
	}

	var payload bytes.Buffer
	writeProofUvarint(&payload, uint64(len(entries)))
	for i := range entries {
		e := &entries[i]
		payload.Write(e.txHash[:])
		writeProofUvarint(&payload, uint64(e.outputIndex))
		writeProofUvarint(&payload, e.amount)
		payload.Write(e.sharedSecret[:])
		payload.Write(e.keyImage[:])
		payload.Write(e.sharedSig[:])
		payload.Write(e.ownershipSig[:])
	}
	payload.Write(headerSig[:])

	return reserveProofPrefix + base58.Encode(payload.Bytes()), nil
}

// CheckReserveProof verifies a reserve proof's signatures and returns the
// proven amount.  The verifier must still confirm against the chain that
// the named outputs exist and their key images are unspent.
func (w *Wallet) CheckReserveProof(address, message, proof string) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return 0, err
	}

	addr, err := cnutil.DecodeAddress(address,
		w.params.PublicAddressBase58Prefix)
	if err != nil {
		return 0, walletError(ErrBadAddress,
			fmt.Sprintf("bad address %q", address), err)
	}
	if !strings.HasPrefix(proof, reserveProofPrefix) {
		return 0, walletError(ErrBadProof,
			"missing reserve proof prefix", nil)
	}
	r := bytes.NewReader(base58.Decode(proof[len(reserveProofPrefix):]))
	prefixHash := reserveProofHash(address, message)

	count, err := binary.ReadUvarint(r)
	if err != nil || count > uint64(r.Len()) {
		return 0, walletError(ErrBadProof, "malformed reserve proof", nil)
	}

	var total uint64
	for i := uint64(0); i < count; i++ {
		var e reserveProofEntry
		if _, err := r.Read(e.txHash[:]); err != nil {
			return 0, walletError(ErrBadProof,
				"malformed reserve proof", nil)
		}
		index, err := binary.ReadUvarint(r)
		if err != nil || index > 1<<32-1 {
			return 0, walletError(ErrBadProof,
				"malformed reserve proof", nil)
		}
		e.outputIndex = uint32(index)
		if e.amount, err = binary.ReadUvarint(r); err != nil {
			return 0, walletError(ErrBadProof,
				"malformed reserve proof", nil)
		}
		for _, field := range [][]byte{
			e.sharedSecret[:], e.keyImage[:], e.sharedSig[:],
			e.ownershipSig[:],
		} {
			if _, err := r.Read(field); err != nil {
				return 0, walletError(ErrBadProof,
					"malformed reserve proof", nil)
			}
		}

		info, ok := w.container.TransactionInfo(e.txHash)
		if !ok {
			return 0, walletError(ErrBadProof,
				fmt.Sprintf("transaction %v is not known",
					e.txHash), nil)
		}
		txPub, err := wire.TransactionPublicKeyFromExtra(info.Extra)
		if err != nil {
			return 0, walletError(ErrBadProof,
				"transaction has no public key", err)
		}
		if !w.suite.CheckTxProof(prefixHash, addr.ViewKey, txPub,
			e.sharedSecret, e.sharedSig) {
			return 0, walletError(ErrBadProof,
				"shared secret proof check failed", nil)
		}

		outputPub, err := w.suite.DerivePublicKey(
			cncrypto.KeyDerivation(e.sharedSecret), e.outputIndex,
			addr.SpendKey)
		if err != nil {
			return 0, walletError(ErrBadProof,
				"one-time key derivation failed", err)
		}
		if !w.suite.CheckRingSignature(prefixHash, e.keyImage,
			[]cncrypto.PublicKey{outputPub},
			[]cncrypto.Signature{e.ownershipSig}) {
			return 0, walletError(ErrBadProof,
				"ownership proof check failed", nil)
		}
		total += e.amount
	}

	var headerSig cncrypto.Signature
	if _, err := r.Read(headerSig[:]); err != nil || r.Len() != 0 {
		return 0, walletError(ErrBadProof, "malformed reserve proof", nil)
	}
	if !w.suite.CheckSignature(prefixHash, addr.SpendKey, headerSig) {
		return 0, walletError(ErrBadProof,
			"proof signature check failed", nil)
	}
	return total, nil
}

// SignMessage signs an arbitrary message with the wallet's spend key.
func (w *Wallet) SignMessage(message []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return "", err
	}
	if w.account.isTracking() {
		return "", walletError(ErrTrackingWallet,
			"tracking wallet cannot sign", nil)
	}

	hash := cncrypto.FastHash(message)
	sig, err := w.suite.GenerateSignature(hash,
		w.account.Keys.SpendPublicKey, w.account.Keys.SpendSecretKey)
	if err != nil {
		return "", walletError(ErrInternal, "signing failed", err)
	}
	return signaturePrefix + base58.Encode(sig[:]), nil
}

// VerifyMessage checks a SignMessage signature against the spend key of
// the given address.
func (w *Wallet) VerifyMessage(message []byte, address, signature string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return false, err
	}

	addr, err := cnutil.DecodeAddress(address,
		w.params.PublicAddressBase58Prefix)
	if err != nil {
		return false, walletError(ErrBadAddress,
			fmt.Sprintf("bad address %q", address), err)
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false, walletError(ErrBadProof,
			"missing signature prefix", nil)
	}
	raw := base58.Decode(signature[len(signaturePrefix):])
	if len(raw) != cncrypto.SignatureSize {
		return false, walletError(ErrBadProof, "malformed signature", nil)
	}
	var sig cncrypto.Signature
	copy(sig[:], raw)

	hash := cncrypto.FastHash(message)
	return w.suite.CheckSignature(hash, addr.SpendKey, sig), nil
}
