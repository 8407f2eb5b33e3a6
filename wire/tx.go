// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the raw transaction encoding submitted to the
// node for relay.  Only the transaction message is defined here; block and
// peer messages belong to the node, which the wallet talks to through the
// chain.Node interface.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// TxVersion is the only transaction version this wallet produces.
const TxVersion = 1

// Input and output target tags of the serialized form.
const (
	tagInputKey      = 0x02
	tagInputDeposit  = 0x03
	tagOutputKey     = 0x02
	tagOutputDeposit = 0x03
)

// ErrMalformedTransaction describes bytes that do not decode to a
// transaction.
var ErrMalformedTransaction = errors.New("malformed transaction")

// KeyInput spends a one-time key output through a ring signature.  The
// offsets are global output indices of the ring members, delta-encoded.
type KeyInput struct {
	Amount        uint64
	OutputOffsets []uint32
	KeyImage      cncrypto.KeyImage
}

// DepositInput spends a matured deposit output.
type DepositInput struct {
	Amount      uint64
	Term        uint32
	OutputIndex uint32
}

// TxInput is either a KeyInput or a DepositInput.
type TxInput interface {
	txInput()
}

func (KeyInput) txInput()     {}
func (DepositInput) txInput() {}

// KeyOutput locks an amount to a one-time public key.
type KeyOutput struct {
	Key cncrypto.PublicKey
}

// DepositOutput locks an amount for Term blocks.  RequiredSignatures is
// always 1 for wallet-created deposits.
type DepositOutput struct {
	Keys               []cncrypto.PublicKey
	RequiredSignatures uint32
	Term               uint32
}

// TxOutputTarget is either a KeyOutput or a DepositOutput.
type TxOutputTarget interface {
	txOutputTarget()
}

func (KeyOutput) txOutputTarget()     {}
func (DepositOutput) txOutputTarget() {}

// TxOutput is one output of a transaction.
type TxOutput struct {
	Amount uint64
	Target TxOutputTarget
}

// Transaction is the wallet-facing raw transaction.  Signatures holds one
// signature per ring member, grouped per input; deposit inputs carry a
// single-entry group.
type Transaction struct {
	Version    byte
	UnlockTime uint64
	Inputs     []TxInput
	Outputs    []TxOutput
	Extra      []byte
	Signatures [][]cncrypto.Signature
}

func writeUvarint(w *bytes.Buffer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.Write(buf[:n])
}

// serializePrefix writes everything that is covered by the input
// signatures: version, unlock time, inputs, outputs and extra.
func (tx *Transaction) serializePrefix(w *bytes.Buffer) {
	w.WriteByte(tx.Version)
	writeUvarint(w, tx.UnlockTime)

	writeUvarint(w, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		switch in := in.(type) {
		case KeyInput:
			w.WriteByte(tagInputKey)
			writeUvarint(w, in.Amount)
			writeUvarint(w, uint64(len(in.OutputOffsets)))
			for _, off := range in.OutputOffsets {
				writeUvarint(w, uint64(off))
			}
			w.Write(in.KeyImage[:])
		case DepositInput:
			w.WriteByte(tagInputDeposit)
			writeUvarint(w, in.Amount)
			writeUvarint(w, uint64(in.Term))
			writeUvarint(w, uint64(in.OutputIndex))
		}
	}

	writeUvarint(w, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeUvarint(w, out.Amount)
		switch target := out.Target.(type) {
		case KeyOutput:
			w.WriteByte(tagOutputKey)
			w.Write(target.Key[:])
		case DepositOutput:
			w.WriteByte(tagOutputDeposit)
			writeUvarint(w, uint64(len(target.Keys)))
			for _, key := range target.Keys {
				w.Write(key[:])
			}
			writeUvarint(w, uint64(target.RequiredSignatures))
			writeUvarint(w, uint64(target.Term))
		}
	}

	writeUvarint(w, uint64(len(tx.Extra)))
	w.Write(tx.Extra)
}

// Serialize returns the full wire encoding: prefix followed by the
// signature groups.
func (tx *Transaction) Serialize() []byte {
	var w bytes.Buffer
	tx.serializePrefix(&w)
	for _, group := range tx.Signatures {
		writeUvarint(&w, uint64(len(group)))
		for _, sig := range group {
			w.Write(sig[:])
		}
	}
	return w.Bytes()
}

// PrefixHash returns the Keccak-256 digest of the transaction prefix; this
// is the message signed by every input.
func (tx *Transaction) PrefixHash() chainhash.Hash {
	var w bytes.Buffer
	tx.serializePrefix(&w)
	return cncrypto.FastHash(w.Bytes())
}

// TxHash returns the transaction hash: the Keccak-256 digest of the full
// wire encoding.
func (tx *Transaction) TxHash() chainhash.Hash {
	return cncrypto.FastHash(tx.Serialize())
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, ErrMalformedTransaction
	}
	return v, nil
}

func readUvarint32(r *bytes.Reader) (uint32, error) {
	v, err := readUvarint(r)
	if err != nil {
		return 0, err
	}
	if v > 1<<32-1 {
		return 0, ErrMalformedTransaction
	}
	return uint32(v), nil
}

// maxTxEntries caps decoded collection sizes so a hostile length prefix
// cannot force a huge allocation.
const maxTxEntries = 1 << 16

func readCount(r *bytes.Reader) (int, error) {
	v, err := readUvarint(r)
	if err != nil {
		return 0, err
	}
	if v > maxTxEntries {
		return 0, ErrMalformedTransaction
	}
	return int(v), nil
}

// DeserializeTransaction decodes a full wire-encoded transaction.
func DeserializeTransaction(raw []byte) (*Transaction, error) {
	r := bytes.NewReader(raw)
	tx := &Transaction{}

	version, err := r.ReadByte()
	if err != nil {
		return nil, ErrMalformedTransaction
	}
	tx.Version = version
	if tx.UnlockTime, err = readUvarint(r); err != nil {
		return nil, err
	}

	inputCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < inputCount; i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, ErrMalformedTransaction
		}
		switch tag {
		case tagInputKey:
			var in KeyInput
			if in.Amount, err = readUvarint(r); err != nil {
				return nil, err
			}
			offsets, err := readCount(r)
			if err != nil {
				return nil, err
			}
			in.OutputOffsets = make([]uint32, offsets)
			for j := range in.OutputOffsets {
				if in.OutputOffsets[j], err = readUvarint32(r); err != nil {
					return nil, err
				}
			}
			if _, err := io.ReadFull(r, in.KeyImage[:]); err != nil {
				return nil, ErrMalformedTransaction
			}
			tx.Inputs = append(tx.Inputs, in)
		case tagInputDeposit:
			var in DepositInput
			if in.Amount, err = readUvarint(r); err != nil {
				return nil, err
			}
			if in.Term, err = readUvarint32(r); err != nil {
				return nil, err
			}
			if in.OutputIndex, err = readUvarint32(r); err != nil {
				return nil, err
			}
			tx.Inputs = append(tx.Inputs, in)
		default:
			return nil, fmt.Errorf("%w: unknown input tag %#x",
				ErrMalformedTransaction, tag)
		}
	}

	outputCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < outputCount; i++ {
		var out TxOutput
		if out.Amount, err = readUvarint(r); err != nil {
			return nil, err
		}
		tag, err := r.ReadByte()
		if err != nil {
			return nil, ErrMalformedTransaction
		}
		switch tag {
		case tagOutputKey:
			var target KeyOutput
			if _, err := io.ReadFull(r, target.Key[:]); err != nil {
				return nil, ErrMalformedTransaction
			}
			out.Target = target
		case tagOutputDeposit:
			var target DepositOutput
			keys, err := readCount(r)
			if err != nil {
				return nil, err
			}
			target.Keys = make([]cncrypto.PublicKey, keys)
			for j := range target.Keys {
				if _, err := io.ReadFull(r, target.Keys[j][:]); err != nil {
					return nil, ErrMalformedTransaction
				}
			}
			if target.RequiredSignatures, err = readUvarint32(r); err != nil {
				return nil, err
			}
			if target.Term, err = readUvarint32(r); err != nil {
				return nil, err
			}
			out.Target = target
		default:
			return nil, fmt.Errorf("%w: unknown output tag %#x",
				ErrMalformedTransaction, tag)
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	extraLen, err := readCount(r)
	if err != nil {
		return nil, err
	}
	tx.Extra = make([]byte, extraLen)
	if _, err := io.ReadFull(r, tx.Extra); err != nil {
		return nil, ErrMalformedTransaction
	}

	for i := 0; i < len(tx.Inputs); i++ {
		groupLen, err := readCount(r)
		if err != nil {
			return nil, err
		}
		group := make([]cncrypto.Signature, groupLen)
		for j := range group {
			if _, err := io.ReadFull(r, group[j][:]); err != nil {
				return nil, ErrMalformedTransaction
			}
		}
		tx.Signatures = append(tx.Signatures, group)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes",
			ErrMalformedTransaction, r.Len())
	}
	return tx, nil
}
