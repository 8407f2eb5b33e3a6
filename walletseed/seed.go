// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walletseed converts the 32-byte recovery seed of a
// deterministic wallet to and from a human-readable mnemonic.  Each seed
// byte maps to one word of the PGP word list, alternating between the
// even and odd sublists by byte position, and a final checksum word is
// derived from the keccak hash of the seed.
package walletseed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// SeedSize is the length in bytes of an encoded recovery seed.
const SeedSize = 32

// mnemonicWords is the word count of a full mnemonic: one word per seed
// byte plus the checksum word.
const mnemonicWords = SeedSize + 1

var (
	// ErrMalformedMnemonic describes a mnemonic with the wrong word
	// count, an unknown word or a word from the wrong sublist.
	ErrMalformedMnemonic = errors.New("malformed mnemonic")

	// ErrChecksumMismatch describes a mnemonic whose checksum word does
	// not match its seed words.
	ErrChecksumMismatch = errors.New("mnemonic checksum mismatch")
)

// checksumByte derives the checksum word's byte value from the seed.
func checksumByte(seed []byte) byte {
	hash := cncrypto.FastHash(seed)
	return hash[0]
}

// wordAt returns the list word for a byte value at the given byte
// position, picking the two-syllable sublist for even positions and the
// three-syllable sublist for odd ones.
func wordAt(b byte, position int) string {
	index := uint16(b) * 2
	if position%2 != 0 {
		index++
	}
	return wordList[index]
}

// EncodeMnemonic returns the mnemonic encoding of the passed seed,
// including the trailing checksum word.
func EncodeMnemonic(seed *[SeedSize]byte) string {
	words := make([]string, 0, mnemonicWords)
	for i, b := range seed {
		words = append(words, wordAt(b, i))
	}
	words = append(words, wordAt(checksumByte(seed[:]), SeedSize))
	return strings.Join(words, " ")
}

// DecodeMnemonic converts a mnemonic back to the seed it encodes.  Word
// case is ignored.  The checksum word is verified against the decoded
// seed bytes.
func DecodeMnemonic(mnemonic string) (*[SeedSize]byte, error) {
	words := strings.Fields(strings.ToLower(mnemonic))
	if len(words) != mnemonicWords {
		return nil, fmt.Errorf("%w: expected %d words, got %d",
			ErrMalformedMnemonic, mnemonicWords, len(words))
	}

	var seed [SeedSize]byte
	for i, word := range words {
		index, ok := wordIndexes[word]
		if !ok {
			return nil, fmt.Errorf("%w: unknown word %q",
				ErrMalformedMnemonic, word)
		}

		// A word from the wrong sublist reveals a transposition.
		if int(index%2) != i%2 {
			return nil, fmt.Errorf("%w: word %q out of position",
				ErrMalformedMnemonic, word)
		}

		if i < SeedSize {
			seed[i] = byte(index / 2)
		} else if byte(index/2) != checksumByte(seed[:]) {
			return nil, ErrChecksumMismatch
		}
	}

	return &seed, nil
}
