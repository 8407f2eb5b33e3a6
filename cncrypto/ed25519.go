// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cncrypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrMalformedKey describes a key or key image that does not decode to a
// canonical scalar or group element.
var ErrMalformedKey = errors.New("malformed key")

// edSuite implements Suite over the ed25519 group.
//
// One deliberate deviation from the reference C implementation: the
// per-output base point Hp(P) is derived as Hs(P)*G rather than through the
// ge_fromfe map.  Key images remain deterministic and collision-bound to
// the output key, which is the property the wallet relies on.
type edSuite struct{}

// NewSuite returns the ed25519-backed Suite.
func NewSuite() Suite { return edSuite{} }

func randomScalar() (*edwards25519.Scalar, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return nil, err
	}
	return edwards25519.NewScalar().SetUniformBytes(wide[:])
}

func hashToScalar(data ...[]byte) *edwards25519.Scalar {
	digest := FastHash(data...)
	var wide [64]byte
	copy(wide[:], digest[:])
	// SetUniformBytes cannot fail for a 64-byte input.
	s, _ := edwards25519.NewScalar().SetUniformBytes(wide[:])
	return s
}

func scalarFromBytes(b []byte) (*edwards25519.Scalar, error) {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return s, nil
}

func pointFromBytes(b []byte) (*edwards25519.Point, error) {
	p, err := new(edwards25519.Point).SetBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return p, nil
}

func hashToPoint(pub PublicKey) *edwards25519.Point {
	return new(edwards25519.Point).ScalarBaseMult(hashToScalar(pub[:]))
}

func secretKey(s *edwards25519.Scalar) SecretKey {
	var k SecretKey
	copy(k[:], s.Bytes())
	return k
}

func publicKey(p *edwards25519.Point) PublicKey {
	var k PublicKey
	copy(k[:], p.Bytes())
	return k
}

func (edSuite) GenerateSeed() (SecretKey, error) {
	var seed SecretKey
	if _, err := rand.Read(seed[:]); err != nil {
		return NullSecretKey, err
	}
	return seed, nil
}

func (edSuite) GenerateKeys() (PublicKey, SecretKey, error) {
	s, err := randomScalar()
	if err != nil {
		return NullPublicKey, NullSecretKey, err
	}
	pub := publicKey(new(edwards25519.Point).ScalarBaseMult(s))
	return pub, secretKey(s), nil
}

func (edSuite) GenerateDeterministicKeys(seed SecretKey) (PublicKey, SecretKey) {
	var wide [64]byte
	copy(wide[:], seed[:])
	s, _ := edwards25519.NewScalar().SetUniformBytes(wide[:])
	pub := publicKey(new(edwards25519.Point).ScalarBaseMult(s))
	return pub, secretKey(s)
}

func (edSuite) SecretKeyToPublicKey(sec SecretKey) (PublicKey, error) {
	s, err := scalarFromBytes(sec[:])
	if err != nil {
		return NullPublicKey, err
	}
	return publicKey(new(edwards25519.Point).ScalarBaseMult(s)), nil
}

func (edSuite) ScReduce32(b SecretKey) SecretKey {
	var wide [64]byte
	copy(wide[:], b[:])
	s, _ := edwards25519.NewScalar().SetUniformBytes(wide[:])
	return secretKey(s)
}

func (edSuite) GenerateKeyDerivation(pub PublicKey, sec SecretKey) (KeyDerivation, error) {
	var d KeyDerivation
	p, err := pointFromBytes(pub[:])
	if err != nil {
		return d, err
	}
	s, err := scalarFromBytes(sec[:])
	if err != nil {
		return d, err
	}
	shared := new(edwards25519.Point).ScalarMult(s, p)
	shared.MultByCofactor(shared)
	copy(d[:], shared.Bytes())
	return d, nil
}

func derivationToScalar(derivation KeyDerivation, outputIndex uint32) *edwards25519.Scalar {
	var idx [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(idx[:], uint64(outputIndex))
	return hashToScalar(derivation[:], idx[:n])
}

func (edSuite) DerivePublicKey(derivation KeyDerivation, outputIndex uint32, base PublicKey) (PublicKey, error) {
	b, err := pointFromBytes(base[:])
	if err != nil {
		return NullPublicKey, err
	}
	h := derivationToScalar(derivation, outputIndex)
	p := new(edwards25519.Point).ScalarBaseMult(h)
	p.Add(p, b)
	return publicKey(p), nil
}

func (edSuite) DeriveSecretKey(derivation KeyDerivation, outputIndex uint32, base SecretKey) SecretKey {
	b, err := scalarFromBytes(base[:])
	if err != nil {
		// Secret keys produced by this package are always canonical.
		return NullSecretKey
	}
	h := derivationToScalar(derivation, outputIndex)
	return secretKey(h.Add(h, b))
}

func (edSuite) GenerateKeyImage(pub PublicKey, sec SecretKey) (KeyImage, error) {
	var image KeyImage
	s, err := scalarFromBytes(sec[:])
	if err != nil {
		return image, err
	}
	p := new(edwards25519.Point).ScalarMult(s, hashToPoint(pub))
	copy(image[:], p.Bytes())
	return image, nil
}

func (edSuite) ScalarmultKey(p KeyImage, s KeyImage) (KeyImage, error) {
	var out KeyImage
	pt, err := pointFromBytes(p[:])
	if err != nil {
		return out, err
	}
	sc, err := scalarFromBytes(s[:])
	if err != nil {
		return out, err
	}
	copy(out[:], new(edwards25519.Point).ScalarMult(sc, pt).Bytes())
	return out, nil
}

func (edSuite) GenerateSignature(prefixHash chainhash.Hash, pub PublicKey, sec SecretKey) (Signature, error) {
	var sig Signature
	s, err := scalarFromBytes(sec[:])
	if err != nil {
		return sig, err
	}
	k, err := randomScalar()
	if err != nil {
		return sig, err
	}
	commit := new(edwards25519.Point).ScalarBaseMult(k)
	c := hashToScalar(prefixHash[:], pub[:], commit.Bytes())
	r := edwards25519.NewScalar().Multiply(c, s)
	r.Subtract(k, r)
	copy(sig[:32], c.Bytes())
	copy(sig[32:], r.Bytes())
	return sig, nil
}

func (edSuite) CheckSignature(prefixHash chainhash.Hash, pub PublicKey, sig Signature) bool {
	p, err := pointFromBytes(pub[:])
	if err != nil {
		return false
	}
	c, err := scalarFromBytes(sig[:32])
	if err != nil {
		return false
	}
	r, err := scalarFromBytes(sig[32:])
	if err != nil {
		return false
	}
	// commit' = r*G + c*P; valid iff Hs(prefix, P, commit') == c.
	commit := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(c, p, r)
	return hashToScalar(prefixHash[:], pub[:], commit.Bytes()).Equal(c) == 1
}

func (edSuite) GenerateTxProof(prefixHash chainhash.Hash, r SecretKey, R, A, D PublicKey) (Signature, error) {
	var sig Signature
	sec, err := scalarFromBytes(r[:])
	if err != nil {
		return sig, err
	}
	a, err := pointFromBytes(A[:])
	if err != nil {
		return sig, err
	}
	k, err := randomScalar()
	if err != nil {
		return sig, err
	}
	x := new(edwards25519.Point).ScalarBaseMult(k)
	y := new(edwards25519.Point).ScalarMult(k, a)
	c := hashToScalar(prefixHash[:], R[:], A[:], D[:], x.Bytes(), y.Bytes())
	resp := edwards25519.NewScalar().Multiply(c, sec)
	resp.Subtract(k, resp)
	copy(sig[:32], c.Bytes())
	copy(sig[32:], resp.Bytes())
	return sig, nil
}

func (edSuite) CheckTxProof(prefixHash chainhash.Hash, R, A, D PublicKey, sig Signature) bool {
	rPt, err := pointFromBytes(R[:])
	if err != nil {
		return false
	}
	aPt, err := pointFromBytes(A[:])
	if err != nil {
		return false
	}
	dPt, err := pointFromBytes(D[:])
	if err != nil {
		return false
	}
	c, err := scalarFromBytes(sig[:32])
	if err != nil {
		return false
	}
	resp, err := scalarFromBytes(sig[32:])
	if err != nil {
		return false
	}
	x := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(c, rPt, resp)
	y := new(edwards25519.Point).ScalarMult(resp, aPt)
	y.Add(y, new(edwards25519.Point).ScalarMult(c, dPt))
	return hashToScalar(prefixHash[:], R[:], A[:], D[:], x.Bytes(), y.Bytes()).Equal(c) == 1
}

func (edSuite) GenerateRingSignature(prefixHash chainhash.Hash, image KeyImage,
	pubs []PublicKey, sec SecretKey, secIndex int) ([]Signature, error) {

	if secIndex < 0 || secIndex >= len(pubs) {
		return nil, errors.New("ring signature: secret index out of range")
	}
	s, err := scalarFromBytes(sec[:])
	if err != nil {
		return nil, err
	}
	imagePt, err := pointFromBytes(image[:])
	if err != nil {
		return nil, err
	}

	sigs := make([]Signature, len(pubs))
	sum := edwards25519.NewScalar()
	buf := make([]byte, 0, 32*(1+2*len(pubs)))
	buf = append(buf, prefixHash[:]...)

	var k *edwards25519.Scalar
	for i, pub := range pubs {
		var li, ri *edwards25519.Point
		if i == secIndex {
			k, err = randomScalar()
			if err != nil {
				return nil, err
			}
			li = new(edwards25519.Point).ScalarBaseMult(k)
			ri = new(edwards25519.Point).ScalarMult(k, hashToPoint(pub))
		} else {
			p, err := pointFromBytes(pub[:])
			if err != nil {
				return nil, err
			}
			ci, err := randomScalar()
			if err != nil {
				return nil, err
			}
			qi, err := randomScalar()
			if err != nil {
				return nil, err
			}
			li = new(edwards25519.Point).VarTimeDoubleScalarBaseMult(ci, p, qi)
			ri = new(edwards25519.Point).ScalarMult(qi, hashToPoint(pub))
			ri.Add(ri, new(edwards25519.Point).ScalarMult(ci, imagePt))
			copy(sigs[i][:32], ci.Bytes())
			copy(sigs[i][32:], qi.Bytes())
			sum.Add(sum, ci)
		}
		buf = append(buf, li.Bytes()...)
		buf = append(buf, ri.Bytes()...)
	}

	h := hashToScalar(buf)
	cs := edwards25519.NewScalar().Subtract(h, sum)
	rs := edwards25519.NewScalar().Multiply(cs, s)
	rs.Subtract(k, rs)
	copy(sigs[secIndex][:32], cs.Bytes())
	copy(sigs[secIndex][32:], rs.Bytes())
	return sigs, nil
}

func (edSuite) CheckRingSignature(prefixHash chainhash.Hash, image KeyImage,
	pubs []PublicKey, sigs []Signature) bool {

	if len(pubs) == 0 || len(pubs) != len(sigs) {
		return false
	}
	imagePt, err := pointFromBytes(image[:])
	if err != nil {
		return false
	}

	sum := edwards25519.NewScalar()
	buf := make([]byte, 0, 32*(1+2*len(pubs)))
	buf = append(buf, prefixHash[:]...)
	for i, pub := range pubs {
		p, err := pointFromBytes(pub[:])
		if err != nil {
			return false
		}
		ci, err := scalarFromBytes(sigs[i][:32])
		if err != nil {
			return false
		}
		qi, err := scalarFromBytes(sigs[i][32:])
		if err != nil {
			return false
		}
		li := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(ci, p, qi)
		ri := new(edwards25519.Point).ScalarMult(qi, hashToPoint(pub))
		ri.Add(ri, new(edwards25519.Point).ScalarMult(ci, imagePt))
		buf = append(buf, li.Bytes()...)
		buf = append(buf, ri.Bytes()...)
		sum.Add(sum, ci)
	}
	return hashToScalar(buf).Equal(sum) == 1
}
