package mac

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const sipKeySize = 16

// sipHash is SipHash-c-d with a 64-bit tag, emitted little-endian.
type sipHash struct {
	c, d   int
	k0, k1 uint64
	keyed  bool

	v0, v1, v2, v3 uint64
	buf            [8]byte
	nbuf           int
	total          uint64
}

// NewSipHash returns SipHash with c compression and d finalization rounds.
func NewSipHash(c, d int) (MAC, error) {
	if c < 1 || d < 1 {
		return nil, fmt.Errorf("SipHash: invalid round counts %d,%d", c, d)
	}
	return &sipHash{c: c, d: d}, nil
}

func (s *sipHash) SetKey(key []byte) error {
	if len(key) != sipKeySize {
		return fmt.Errorf("SipHash: key must be %d bytes, got %d", sipKeySize, len(key))
	}
	s.k0 = binary.LittleEndian.Uint64(key[0:8])
	s.k1 = binary.LittleEndian.Uint64(key[8:16])
	s.keyed = true
	s.Reset()
	return nil
}

func (s *sipHash) Reset() {
	s.v0 = s.k0 ^ 0x736f6d6570736575
	s.v1 = s.k1 ^ 0x646f72616e646f6d
	s.v2 = s.k0 ^ 0x6c7967656e657261
	s.v3 = s.k1 ^ 0x7465646279746573
	s.nbuf = 0
	s.total = 0
}

func (s *sipHash) Write(p []byte) (int, error) {
	if !s.keyed {
		return 0, ErrKeyNotSet
	}
	n := len(p)
	s.total += uint64(n)

	if s.nbuf > 0 {
		c := copy(s.buf[s.nbuf:], p)
		s.nbuf += c
		p = p[c:]
		if s.nbuf < 8 {
			return n, nil
		}
		s.compress(binary.LittleEndian.Uint64(s.buf[:]))
		s.nbuf = 0
	}
	for len(p) >= 8 {
		s.compress(binary.LittleEndian.Uint64(p))
		p = p[8:]
	}
	s.nbuf = copy(s.buf[:], p)
	return n, nil
}

func (s *sipHash) Sum(b []byte) []byte {
	if !s.keyed {
		return b
	}
	t := *s

	var last [8]byte
	copy(last[:], t.buf[:t.nbuf])
	m := binary.LittleEndian.Uint64(last[:]) | t.total<<56
	t.compress(m)

	t.v2 ^= 0xff
	for i := 0; i < t.d; i++ {
		t.round()
	}
	return binary.LittleEndian.AppendUint64(b, t.v0^t.v1^t.v2^t.v3)
}

func (s *sipHash) compress(m uint64) {
	s.v3 ^= m
	for i := 0; i < s.c; i++ {
		s.round()
	}
	s.v0 ^= m
}

func (s *sipHash) round() {
	s.v0 += s.v1
	s.v1 = bits.RotateLeft64(s.v1, 13)
	s.v1 ^= s.v0
	s.v0 = bits.RotateLeft64(s.v0, 32)
	s.v2 += s.v3
	s.v3 = bits.RotateLeft64(s.v3, 16)
	s.v3 ^= s.v2
	s.v0 += s.v3
	s.v3 = bits.RotateLeft64(s.v3, 21)
	s.v3 ^= s.v0
	s.v2 += s.v1
	s.v1 = bits.RotateLeft64(s.v1, 17)
	s.v1 ^= s.v2
	s.v2 = bits.RotateLeft64(s.v2, 32)
}

func (s *sipHash) Size() int      { return 8 }
func (s *sipHash) BlockSize() int { return 8 }
