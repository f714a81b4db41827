package mac

import (
	"encoding"
	"errors"
	"hash"
)

type hmacMAC struct {
	h     hash.Hash
	ipad  []byte
	opad  []byte
	keyed bool
}

// NewHMAC returns an HMAC over h, taking ownership of h.
func NewHMAC(h hash.Hash) (MAC, error) {
	if h == nil {
		return nil, errors.New("hmac: nil hash")
	}
	if h.BlockSize() <= 0 {
		return nil, errors.New("hmac: hash has no block size")
	}
	return &hmacMAC{h: h}, nil
}

func (m *hmacMAC) SetKey(key []byte) error {
	bs := m.h.BlockSize()
	if len(key) > bs {
		m.h.Reset()
		m.h.Write(key)
		key = m.h.Sum(nil)
	}
	m.ipad = make([]byte, bs)
	m.opad = make([]byte, bs)
	copy(m.ipad, key)
	copy(m.opad, key)
	for i := range m.ipad {
		m.ipad[i] ^= 0x36
		m.opad[i] ^= 0x5c
	}
	m.keyed = true
	m.Reset()
	return nil
}

func (m *hmacMAC) Write(p []byte) (int, error) {
	if !m.keyed {
		return 0, ErrKeyNotSet
	}
	return m.h.Write(p)
}

// Sum finishes the MAC. When the hash can marshal its state, the running
// computation continues afterwards; otherwise it restarts from the key.
func (m *hmacMAC) Sum(b []byte) []byte {
	if !m.keyed {
		return b
	}

	var saved []byte
	if bm, ok := m.h.(encoding.BinaryMarshaler); ok {
		saved, _ = bm.MarshalBinary()
	}

	inner := m.h.Sum(nil)
	m.h.Reset()
	m.h.Write(m.opad)
	m.h.Write(inner)
	out := m.h.Sum(b)

	if bu, ok := m.h.(encoding.BinaryUnmarshaler); ok && saved != nil {
		if err := bu.UnmarshalBinary(saved); err == nil {
			return out
		}
	}
	m.Reset()
	return out
}

func (m *hmacMAC) Reset() {
	m.h.Reset()
	if m.keyed {
		m.h.Write(m.ipad)
	}
}

func (m *hmacMAC) Size() int      { return m.h.Size() }
func (m *hmacMAC) BlockSize() int { return m.h.BlockSize() }
