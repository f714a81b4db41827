package mac

import (
	"errors"
	"hash"

	"github.com/rafalsk/botan/internal/algo"
)

var ErrKeyNotSet = errors.New("mac: key not set")

// MAC is a keyed hash. Write fails with ErrKeyNotSet until SetKey succeeds,
// and Sum appends nothing.
type MAC interface {
	hash.Hash
	SetKey(key []byte) error
}

// Register adds the MACs of this package to r. HMAC resolves its
// underlying hash from hashes.
func Register(r *algo.Registry[MAC], hashes *algo.Registry[hash.Hash]) {
	reg := algo.Into(r)
	reg.Add("HMAC", algo.Nested(hashes, NewHMAC))
	reg.Add("SipHash", algo.TwoInt(2, 4, NewSipHash))
}
