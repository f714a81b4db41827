package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha3"
	"crypto/sha512"
	"fmt"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"hash/fnv"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	xsha3 "golang.org/x/crypto/sha3"

	"github.com/rafalsk/botan/internal/algo"
)

// Provider names used by this family.
const (
	ProviderBuiltin = algo.DefaultProvider
	ProviderXCrypto = "xcrypto"
)

// Register adds every hash this package knows about to r.
// It is idempotent: repeated calls leave r unchanged.
func Register(r *algo.Registry[hash.Hash]) {
	reg := algo.Into(r)
	xcrypto := algo.WithProvider(ProviderXCrypto)

	reg.Add("MD5", algo.NoArgs(md5.New))
	reg.Add("SHA-1", algo.NoArgs(sha1.New))
	reg.Add("SHA-224", algo.NoArgs(sha256.New224))
	reg.Add("SHA-256", algo.NoArgs(sha256.New))
	reg.Add("SHA-384", algo.NoArgs(sha512.New384))
	reg.Add("SHA-512", algo.NoArgs(sha512.New))
	reg.Add("SHA-512-256", algo.NoArgs(sha512.New512_256))
	reg.Add("CRC32", algo.NoArgs(func() hash.Hash { return crc32.NewIEEE() }))
	reg.Add("Adler32", algo.NoArgs(func() hash.Hash { return adler32.New() }))
	reg.Add("FNV-1a", algo.OneInt(64, newFNV1a))

	reg.Add("SHA-3", algo.OneInt(512, newSHA3))
	reg.Add("SHA-3", algo.OneInt(512, newXSHA3), xcrypto)
	reg.Add("BLAKE2b", algo.OneInt(512, newBLAKE2b), xcrypto)
	reg.Add("BLAKE2s", algo.OneInt(256, newBLAKE2s), xcrypto)
	reg.Add("MD4", algo.NoArgs(md4.New), xcrypto)
	reg.Add("RIPEMD-160", algo.NoArgs(ripemd160.New), xcrypto)
}

func newFNV1a(bits int) (hash.Hash, error) {
	switch bits {
	case 32:
		return fnv.New32a(), nil
	case 64:
		return fnv.New64a(), nil
	case 128:
		return fnv.New128a(), nil
	}
	return nil, fmt.Errorf("FNV-1a: unsupported output size %d", bits)
}

func newSHA3(bits int) (hash.Hash, error) {
	switch bits {
	case 224:
		return sha3.New224(), nil
	case 256:
		return sha3.New256(), nil
	case 384:
		return sha3.New384(), nil
	case 512:
		return sha3.New512(), nil
	}
	return nil, fmt.Errorf("SHA-3: unsupported output size %d", bits)
}

func newXSHA3(bits int) (hash.Hash, error) {
	switch bits {
	case 224:
		return xsha3.New224(), nil
	case 256:
		return xsha3.New256(), nil
	case 384:
		return xsha3.New384(), nil
	case 512:
		return xsha3.New512(), nil
	}
	return nil, fmt.Errorf("SHA-3: unsupported output size %d", bits)
}

func newBLAKE2b(bits int) (hash.Hash, error) {
	if bits <= 0 || bits > 512 || bits%8 != 0 {
		return nil, fmt.Errorf("BLAKE2b: unsupported output size %d", bits)
	}
	return blake2b.New(bits/8, nil)
}

func newBLAKE2s(bits int) (hash.Hash, error) {
	// 128-bit BLAKE2s is only defined keyed.
	if bits != 256 {
		return nil, fmt.Errorf("BLAKE2s: unsupported output size %d", bits)
	}
	return blake2s.New256(nil)
}
