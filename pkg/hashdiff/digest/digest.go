// Package digest computes the MD5, SHA1 and SHA256 digests of a file in a
// single read pass.
package digest

import (
	"crypto/md5"  //nolint:gosec // md5 is part of the recorded digest set, not used for security
	"crypto/sha1" //nolint:gosec // sha1 is part of the recorded digest set, not used for security
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/types"
)

// bufferSize is the read buffer used for streaming file content.
const bufferSize = 256 * 1024

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// Compute reads the file at path once and returns its digest set along with
// the number of bytes read. Any open or read failure is returned as a
// *types.IOError.
func Compute(path string) (types.DigestSet, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.DigestSet{}, 0, &types.IOError{Path: path, Err: err}
	}
	defer f.Close()

	ds, n, err := ComputeReader(f)
	if err != nil {
		return types.DigestSet{}, n, &types.IOError{Path: path, Err: err}
	}
	return ds, n, nil
}

// ComputeReader streams r through all three hashes.
func ComputeReader(r io.Reader) (types.DigestSet, int64, error) {
	md5h := md5.New()
	sha1h := sha1.New()
	sha256h := sha256.New()
	w := io.MultiWriter(md5h, sha1h, sha256h)

	bufp, _ := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)

	n, err := io.CopyBuffer(w, r, *bufp)
	if err != nil {
		return types.DigestSet{}, n, err
	}

	return types.DigestSet{
		MD5:    hex.EncodeToString(md5h.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1h.Sum(nil)),
		SHA256: hex.EncodeToString(sha256h.Sum(nil)),
	}, n, nil
}

// Bytes returns the digest set of an in-memory buffer.
func Bytes(data []byte) types.DigestSet {
	md5sum := md5.Sum(data)
	sha1sum := sha1.Sum(data)
	sha256sum := sha256.Sum256(data)
	return types.DigestSet{
		MD5:    hex.EncodeToString(md5sum[:]),
		SHA1:   hex.EncodeToString(sha1sum[:]),
		SHA256: hex.EncodeToString(sha256sum[:]),
	}
}
