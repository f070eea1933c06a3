package util

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// A HashWriter wraps an io.Writer and also calculates the MD5 and SHA256
// hashes and the length of the bytes written. It fingerprints zip packages,
// both as they are written and when they are uploaded.
type HashWriter struct {
	w      io.Writer
	md5    hash.Hash
	sha256 hash.Hash
	size   int64
}

// NewHashWriter returns a HashWriter wrapping w.
func NewHashWriter(w io.Writer) *HashWriter {
	return &HashWriter{
		w:      w,
		md5:    md5.New(),
		sha256: sha256.New(),
	}
}

// Write passes p to the underlying writer. Only the bytes the underlying
// writer accepted are hashed.
func (hw *HashWriter) Write(p []byte) (int, error) {
	n, err := hw.w.Write(p)
	hw.md5.Write(p[:n])
	hw.sha256.Write(p[:n])
	hw.size += int64(n)
	return n, err
}

// Size is the number of bytes written so far.
func (hw *HashWriter) Size() int64 { return hw.size }

// MD5 returns the hex encoded MD5 of everything written so far.
func (hw *HashWriter) MD5() string { return hex.EncodeToString(hw.md5.Sum(nil)) }

// SHA256 returns the hex encoded SHA256 of everything written so far.
func (hw *HashWriter) SHA256() string { return hex.EncodeToString(hw.sha256.Sum(nil)) }
