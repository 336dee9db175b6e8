package hash

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

type Hasher struct {
	algorithm Algorithm
}

func NewHasher(algorithm Algorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

func (h *Hasher) Calculate(data []byte) (string, error) {
	hasher, err := h.newHash()
	if err != nil {
		return "", err
	}

	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (h *Hasher) CalculateReader(reader io.Reader) (string, error) {
	hasher, err := h.newHash()
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// TeeReader hashes everything read through the returned reader. Sum yields
// the digest once the reader is drained.
func (h *Hasher) TeeReader(reader io.Reader) (io.Reader, func() string, error) {
	hasher, err := h.newHash()
	if err != nil {
		return nil, nil, err
	}
	sum := func() string { return hex.EncodeToString(hasher.Sum(nil)) }
	return io.TeeReader(reader, hasher), sum, nil
}

func (h *Hasher) newHash() (hash.Hash, error) {
	switch h.algorithm {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", h.algorithm)
	}
}
