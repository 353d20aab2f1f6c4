package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest is a hex-encoded SHA-256 sum, 64 characters long.
type Digest string

// Sum digests data.
func Sum(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// SumValue digests the printed form of a cell value, so 7 and "7" collide.
func SumValue(v interface{}) Digest {
	return Sum([]byte(fmt.Sprint(v)))
}

func (d Digest) String() string { return string(d) }
