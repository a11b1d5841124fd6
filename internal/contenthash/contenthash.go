// Package contenthash computes the xxHash3-64 digests that identify file
// contents and task fingerprints throughout nxcore. Every digest is rendered
// as a base-10 string so it round-trips identically across platforms and
// languages.
package contenthash

import (
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Hash returns the xxHash3-64 digest of content as a decimal string.
func Hash(content []byte) string {
	return strconv.FormatUint(xxh3.Hash(content), 10)
}

// HashString is a convenience wrapper over Hash for string content.
func HashString(content string) string {
	return strconv.FormatUint(xxh3.HashString(content), 10)
}

// HashArray hashes a slice of strings by joining them with commas and
// hashing the resulting byte sequence, matching the folding rule used to
// combine per-instruction hashes into a task fingerprint.
func HashArray(values []string) string {
	return HashString(strings.Join(values, ","))
}
