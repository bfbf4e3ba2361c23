package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// maxKeyLength caps derived keys so counters in backends like Redis stay
// compact.
const maxKeyLength = 64

// KeyFunc derives a client identity from an HTTP request. Derivation must be
// deterministic: the same request attributes always yield the same key. An
// empty result means no identity could be extracted; the admission core then
// falls back to a tier-scoped shared key.
type KeyFunc func(*http.Request) string

// Composite combines multiple key extractors into one, joining non-empty
// parts with ":". Keys longer than 64 chars are replaced by a truncated
// SHA256 digest to keep storage keys bounded without meaningful collision
// risk.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		if len(parts) == 0 {
			return ""
		}

		combined := strings.Join(parts, ":")
		if len(combined) > maxKeyLength {
			digest := sha256.Sum256([]byte(combined))
			return hex.EncodeToString(digest[:16])
		}

		return combined
	}
}
