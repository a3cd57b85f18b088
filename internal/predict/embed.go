package predict

import (
	"hash/fnv"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Vectorizer maps free-text (screen, functional, action) fields to a fixed
// dimension embedding by feature hashing. The dimension must match the
// text_emb columns the model artifact was trained with.
type Vectorizer struct {
	Dim int
}

// Embed returns the L2-normalized hashed bag-of-words vector for the three
// text fields. Tokens are NFC-normalized and lowercased so the same label
// typed with different Unicode compositions lands in the same bucket.
func (v Vectorizer) Embed(screen, functional, action string) []float64 {
	out := make([]float64, v.Dim)
	if v.Dim == 0 {
		return out
	}

	text := norm.NFC.String(strings.ToLower(screen + " " + functional + " " + action))
	for _, token := range strings.Fields(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(v.Dim))
		// Top bit decides the sign so opposing tokens cancel instead of
		// piling up in dense buckets.
		if sum>>63 == 1 {
			out[bucket]--
		} else {
			out[bucket]++
		}
	}

	var ss float64
	for _, x := range out {
		ss += x * x
	}
	if ss > 0 {
		inv := 1 / math.Sqrt(ss)
		for i := range out {
			out[i] *= inv
		}
	}
	return out
}
