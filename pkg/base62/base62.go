// Package base62 converts numeric identifiers to short alphanumeric strings.
package base62

// The alphabet order (digits, then lowercase, then uppercase) is part of the
// short-code contract: changing it would remap every existing code.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(alphabet))

// Encode converts a non-negative integer to its base62 representation.
// The mapping is injective: distinct inputs always yield distinct codes.
func Encode(n uint64) string {
	if n == 0 {
		return string(alphabet[0])
	}

	buf := make([]byte, 0, 11)
	for n > 0 {
		buf = append(buf, alphabet[n%base])
		n /= base
	}

	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf)
}
