package utils

import (
	"crypto/rand"
)

// idAlphabet matches the record id alphabet used by the collections.
const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateID returns a random record identifier of length n.
func GenerateID(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	for i := 0; i < n; i++ {
		byt[i] = idAlphabet[int(byt[i])%len(idAlphabet)]
	}

	return string(byt), nil
}

// MustGenerateID is GenerateID for call sites that treat an exhausted
// entropy source as fatal.
func MustGenerateID(n int) string {
	id, err := GenerateID(n)
	if err != nil {
		panic(err)
	}
	return id
}
