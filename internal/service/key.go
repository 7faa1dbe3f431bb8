package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	channelKeyLength   = 16
	channelKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// generateKey returns a random alphanumeric invite key.
func generateKey() (string, error) {
	max := big.NewInt(int64(len(channelKeyAlphabet)))
	key := make([]byte, channelKeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate key: %w", err)
		}
		key[i] = channelKeyAlphabet[n.Int64()]
	}
	return string(key), nil
}
