package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	APIKeyPrefix     = "ghst_"
	ShareTokenLength = 32
)

// GenerateAPIKey returns a prefixed random key for the dashboard API.
func GenerateAPIKey() (string, error) {
	id, err := gonanoid.New(32)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + id, nil
}

// GenerateShareToken returns a token drawn from the URL-safe nanoid alphabet.
func GenerateShareToken() (string, error) {
	return gonanoid.New(ShareTokenLength)
}
