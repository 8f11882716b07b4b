package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const (
	FacebookSignatureHeader = "X-Hub-Signature-256"
	TwitterSignatureHeader  = "X-Twitter-Webhooks-Signature"
	LinkedInSignatureHeader = "X-LI-Signature"
)

func sign(message []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return mac.Sum(nil)
}

// VerifyFacebook checks "sha256=" + hex(HMAC-SHA256(body, appSecret)).
func VerifyFacebook(body []byte, header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	expected := "sha256=" + hex.EncodeToString(sign(body, secret))
	return hmac.Equal([]byte(header), []byte(expected))
}

// VerifyTwitter checks "sha256=" + base64(HMAC-SHA256(body, consumerSecret)).
func VerifyTwitter(body []byte, header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	return hmac.Equal([]byte(header), []byte(twitterSignature(body, secret)))
}

// TwitterCRCResponse answers the CRC challenge with the same construction
// used for payload signatures.
func TwitterCRCResponse(crcToken, secret string) string {
	return twitterSignature([]byte(crcToken), secret)
}

func twitterSignature(message []byte, secret string) string {
	return "sha256=" + base64.StdEncoding.EncodeToString(sign(message, secret))
}

// VerifyLinkedIn checks a hex HMAC-SHA256, with or without a "sha256="
// prefix. Callers only invoke it when a secret is configured.
func VerifyLinkedIn(body []byte, header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	got := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	expected := hex.EncodeToString(sign(body, secret))
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(expected))
}
