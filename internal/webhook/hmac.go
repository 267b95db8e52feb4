package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// signatureVersion prefixes the signed base string and the header value.
	signatureVersion = "v0"

	// MaxRequestAge bounds the skew between the request timestamp and now, in either direction.
	MaxRequestAge = 5 * time.Minute
)

var errVerification = fmt.Errorf("request verification failed")

// verifySlackSignature checks the X-Slack-Signature header against
// HMAC-SHA256("v0:<timestamp>:<body>") and rejects stale timestamps.
//
// All errors are generic to prevent information leakage.
func verifySlackSignature(body []byte, timestamp, signature, secret string, now time.Time) error {
	if secret == "" || signature == "" || timestamp == "" {
		return errVerification
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errVerification
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > MaxRequestAge || age < -MaxRequestAge {
		return errVerification
	}

	actualMAC, err := parseSignature(signature)
	if err != nil {
		return errVerification
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare(computeMAC(body, timestamp, secret), actualMAC) != 1 {
		return errVerification
	}
	return nil
}

// parseSignature decodes a "v0=<hex>" signature.
func parseSignature(signature string) ([]byte, error) {
	hexSig, ok := strings.CutPrefix(signature, signatureVersion+"=")
	if !ok {
		return nil, fmt.Errorf("unsupported signature version")
	}
	return hex.DecodeString(hexSig)
}

func computeMAC(body []byte, timestamp, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureVersion + ":" + timestamp + ":"))
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign returns the X-Slack-Signature value for body at timestamp.
func Sign(body []byte, timestamp, secret string) string {
	return signatureVersion + "=" + hex.EncodeToString(computeMAC(body, timestamp, secret))
}
