package onramp

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// signedEnvelope is the JSON document whose base64 form is sent as the payload header.
type signedEnvelope struct {
	Body      any    `json:"body"`
	Timestamp string `json:"timestamp"`
}

// Signature is the set of authentication headers for one request.
type Signature struct {
	Payload   string
	Signature string
	Timestamp string
}

// Sign builds the payload and its hex HMAC-SHA512 signature for body at now.
// A nil body is signed as an empty object.
func Sign(body any, secret string, now time.Time) (Signature, error) {
	if body == nil {
		body = struct{}{}
	}
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	raw, err := json.Marshal(signedEnvelope{Body: body, Timestamp: timestamp})
	if err != nil {
		return Signature{}, fmt.Errorf("encode signed payload: %w", err)
	}
	payload := base64.StdEncoding.EncodeToString(raw)
	return Signature{
		Payload:   payload,
		Signature: computeSignature(payload, secret),
		Timestamp: timestamp,
	}, nil
}

// Verify reports whether signature matches payload under secret.
func Verify(payload, signature, secret string) bool {
	expected, err := hex.DecodeString(computeSignature(payload, secret))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

func computeSignature(payload, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
