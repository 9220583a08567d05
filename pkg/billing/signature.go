package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// SignatureTolerance is the maximum age of a signed webhook.
const SignatureTolerance = 5 * time.Minute

var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature checks a Paddle-Signature header of the form
// "ts=<unix>;h1=<hex>" against body. The signed payload is ts + ":" + body.
func VerifySignature(secret, header string, body []byte, now time.Time, tolerance time.Duration) error {
	if secret == "" || header == "" {
		return ErrInvalidSignature
	}

	var ts string
	var signatures [][]byte
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "h1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				return ErrInvalidSignature
			}
			signatures = append(signatures, sig)
		}
	}
	if ts == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := now.Sub(time.Unix(unix, 0))
	if age > tolerance || age < -tolerance {
		return ErrInvalidSignature
	}

	expected := Sign(secret, ts, body)
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign computes the HMAC-SHA256 of ts + ":" + body.
func Sign(secret, ts string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeader builds a header value for body signed at t.
func SignatureHeader(secret string, body []byte, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	return "ts=" + ts + ";h1=" + hex.EncodeToString(Sign(secret, ts, body))
}
