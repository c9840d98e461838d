package oracle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the callback signature
const SignatureHeader = "X-Oracle-Signature"

// Signature errors
var (
	ErrMissingSignature = errors.New("oracle: missing callback signature")
	ErrInvalidSignature = errors.New("oracle: invalid callback signature")
)

// CallbackSigner signs and verifies gateway callbacks with HMAC-SHA256.
// The signed message is requestID, payload and error payload joined by
// newlines, with both payloads hex encoded.
type CallbackSigner struct {
	secret []byte
}

// NewCallbackSigner creates a signer. An empty secret disables verification.
func NewCallbackSigner(secret string) *CallbackSigner {
	return &CallbackSigner{secret: []byte(secret)}
}

// Enabled reports whether callbacks are authenticated
func (s *CallbackSigner) Enabled() bool {
	return len(s.secret) > 0
}

// Sign returns the hex signature of a callback
func (s *CallbackSigner) Sign(requestID string, payload, errPayload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(requestID))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(hex.EncodeToString(payload)))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(hex.EncodeToString(errPayload)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature in constant time. It accepts anything when disabled.
func (s *CallbackSigner) Verify(requestID string, payload, errPayload []byte, signature string) error {
	if !s.Enabled() {
		return nil
	}
	if signature == "" {
		return ErrMissingSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return ErrInvalidSignature
	}
	want, _ := hex.DecodeString(s.Sign(requestID, payload, errPayload))
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}
