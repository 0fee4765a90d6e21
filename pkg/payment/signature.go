package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the request header carrying "t=<unix>,v1=<hex hmac>".
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is the replay window around the signed timestamp.
const DefaultTolerance = 300 * time.Second

var (
	ErrMissingSignature  = errors.New("missing signature header")
	ErrMalformedHeader   = errors.New("malformed signature header")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrTimestampExpired  = errors.New("timestamp outside tolerance")
)

// SignatureVerifier checks webhook authenticity: an HMAC-SHA256 over
// "{t}.{body}" keyed by the shared secret, signed within the tolerance of now.
type SignatureVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{
		secret:    []byte(secret),
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (v *SignatureVerifier) WithClock(now func() time.Time) *SignatureVerifier {
	v.now = now
	return v
}

// Verify returns nil when header authenticates payload. Both the signature
// and the timestamp window are always evaluated; either failing invalidates
// the event. Header problems are reported as errors, never panics.
func (v *SignatureVerifier) Verify(payload []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if len(v.secret) == 0 {
		return ErrSignatureMismatch
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}
	signedAt, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrMalformedHeader)
	}

	expected := ComputeSignature(v.secret, timestamp, payload)
	matched := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			matched = true
		}
	}

	age := v.now().Sub(time.Unix(signedAt, 0))
	if age < 0 {
		age = -age
	}
	fresh := age <= v.tolerance

	switch {
	case !matched:
		return ErrSignatureMismatch
	case !fresh:
		return ErrTimestampExpired
	}
	return nil
}

// ComputeSignature returns the raw HMAC-SHA256 of "{timestamp}.{payload}".
func ComputeSignature(secret []byte, timestamp string, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignHeader builds a header value for payload signed at t.
func SignHeader(secret string, payload []byte, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	sig := hex.EncodeToString(ComputeSignature([]byte(secret), ts, payload))
	return "t=" + ts + ",v1=" + sig
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			timestamp = strings.TrimSpace(value)
		case "v1":
			signatures = append(signatures, strings.TrimSpace(value))
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, ErrMalformedHeader
	}
	return timestamp, signatures, nil
}
