package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "0123456789abcdef0123456789abcdef"

func newVerifier(now time.Time) *SignatureVerifier {
	v := NewSignatureVerifier(VerifierConfig{Secret: secret, MaxSkew: time.Minute}, NewMemoryNonceStore(), zap.NewNop())
	v.clock = func() time.Time { return now }
	return v
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	body := []byte(`{"customer_id":"c1"}`)
	ts := now.Unix()
	sig := Sign([]byte(secret), ts, "n-1", body)

	tests := []struct {
		name      string
		body      []byte
		signature string
		nonce     string
		timestamp int64
		want      error
	}{
		{name: "valid", body: body, signature: sig, nonce: "n-1", timestamp: ts},
		{name: "prefixed", body: body, signature: "sha256=" + Sign([]byte(secret), ts, "n-2", body), nonce: "n-2", timestamp: ts},
		{name: "missing", body: body, nonce: "n-3", timestamp: ts, want: ErrMissingSignature},
		{name: "tampered body", body: []byte(`{"customer_id":"c2"}`), signature: sig, nonce: "n-1", timestamp: ts, want: ErrBadSignature},
		{name: "old", body: body, signature: Sign([]byte(secret), ts-120, "n-4", body), nonce: "n-4", timestamp: ts - 120, want: ErrStaleTimestamp},
		{name: "future", body: body, signature: Sign([]byte(secret), ts+120, "n-5", body), nonce: "n-5", timestamp: ts + 120, want: ErrStaleTimestamp},
	}

	v := newVerifier(now)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(context.Background(), tt.body, tt.signature, tt.nonce, tt.timestamp)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerify_Replay(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	v := newVerifier(now)
	body := []byte(`{}`)
	sig := Sign([]byte(secret), now.Unix(), "once", body)

	require.NoError(t, v.Verify(context.Background(), body, sig, "once", now.Unix()))
	assert.ErrorIs(t, v.Verify(context.Background(), body, sig, "once", now.Unix()), ErrReplayed)
}

func TestVerify_BadSignatureDoesNotClaimNonce(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	v := newVerifier(now)
	body := []byte(`{}`)

	assert.ErrorIs(t, v.Verify(context.Background(), body, "deadbeef", "n", now.Unix()), ErrBadSignature)
	assert.NoError(t, v.Verify(context.Background(), body, Sign([]byte(secret), now.Unix(), "n", body), "n", now.Unix()))
}

func TestMemoryNonceStore_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryNonceStore()
	s.clock = func() time.Time { return now }

	ok, err := s.Claim(context.Background(), "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = s.Claim(context.Background(), "a", time.Minute)
	assert.False(t, ok)

	s.clock = func() time.Time { return now.Add(2 * time.Minute) }
	ok, _ = s.Claim(context.Background(), "a", time.Minute)
	assert.True(t, ok)
}

func TestIPAllowlist(t *testing.T) {
	list, err := NewIPAllowlist([]string{"10.0.0.0/8", "192.168.1.7"})
	require.NoError(t, err)

	assert.True(t, list.Allowed("10.20.30.40"))
	assert.True(t, list.Allowed("192.168.1.7"))
	assert.False(t, list.Allowed("192.168.1.8"))
	assert.False(t, list.Allowed("garbage"))

	empty, err := NewIPAllowlist(nil)
	require.NoError(t, err)
	assert.True(t, empty.Allowed("8.8.8.8"))

	_, err = NewIPAllowlist([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
