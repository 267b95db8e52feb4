package webhook

import (
	"strconv"
	"testing"
	"time"
)

func TestVerifySlackSignature(t *testing.T) {
	secret := "8f742231b10e8888abcd99yyyzzz85a5"
	body := []byte("token=xyz&command=%2Fagent-task&text=fix+the+bug&channel_id=C1")
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := Sign(body, ts, secret)

	tests := []struct {
		name      string
		body      []byte
		timestamp string
		signature string
		secret    string
		now       time.Time
		wantErr   bool
	}{
		{name: "valid", body: body, timestamp: ts, signature: sig, secret: secret, now: now},
		{name: "valid with small skew", body: body, timestamp: ts, signature: sig, secret: secret, now: now.Add(4 * time.Minute)},
		{name: "tampered body", body: []byte("token=xyz&command=%2Fagent-cancel"), timestamp: ts, signature: sig, secret: secret, now: now, wantErr: true},
		{name: "wrong secret", body: body, timestamp: ts, signature: sig, secret: "other", now: now, wantErr: true},
		{name: "stale timestamp", body: body, timestamp: ts, signature: sig, secret: secret, now: now.Add(6 * time.Minute), wantErr: true},
		{name: "future timestamp", body: body, timestamp: ts, signature: sig, secret: secret, now: now.Add(-6 * time.Minute), wantErr: true},
		{name: "missing signature", body: body, timestamp: ts, signature: "", secret: secret, now: now, wantErr: true},
		{name: "missing timestamp", body: body, timestamp: "", signature: sig, secret: secret, now: now, wantErr: true},
		{name: "non-numeric timestamp", body: body, timestamp: "yesterday", signature: sig, secret: secret, now: now, wantErr: true},
		{name: "missing version prefix", body: body, timestamp: ts, signature: sig[3:], secret: secret, now: now, wantErr: true},
		{name: "invalid hex", body: body, timestamp: ts, signature: "v0=zzzz", secret: secret, now: now, wantErr: true},
		{name: "empty secret", body: body, timestamp: ts, signature: sig, secret: "", now: now, wantErr: true},
		{name: "timestamp not covered by signature", body: body, timestamp: strconv.FormatInt(now.Unix()+1, 10), signature: sig, secret: secret, now: now, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifySlackSignature(tt.body, tt.timestamp, tt.signature, tt.secret, tt.now)
			if (err != nil) != tt.wantErr {
				t.Errorf("verifySlackSignature() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err != errVerification {
				t.Errorf("error leaks detail: %v", err)
			}
		})
	}
}

func TestSignFormat(t *testing.T) {
	sig := Sign([]byte("a=b"), "1", "s")
	if len(sig) != len("v0=")+64 || sig[:3] != "v0=" {
		t.Errorf("Sign() = %q, want v0= followed by 64 hex chars", sig)
	}
}
