package publish

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`{"version":"1.0.0","stats":{"total_minutes":1200}}`)

	sealed, err := Encrypt(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("sealed payload leaks plaintext")
	}

	got, err := Decrypt(sealed, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestEncryptProducesFreshSalt(t *testing.T) {
	plaintext := []byte("same input")
	a, err := Encrypt(plaintext, "pass")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt(plaintext, "pass")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two encryptions of the same input must not be identical")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(sealed, "wrong"); err == nil {
		t.Fatal("expected wrong-passphrase decrypt to fail")
	}
}

func TestDecryptTamperDetected(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	sealed[len(sealed)-1] ^= 0x01
	if _, err := Decrypt(sealed, "pass"); err == nil {
		t.Fatal("expected tampered payload to fail authentication")
	}
}

func TestDecryptTruncated(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "pass"); err == nil {
		t.Fatal("expected truncated payload to fail")
	}
	if _, err := Decrypt(nil, "pass"); err == nil {
		t.Fatal("expected empty payload to fail")
	}
}

func TestEncryptEmptyPassphrase(t *testing.T) {
	if _, err := Encrypt([]byte("data"), ""); err == nil {
		t.Fatal("expected empty passphrase to be rejected")
	}
}
