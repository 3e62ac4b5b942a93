package ledger

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecryptKeySeedRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	blob, err := EncryptKeySeed(kp.Seed(), "correct horse")
	if err != nil {
		t.Fatalf("encrypt seed: %v", err)
	}
	if bytes.Contains(blob, kp.Seed()) {
		t.Fatal("ciphertext contains plaintext seed")
	}

	seed, err := DecryptKeySeed(blob, "correct horse")
	if err != nil {
		t.Fatalf("decrypt seed: %v", err)
	}
	if !bytes.Equal(seed, kp.Seed()) {
		t.Fatal("decrypted seed does not match original")
	}

	restored, err := KeypairFromSeed(seed)
	if err != nil {
		t.Fatalf("keypair from seed: %v", err)
	}
	if restored.Address() != kp.Address() {
		t.Fatalf("restored address %s, want %s", restored.Address(), kp.Address())
	}
}

func TestDecryptKeySeedWrongPassphrase(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	blob, err := EncryptKeySeed(kp.Seed(), "right")
	if err != nil {
		t.Fatalf("encrypt seed: %v", err)
	}

	if _, err := DecryptKeySeed(blob, "wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestDecryptKeySeedTruncatedBlob(t *testing.T) {
	if _, err := DecryptKeySeed([]byte("short"), "x"); !errors.Is(err, ErrInvalidKeyCiphertext) {
		t.Fatalf("expected ErrInvalidKeyCiphertext, got %v", err)
	}
}

func TestEncryptKeySeedRejectsEmptySeed(t *testing.T) {
	if _, err := EncryptKeySeed(nil, "x"); !errors.Is(err, ErrInvalidKeySeed) {
		t.Fatalf("expected ErrInvalidKeySeed, got %v", err)
	}
}

func TestValidateAddress(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	cases := []struct {
		name string
		addr string
		want bool
	}{
		{"generated address", kp.Address(), true},
		{"empty", "", false},
		{"too short", "abc", false},
		{"invalid base58 chars", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", false},
		{"wrong decoded length", "2g", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateAddress(tc.addr); got != tc.want {
				t.Fatalf("ValidateAddress(%q) = %v, want %v", tc.addr, got, tc.want)
			}
		})
	}
}

func TestKeypairFromSeedRejectsBadLength(t *testing.T) {
	if _, err := KeypairFromSeed([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidKeySeed) {
		t.Fatalf("expected ErrInvalidKeySeed, got %v", err)
	}
}
