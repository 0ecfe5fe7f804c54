package auth

import "testing"

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals plain text")
	}

	if !h.Verify("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if h.Verify("wrong password", hash) {
		t.Error("wrong password accepted")
	}
	if h.Verify("correct horse battery staple", "") {
		t.Error("empty hash accepted")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	// Out-of-range cost must not panic on use.
	h := NewHasher(99)
	if _, err := h.Hash("pw"); err != nil {
		t.Fatalf("Hash with clamped cost: %v", err)
	}
}

func TestNewResetToken(t *testing.T) {
	plain, hash, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if len(plain) != 64 {
		t.Errorf("plain token length = %d, want 64 hex chars", len(plain))
	}
	if hash == plain {
		t.Error("hash equals plain token")
	}
	if HashResetToken(plain) != hash {
		t.Error("HashResetToken does not reproduce the stored hash")
	}

	plain2, _, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if plain == plain2 {
		t.Error("two tokens are identical")
	}
}
