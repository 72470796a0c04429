package signing

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSignDeterministic(t *testing.T) {
	s := NewSigner("0123456789abcdef0123456789abcdef")
	claim := Claim{
		QuestionID: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		OptionID:   uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
		Correct:    true,
		Salt:       "aabbccdd00112233",
	}

	first := s.Sign(claim)
	second := s.Sign(claim)
	if first != second {
		t.Fatalf("same claim produced different tags: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("tag length = %d, want 64 hex chars", len(first))
	}
	if strings.ToLower(first) != first {
		t.Fatalf("tag is not lowercase hex: %s", first)
	}
}

func TestFlagChangesTag(t *testing.T) {
	s := NewSigner("secret")
	base := Claim{
		QuestionID: uuid.New(),
		OptionID:   uuid.New(),
		Salt:       "deadbeef",
	}

	trueClaim := base
	trueClaim.Correct = true
	falseClaim := base
	falseClaim.Correct = false

	if s.Sign(trueClaim) == s.Sign(falseClaim) {
		t.Fatal("true and false flags produced the same tag")
	}
}

func TestVerify(t *testing.T) {
	s := NewSigner("secret")
	claim := Claim{QuestionID: uuid.New(), OptionID: uuid.New(), Correct: true, Salt: "01020304"}
	tag := s.Sign(claim)

	if !s.Verify(tag, claim) {
		t.Fatal("valid tag rejected")
	}

	other := claim
	other.Correct = false
	if s.Verify(tag, other) {
		t.Fatal("tag verified against a different flag")
	}

	if s.Verify(tag, Claim{QuestionID: claim.QuestionID, OptionID: uuid.New(), Correct: true, Salt: claim.Salt}) {
		t.Fatal("tag verified against a different option")
	}

	if NewSigner("other-secret").Verify(tag, claim) {
		t.Fatal("tag verified under a different secret")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewSigner("secret")
	claim := Claim{QuestionID: uuid.New(), OptionID: uuid.New(), Salt: "ff"}

	for _, tag := range []string{"", "zz", strings.Repeat("0", 64)} {
		if s.Verify(tag, claim) {
			t.Fatalf("garbage tag %q verified", tag)
		}
	}
}

func TestSecretAndSaltGeneration(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		secret, err := NewSecret()
		if err != nil {
			t.Fatalf("NewSecret: %v", err)
		}
		if len(secret) != secretBytes*2 {
			t.Fatalf("secret length = %d, want %d", len(secret), secretBytes*2)
		}
		if seen[secret] {
			t.Fatalf("duplicate secret generated: %s", secret)
		}
		seen[secret] = true

		salt, err := NewSalt()
		if err != nil {
			t.Fatalf("NewSalt: %v", err)
		}
		if len(salt) != saltBytes*2 {
			t.Fatalf("salt length = %d, want %d", len(salt), saltBytes*2)
		}
	}
}
