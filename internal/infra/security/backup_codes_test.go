package security

import (
	"strings"
	"testing"
)

func TestGenerateBackupCodesFormat(t *testing.T) {
	codes, err := GenerateBackupCodes(10)
	if err != nil {
		t.Fatalf("GenerateBackupCodes returned error: %v", err)
	}

	if len(codes) != 10 {
		t.Fatalf("expected 10 codes, got %d", len(codes))
	}

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		parts := strings.Split(code, "-")
		if len(parts) != 2 || len(parts[0]) != 5 || len(parts[1]) != 5 {
			t.Fatalf("unexpected code format: %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %q", code)
		}
		seen[code] = true
	}
}

func TestGenerateBackupCodesRejectsNonPositiveCount(t *testing.T) {
	if _, err := GenerateBackupCodes(0); err == nil {
		t.Fatal("expected error for zero count")
	}
}

func TestHashBackupCodesMatchesNormalizedInput(t *testing.T) {
	codes := []string{"ABCDE-FGHJK"}
	hashes := HashBackupCodes(codes)

	if len(hashes) != 1 {
		t.Fatalf("expected 1 hash, got %d", len(hashes))
	}

	// User input with different casing and no separator hashes identically.
	if HashToken(NormalizeBackupCode("abcde-fghjk")) != hashes[0] {
		t.Fatal("lowercased code did not normalize to the stored hash")
	}
	if HashToken(NormalizeBackupCode("ABCDEFGHJK")) != hashes[0] {
		t.Fatal("separator-free code did not normalize to the stored hash")
	}
}
