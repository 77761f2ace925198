package security

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const backupCodeLength = 10

// GenerateBackupCodes returns count single-use recovery codes in the form
// XXXXX-XXXXX. The unambiguous alphabet avoids 0/O and 1/I confusion.
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		buf := make([]byte, backupCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}

		var b strings.Builder
		for j, c := range buf {
			if j == backupCodeLength/2 {
				b.WriteByte('-')
			}
			b.WriteByte(backupCodeAlphabet[int(c)%len(backupCodeAlphabet)])
		}
		codes = append(codes, b.String())
	}

	return codes, nil
}

// HashBackupCodes returns the stored representation of a code set.
// Codes are normalized before hashing so user input is forgiving.
func HashBackupCodes(codes []string) []string {
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, HashToken(NormalizeBackupCode(code)))
	}
	return hashes
}

// NormalizeBackupCode strips separators and upcases a user-supplied code.
func NormalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "")
}
