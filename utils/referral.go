package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// MemberCodePrefix is the prefix carried by every member referral code.
const MemberCodePrefix = "MBR"

// GenerateReferralCode generates a referral code for a new member.
// Format: MBR-{RANDOM} where RANDOM is 6 alphanumeric characters.
// Example: MBR-ABC123. Uniqueness is enforced by the referralCode index;
// callers retry on a duplicate-key insert.
func GenerateReferralCode() (string, error) {
	// 4 random bytes give us 6 characters in base32
	randomBytes := make([]byte, 4)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = randomStr[:6]

	randomStr = strings.ToUpper(randomStr)
	randomStr = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, randomStr)

	if len(randomStr) < 6 {
		randomStr = randomStr + strings.Repeat("0", 6-len(randomStr))
	}

	return MemberCodePrefix + "-" + randomStr, nil
}
