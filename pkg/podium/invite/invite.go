// Package invite generates and normalizes group invite codes and builds the
// links members share with friends.
package invite

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	// CodeLength is the number of characters in an invite code
	CodeLength = 8
	// Scheme is the app's deep link scheme
	Scheme = "podium"

	charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var codeRegex = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// Generate returns a random invite code
func Generate() (string, error) {
	b := make([]byte, CodeLength)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

// Normalize trims and uppercases a code typed or pasted by a user
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code is a well-formed invite code after normalization
func Valid(code string) bool {
	return codeRegex.MatchString(Normalize(code))
}

// DeepLink returns the app link that opens the join preview for code
func DeepLink(code string) string {
	return fmt.Sprintf("%s://join/%s", Scheme, Normalize(code))
}

// ShareMessage is the text offered to the platform share sheet
func ShareMessage(groupName, code string) string {
	code = Normalize(code)
	return fmt.Sprintf("Join %q on Podium!\n\nInvite code: %s\n%s", groupName, code, DeepLink(code))
}
