package security

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is fixed so stored hashes stay comparable across deploys.
const BcryptCost = 10

const (
	minPasswordLength = 8
	specialCharacters = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

// dummyHash is compared against when a username does not exist so a failed
// login costs the same whether or not the account is there.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password!A"), BcryptCost)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck performs a throwaway comparison for unknown users.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// IsStrongPassword requires at least 8 characters on a single line with a
// lowercase letter, an uppercase letter and one of specialCharacters.
func IsStrongPassword(password string) bool {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return false
	}
	if strings.ContainsAny(password, "\n\r\u2028\u2029") {
		return false
	}

	var lower, upper, special bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case strings.ContainsRune(specialCharacters, c):
			special = true
		}
	}
	return lower && upper && special
}
