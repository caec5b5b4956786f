// internal/auth/password.go
package auth

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsPasswordComplex requires at least 8 characters mixing letters, digits and symbols.
func IsPasswordComplex(password string) bool {
	if len(password) < 8 {
		return false
	}
	var (
		hasLetter bool
		hasDigit  bool
		hasSymbol bool
	)
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSymbol = true
		}
	}
	return hasLetter && hasDigit && hasSymbol
}

var nonNameChars = regexp.MustCompile(`[^\p{L}\s'.-]`)

// SanitizeName trims the display name, strips characters that do not belong
// in a person's name and upper-cases the first letter.
func SanitizeName(name string) string {
	cleaned := strings.Join(strings.Fields(nonNameChars.ReplaceAllString(name, "")), " ")
	if cleaned == "" {
		return ""
	}
	r := []rune(cleaned)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// E.164, e.g. +4520123456
var phoneRegex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}
