package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
)

// OTP code range, inclusive.
const (
	OTPMin = 100000
	OTPMax = 999999
)

var otpCodeRegex = regexp.MustCompile(`^[0-9]{6}$`)

// GenerateOTPCode returns a uniformly distributed 6-digit code from a
// cryptographically secure source.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(OTPMax-OTPMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+OTPMin, 10), nil
}

// ValidOTPFormat reports whether code looks like a generated code.
func ValidOTPFormat(code string) bool {
	return otpCodeRegex.MatchString(code)
}
