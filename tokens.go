package tenantauth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// OTPExpiry is how long a one-time code stays valid.
const OTPExpiry = 10 * time.Minute

const (
	otpMin    = 100000
	otpMax    = 999999
	otpDigits = 6
)

// GenerateOTP returns a uniformly random code in [100000, 999999] rendered
// as six ASCII digits.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// IsOTPFormat reports whether code is exactly six ASCII digits.
func IsOTPFormat(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

var (
	userIDMu   sync.Mutex
	lastUserID int64
)

// NewUserID returns a time-derived id (unix milliseconds) that is strictly
// increasing within the process.
func NewUserID(now time.Time) int64 {
	userIDMu.Lock()
	defer userIDMu.Unlock()
	id := now.UnixMilli()
	if id <= lastUserID {
		id = lastUserID + 1
	}
	lastUserID = id
	return id
}
