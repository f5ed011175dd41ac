package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoExpiry = errors.New("token carries no expiration claim")

// DecodeExpiry pulls the exp claim out of a JWT without verifying the
// signature. The client never holds the signing secret, so this is a
// best-effort read, not a validity check.
func DecodeExpiry(tokenStr string) (time.Time, error) {
	parser := jwt.NewParser()

	token, _, err := parser.ParseUnverified(tokenStr, jwt.MapClaims{})

	if err != nil {
		return time.Time{}, err
	}

	exp, err := token.Claims.GetExpirationTime()

	if err != nil || exp == nil {
		return time.Time{}, ErrNoExpiry
	}

	return exp.Time, nil
}
