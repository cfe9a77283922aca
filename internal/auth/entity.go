package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the payload of an access token. UserID mirrors the subject as a
// number so decoding does not depend on parsing Subject.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"userId"`
}
