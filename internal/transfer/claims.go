package transfer

import "github.com/golang-jwt/jwt/v5"

// CustomClaims is the dashboard session token. Every authenticated request is
// scoped to ClientID.
type CustomClaims struct {
	UserID   int64 `json:"user_id"`
	ClientID int64 `json:"client_id"`
	jwt.RegisteredClaims
}
