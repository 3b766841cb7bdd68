package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"  // errors reports malformed claims
    "strconv" // strconv formats the subject claim
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are returned by login and sent back in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// Claims are the verified contents of an access token.
type Claims struct {
    UserID uint64
    Role   string
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The token
// carries the user id as subject (sub), the role, expiration (exp) and
// issued at (iat).
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  strconv.FormatUint(userID, 10),
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry and extracts the claims.
// Tokens signed with anything other than HMAC are rejected.
func ParseAccessToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil {
        return Claims{}, err
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, errors.New("invalid claims")
    }
    sub, err := mc.GetSubject()
    if err != nil {
        return Claims{}, err
    }
    uid, err := strconv.ParseUint(sub, 10, 64)
    if err != nil {
        return Claims{}, errors.New("invalid subject")
    }
    role, _ := mc["role"].(string)
    return Claims{UserID: uid, Role: role}, nil
}
