package utils // package utils provides helpers for issuing and reading access tokens

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"

    "github.com/iliyamo/movie-catalog/internal/model"
)

// IdentityClaims is the payload of an access token.  Username falls back to
// the standard subject claim when absent.
type IdentityClaims struct {
    Username string   `json:"username,omitempty"`
    Name     string   `json:"name,omitempty"`
    Roles    []string `json:"roles,omitempty"`
    jwt.RegisteredClaims
}

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

var ErrNoUsername = errors.New("token carries no username")

// NewAccessToken signs an HS256 JWT for id that expires after ttl.
func NewAccessToken(secret string, id model.Identity, ttl time.Duration) (AccessToken, error) {
    issued := time.Now().UTC()
    exp := issued.Add(ttl)
    claims := IdentityClaims{
        Username: id.Username,
        Name:     id.Name,
        Roles:    id.Roles,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   id.Username,
            IssuedAt:  jwt.NewNumericDate(issued),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseIdentity verifies raw with secret (HMAC only) and returns the
// identity it carries.
func ParseIdentity(secret, raw string) (*model.Identity, error) {
    var claims IdentityClaims
    _, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
    if err != nil {
        return nil, err
    }
    username := claims.Username
    if username == "" {
        username = claims.Subject
    }
    if username == "" {
        return nil, ErrNoUsername
    }
    roles := claims.Roles
    if roles == nil {
        roles = []string{}
    }
    return &model.Identity{Username: username, Name: claims.Name, Roles: roles}, nil
}
