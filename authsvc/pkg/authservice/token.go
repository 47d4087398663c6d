package authservice

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/todoapp/todokit/authsvc"
)

// Tokenizer issues and checks HS256 bearer tokens whose subject is a
// username. Tokens are not stored anywhere; validity is decided from the
// signature and the expiry claim alone.
type Tokenizer interface {
	Generate(username string) (string, error)
	Username(token string) (string, error)
	Validate(token, username string) bool
}

type tokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenizer(secret string, ttl time.Duration) Tokenizer {
	return &tokenizer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *tokenizer) Generate(username string) (string, error) {
	if username == "" {
		return "", authsvc.ErrInvalidArgument
	}

	now := t.now()
	claims := jwt.StandardClaims{
		Subject:   username,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(t.ttl).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Username returns the subject of a well-formed, correctly signed and
// unexpired token. Any other token yields ErrInvalidToken.
func (t *tokenizer) Username(token string) (string, error) {
	claims, err := t.parse(token)
	if err != nil {
		return "", authsvc.ErrInvalidToken
	}
	return claims.Subject, nil
}

func (t *tokenizer) Validate(token, username string) bool {
	subject, err := t.Username(token)
	return err == nil && subject == username
}

func (t *tokenizer) parse(token string) (*jwt.StandardClaims, error) {
	if token == "" {
		return nil, authsvc.ErrInvalidToken
	}

	// Expiry is checked against the injected clock below, not jwt.TimeFunc.
	parser := jwt.Parser{SkipClaimsValidation: true}
	claims := &jwt.StandardClaims{}
	_, err := parser.ParseWithClaims(token, claims, t.keyFunc)
	if err != nil {
		return nil, err
	}

	if !claims.VerifyExpiresAt(t.now().Unix(), true) {
		return nil, authsvc.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, authsvc.ErrInvalidToken
	}
	return claims, nil
}

func (t *tokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return t.secret, nil
}
