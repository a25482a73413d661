package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"depositprotocol/internal/protocol"
)

const issuer = "depositd"

type callerKey struct{}

// IssueToken signs an HS256 token whose subject is addr.
func IssueToken(secret []byte, addr protocol.Address, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   addr.String(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	})
	return tok.SignedString(secret)
}

// ParseToken validates tokenString and returns the caller it names.
func ParseToken(secret []byte, tokenString string) (protocol.Address, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return protocol.ZeroAddress, errors.New("token has expired")
		}
		return protocol.ZeroAddress, errors.New("invalid token")
	}
	if !parsed.Valid {
		return protocol.ZeroAddress, errors.New("invalid token")
	}
	addr, err := protocol.ParseAddress(claims.Subject)
	if err != nil {
		return protocol.ZeroAddress, fmt.Errorf("invalid subject: %w", err)
	}
	return addr, nil
}

// authenticate requires a bearer token and stores its subject as the caller.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if header == "" || raw == header {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "missing bearer token"})
			return
		}
		caller, err := ParseToken(s.secret, raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// Caller returns the authenticated caller of r.
func Caller(ctx context.Context) protocol.Address {
	addr, _ := ctx.Value(callerKey{}).(protocol.Address)
	return addr
}
