package devserver

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/me/hackloud/pkg/model"
	"golang.org/x/crypto/bcrypt"
)

var (
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("invalid token")
)

// issueToken signs a token carrying the user's id and role.
func (s *Server) issueToken(u model.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"id":   u.ID,
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.config.TokenTTL).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// authenticate verifies raw and returns a copy of the account it names.
func (s *Server) authenticate(raw string) (*account, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, errTokenExpired
	}
	if err != nil || !tok.Valid {
		return nil, errTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errTokenInvalid
	}
	id, _ := claims["id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok || !acc.user.Active {
		return nil, errTokenInvalid
	}
	cp := *acc
	return &cp, nil
}

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
