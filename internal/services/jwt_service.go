package services

import (
	"context"
	"fmt"
	"time"

	"biblio/internal/apperrors"
	"biblio/internal/models"
	"biblio/internal/repositories"

	"github.com/dgrijalva/jwt-go"
)

// TokenType is the scheme reported alongside issued token pairs.
const TokenType = "Bearer"

// GrantTypeRefreshToken is the only grant accepted by the refresh flow.
const GrantTypeRefreshToken = "refresh_token"

// Scope claim values distinguishing the two tokens of a pair.
const (
	scopeAccess  = "access"
	scopeRefresh = "refresh"
)

// JWTService issues and resolves signed bearer tokens.
type JWTService struct {
	uowFactory    repositories.UnitOfWorkFactory
	passwords     *PasswordService
	secret        []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// NewJWTService creates a new JWTService. Access tokens live for
// accessExpire, refresh tokens for refreshExpire.
func NewJWTService(uowFactory repositories.UnitOfWorkFactory, passwords *PasswordService, secret string, accessExpire, refreshExpire time.Duration) *JWTService {
	return &JWTService{
		uowFactory:    uowFactory,
		passwords:     passwords,
		secret:        []byte(secret),
		accessExpire:  accessExpire,
		refreshExpire: refreshExpire,
	}
}

// Authenticate verifies a username/password pair and returns the user. Absent
// user and wrong password collapse to the same message so usernames cannot be
// enumerated.
func (s *JWTService) Authenticate(ctx context.Context, username, password string) (*models.UserDTO, error) {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	user, err := uow.Users().GetByUsername(username, true)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Unauthorized("incorrect username or password")
	}
	if !s.passwords.Verify(password, user.Password) {
		return nil, apperrors.Unauthorized("incorrect username or password")
	}
	return user, nil
}

// CreateTokens issues an access/refresh pair from the same subject claim with
// independent expirations. Both carry an exp claim; there is no revocation
// list, compromise is mitigated by the short access-token lifetime.
func (s *JWTService) CreateTokens(username string) (tokenType, accessToken, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = s.sign(username, scopeAccess, now.Add(s.accessExpire))
	if err != nil {
		return "", "", "", err
	}
	refreshToken, err = s.sign(username, scopeRefresh, now.Add(s.refreshExpire))
	if err != nil {
		return "", "", "", err
	}
	return TokenType, accessToken, refreshToken, nil
}

func (s *JWTService) sign(username, scope string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"scope":    scope,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ResolveUser verifies an access token and loads its subject. Invalid
// signature, expiry, missing subject claim, absent subject, and a banned
// subject all collapse to the same Unauthorized result.
func (s *JWTService) ResolveUser(ctx context.Context, tokenString string) (*models.UserDTO, error) {
	return s.resolve(ctx, tokenString, scopeAccess)
}

// ResolveRefresh runs token resolution gated by an explicit grant_type check,
// accepting only refresh-scoped tokens.
func (s *JWTService) ResolveRefresh(ctx context.Context, grantType, refreshToken string) (*models.UserDTO, error) {
	if grantType != GrantTypeRefreshToken {
		return nil, apperrors.Unauthorized("expected 'grant_type' parameter with 'refresh_token' value")
	}
	return s.resolve(ctx, refreshToken, scopeRefresh)
}

func (s *JWTService) resolve(ctx context.Context, tokenString, wantScope string) (*models.UserDTO, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if scope, _ := claims["scope"].(string); scope != wantScope {
		return nil, apperrors.ErrUnauthorized
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	user, err := uow.Users().GetByUsername(username, false)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	if user == nil || user.Banned {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}
