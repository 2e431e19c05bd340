package jwttoken

import (
	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
	authmw "civicledger/pkg/platform/middleware/auth"
)

// SessionAdapter exposes JWTService as a middleware session validator.
type SessionAdapter struct {
	service *JWTService
}

func NewSessionAdapter(service *JWTService) *SessionAdapter {
	return &SessionAdapter{service: service}
}

func (a *SessionAdapter) ValidateSession(tokenString string) (*authmw.Session, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	caller, err := domain.ParseAddress(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject is not an address")
	}
	session := &authmw.Session{ID: claims.ID, Caller: caller}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
