package service

import (
	"time"

	"jobly/internal/utils"

	"github.com/google/uuid"
)

type JWTSessionIssuer struct {
	Manager *utils.SessionTokenManager
}

func (j JWTSessionIssuer) IssueSessionToken(userID, sessionID uuid.UUID, claims utils.SessionClaims) (string, time.Time, error) {
	if j.Manager == nil {
		return "", time.Time{}, utils.ErrInvalidToken
	}
	return j.Manager.IssueSessionToken(userID.String(), sessionID.String(), claims)
}

func (j JWTSessionIssuer) ParseSessionToken(token string) (*utils.SessionClaims, error) {
	if j.Manager == nil {
		return nil, utils.ErrInvalidToken
	}
	return j.Manager.ParseSessionToken(token)
}

func (j JWTSessionIssuer) ParseSessionTokenAllowExpired(token string) (*utils.SessionClaims, error) {
	if j.Manager == nil {
		return nil, utils.ErrInvalidToken
	}
	return j.Manager.ParseSessionTokenAllowExpired(token)
}
