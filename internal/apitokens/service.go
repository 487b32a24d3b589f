// Package apitokens authenticates automation clients with opaque hvt_ tokens.
// Only the SHA-256 hex digest of a token is ever stored.
package apitokens

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

const (
	TokenPrefix  = "hvt_"
	secretBytes  = 32
	previewChars = 8
)

type Service interface {
	Authenticate(ctx context.Context, raw, remoteIP string) (*models.APIToken, error)
	Issue(ctx context.Context, name string, expiresAt *time.Time) (string, *models.APIToken, error)
}

type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("api token repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, logg: params.Logger, now: now}, nil
}

// Hash is the stored form of a raw token.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *service) Authenticate(ctx context.Context, raw, remoteIP string) (*models.APIToken, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, TokenPrefix) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api token")
	}

	token, err := s.repo.FindByHash(ctx, Hash(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup api token")
	}
	if token == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api token")
	}

	now := s.now()
	switch {
	case token.Status != enums.APITokenActive || token.RevokedAt != nil:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "api token revoked")
	case token.ExpiresAt != nil && !now.Before(*token.ExpiresAt):
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "api token expired")
	case !allowed(token.IPAllowlist, remoteIP):
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address not allowed for api token")
	}

	if err := s.repo.TouchLastUsed(ctx, token.ID, now); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to refresh api token last_used_at")
	}
	token.LastUsedAt = &now
	return token, nil
}

// Issue creates a token and returns the raw value, which is not recoverable later.
func (s *service) Issue(ctx context.Context, name string, expiresAt *time.Time) (string, *models.APIToken, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "token name required")
	}
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate api token")
	}
	raw := TokenPrefix + hex.EncodeToString(secret)
	token := &models.APIToken{
		Name:         strings.TrimSpace(name),
		TokenHash:    Hash(raw),
		TokenPreview: raw[:len(TokenPrefix)+previewChars],
		Status:       enums.APITokenActive,
		ExpiresAt:    expiresAt,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store api token")
	}
	return raw, token, nil
}

// allowed accepts any address when the list is empty. Entries are single
// addresses or CIDR ranges.
func allowed(list []string, remoteIP string) bool {
	if len(list) == 0 {
		return true
	}
	ip := net.ParseIP(remoteIP)
	if ip == nil {
		return false
	}
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil && network.Contains(ip) {
				return true
			}
			continue
		}
		if candidate := net.ParseIP(entry); candidate != nil && candidate.Equal(ip) {
			return true
		}
	}
	return false
}
