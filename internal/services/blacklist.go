package services

import (
	"context"
	"time"
)

// BlacklistRepository defines persistence operations for revoked refresh tokens.
type BlacklistRepository interface {
	Add(ctx context.Context, jti string, userID int, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// BlacklistService encapsulates refresh-token revocation.
type BlacklistService struct {
	repo BlacklistRepository
}

func NewBlacklistService(repo BlacklistRepository) *BlacklistService {
	return &BlacklistService{repo: repo}
}

func (s *BlacklistService) Add(ctx context.Context, jti string, userID int, expiresAt time.Time) error {
	return s.repo.Add(ctx, jti, userID, expiresAt)
}

func (s *BlacklistService) Contains(ctx context.Context, jti string) (bool, error) {
	return s.repo.Contains(ctx, jti)
}
