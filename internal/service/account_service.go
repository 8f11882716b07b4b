package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/internal/transfer"
	"github.com/maheshrc27/ghst/pkg/utils"
)

type AccountService interface {
	Connect(ctx context.Context, clientID int64, conn *transfer.AccountConnection) (*models.Account, error)
	List(ctx context.Context, clientID int64) ([]*models.Account, error)
	Deactivate(ctx context.Context, clientID, accountID int64) error
}

type accountService struct {
	ac     repository.AccountRepository
	cipher *utils.TokenCipher
}

func NewAccountService(ac repository.AccountRepository, cipher *utils.TokenCipher) AccountService {
	return &accountService{ac: ac, cipher: cipher}
}

// Connect registers a platform identity with tokens obtained by the
// dashboard. Tokens are stored encrypted.
func (s *accountService) Connect(ctx context.Context, clientID int64, conn *transfer.AccountConnection) (*models.Account, error) {
	if conn == nil {
		return nil, invalid("account data is nil")
	}
	if err := transfer.Validate(conn); err != nil {
		return nil, invalidErr(err)
	}
	platform, err := models.ParsePlatform(conn.Platform)
	if err != nil {
		return nil, invalidErr(err)
	}

	access, err := s.cipher.Encrypt(conn.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := s.cipher.Encrypt(conn.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}

	acc := &models.Account{
		ClientID:       clientID,
		Platform:       platform,
		PlatformUserID: conn.PlatformUserID,
		AccountName:    conn.AccountName,
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenExpiresAt: conn.TokenExpiresAt,
		IsActive:       true,
	}
	id, err := s.ac.Create(ctx, acc)
	if err != nil {
		return nil, err
	}
	acc.ID = id
	slog.Info("account connected", "client_id", clientID, "platform", platform, "account_id", id)
	return acc, nil
}

func (s *accountService) List(ctx context.Context, clientID int64) ([]*models.Account, error) {
	return s.ac.ListByClientID(ctx, clientID)
}

func (s *accountService) Deactivate(ctx context.Context, clientID, accountID int64) error {
	ok, err := s.ac.CheckByClientID(ctx, accountID, clientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.ac.Deactivate(ctx, accountID)
}
