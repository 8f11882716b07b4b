package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/pkg/utils"
)

const maxApiKeys = 5

var ErrUnknownKey = errors.New("api key doesn't exist")

type ApiKeyService interface {
	Create(ctx context.Context, clientID int64) (*models.ApiKey, error)
	List(ctx context.Context, clientID int64) ([]*models.ApiKey, error)
	GetClientID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, clientID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, clientID int64) (*models.ApiKey, error) {
	keys, err := s.k.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if len(keys) >= maxApiKeys {
		slog.Info("api key limit reached", "client_id", clientID)
		return nil, invalid(fmt.Sprintf("only %d API keys can be created", maxApiKeys))
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error generating API key")
	}

	apiKey := &models.ApiKey{
		ClientID: clientID,
		ApiKey:   key,
	}
	id, err := s.k.Create(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("error saving API key")
	}
	apiKey.ID = id
	return apiKey, nil
}

func (s *apiKeyService) GetClientID(ctx context.Context, apiKey string) (int64, error) {
	clientID, ok, err := s.k.GetClientIDByKey(ctx, apiKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnknownKey
	}
	return clientID, nil
}

func (s *apiKeyService) List(ctx context.Context, clientID int64) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("error getting API keys")
	}
	return apiKeys, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, clientID, keyID int64) error {
	if keyID == 0 {
		return invalid("key id is not valid")
	}

	ok, err := s.k.CheckByClientID(ctx, keyID, clientID)
	if err != nil {
		return err
	}
	if !ok {
		slog.Info(ErrUnknownKey.Error(), "key_id", keyID)
		return ErrNotFound
	}
	return s.k.Remove(ctx, keyID)
}
