package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/ghst/internal/models"
)

type WebhookLogRepository interface {
	Create(ctx context.Context, wl *models.WebhookLog) (int64, error)
}

type webhookLogRepository struct {
	db *sql.DB
}

func NewWebhookLogRepository(db *sql.DB) WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

func (r *webhookLogRepository) Create(ctx context.Context, wl *models.WebhookLog) (int64, error) {
	query := `
		INSERT INTO webhook_logs (platform, event_type, payload, request_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, wl.Platform, wl.EventType, string(wl.Payload), wl.RequestID).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}
