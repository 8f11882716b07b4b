package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/ghst/internal/models"
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Report, error)
}

type reportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) (int64, error) {
	query := `INSERT INTO reports (client_id, title, file_key) VALUES ($1, $2, $3) RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, report.ClientID, report.Title, report.FileKey).Scan(&id); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *reportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	query := `SELECT id, client_id, title, file_key, created_at FROM reports WHERE id = $1`

	var report models.Report
	err := r.db.QueryRowContext(ctx, query, id).Scan(&report.ID, &report.ClientID, &report.Title, &report.FileKey, &report.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &report, nil
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
}

type campaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) (int64, error) {
	query := `INSERT INTO campaigns (client_id, name) VALUES ($1, $2) RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, campaign.ClientID, campaign.Name).Scan(&id); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	query := `SELECT id, client_id, name, created_at FROM campaigns WHERE id = $1`

	var campaign models.Campaign
	err := r.db.QueryRowContext(ctx, query, id).Scan(&campaign.ID, &campaign.ClientID, &campaign.Name, &campaign.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &campaign, nil
}
