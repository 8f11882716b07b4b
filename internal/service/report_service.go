package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/internal/storage"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ReportService registers generated report files and campaigns so they can
// be shared.
type ReportService interface {
	CreateReport(ctx context.Context, clientID int64, title string, pdf []byte) (*models.Report, error)
	CreateCampaign(ctx context.Context, clientID int64, name string) (*models.Campaign, error)
}

type reportService struct {
	rp    repository.ReportRepository
	cp    repository.CampaignRepository
	store storage.ObjectStore
}

func NewReportService(repos *repository.Repositories, store storage.ObjectStore) ReportService {
	return &reportService{rp: repos.Reports, cp: repos.Campaigns, store: store}
}

func (s *reportService) CreateReport(ctx context.Context, clientID int64, title string, pdf []byte) (*models.Report, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if !filetype.Is(pdf, "pdf") {
		return nil, invalid("report must be a PDF")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("reports/%d/%s.pdf", clientID, id)
	if _, err := s.store.Put(ctx, key, pdf, "application/pdf"); err != nil {
		return nil, fmt.Errorf("error uploading report: %w", err)
	}

	report := &models.Report{ClientID: clientID, Title: title, FileKey: key}
	reportID, err := s.rp.Create(ctx, report)
	if err != nil {
		return nil, err
	}
	report.ID = reportID
	return report, nil
}

func (s *reportService) CreateCampaign(ctx context.Context, clientID int64, name string) (*models.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}
	campaign := &models.Campaign{ClientID: clientID, Name: name}
	id, err := s.cp.Create(ctx, campaign)
	if err != nil {
		return nil, err
	}
	campaign.ID = id
	return campaign, nil
}
