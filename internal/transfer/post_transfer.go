package transfer

import "time"

type PostCreation struct {
	Content     string     `json:"content" validate:"required,max=5000"`
	Platforms   []string   `json:"platforms" validate:"required,min=1,dive,oneof=facebook instagram twitter linkedin x"`
	MediaIDs    []int64    `json:"media_ids" validate:"omitempty,max=10,dive,gt=0"`
	CampaignID  *int64     `json:"campaign_id,omitempty" validate:"omitempty,gt=0"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

type PostSchedule struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

type PostCreated struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type MediaUploaded struct {
	ID       int64  `json:"id"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
}
