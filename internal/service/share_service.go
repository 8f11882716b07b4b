package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"regexp"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/ghst/internal/metrics"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/internal/storage"
	"github.com/maheshrc27/ghst/internal/transfer"
	"github.com/maheshrc27/ghst/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

var shareTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{32}$`)

var (
	// ErrPasswordRequired means the share is valid but the visitor has not
	// unlocked it in this session yet.
	ErrPasswordRequired = errors.New("share password required")
	ErrWrongPassword    = errors.New("incorrect password")
)

// Denial is a refused share access. Status is the HTTP status to answer with.
type Denial struct {
	Status int
	Reason string
}

func (d *Denial) Error() string {
	return "share access denied: " + d.Reason
}

const (
	ReasonInvalidToken  = "invalid_token"
	ReasonNotFound      = "not_found"
	ReasonExpired       = "expired"
	ReasonIPNotAllowed  = "ip_not_allowed"
	ReasonPermission    = "permission_denied"
	ReasonViewLimit     = "view_limit_reached"
	ReasonDownloadLimit = "download_limit_reached"
)

var denialStatus = map[string]int{
	ReasonInvalidToken:  http.StatusNotFound,
	ReasonNotFound:      http.StatusNotFound,
	ReasonExpired:       http.StatusGone,
	ReasonIPNotAllowed:  http.StatusForbidden,
	ReasonPermission:    http.StatusForbidden,
	ReasonViewLimit:     http.StatusForbidden,
	ReasonDownloadLimit: http.StatusForbidden,
}

// AccessRequest describes one visitor hit on a share link. Unlocked reports
// whether the visitor's session already holds the password flag for a share.
type AccessRequest struct {
	Token     string
	IP        string
	UserAgent string
	Action    models.ShareAction
	Unlocked  func(shareID int64) bool
}

type SharedReport struct {
	Link        *models.ShareLink
	Report      *models.Report
	PDF         []byte
	CanDownload bool
}

type SharedCampaign struct {
	Link          *models.ShareLink
	Campaign      *models.Campaign
	Posts         []*models.Post
	ShowAnalytics bool
	Analytics     map[int64][]*models.PostAnalytics
}

type ShareService interface {
	OpenReport(ctx context.Context, req AccessRequest) (*SharedReport, error)
	OpenCampaign(ctx context.Context, req AccessRequest) (*SharedCampaign, error)
	Unlock(ctx context.Context, kind models.ShareKind, token, ip, password string) (*models.ShareLink, error)
	Create(ctx context.Context, clientID, userID int64, sc *transfer.ShareCreation) (*transfer.ShareCreated, error)
	Revoke(ctx context.Context, clientID, shareID int64) error
	List(ctx context.Context, clientID int64) ([]*models.ShareLink, error)
	AccessLogs(ctx context.Context, clientID, shareID int64) ([]*models.ShareAccessLog, error)
}

type shareService struct {
	sl      repository.ShareLinkRepository
	rp      repository.ReportRepository
	cp      repository.CampaignRepository
	pr      repository.PostRepository
	pa      repository.PostAnalyticsRepository
	store   storage.ObjectStore
	baseURL string
	now     func() time.Time
}

func NewShareService(repos *repository.Repositories, store storage.ObjectStore, baseURL string) ShareService {
	return &shareService{
		sl:      repos.Shares,
		rp:      repos.Reports,
		cp:      repos.Campaigns,
		pr:      repos.Posts,
		pa:      repos.PostAnalytics,
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (s *shareService) deny(ctx context.Context, kind models.ShareKind, link *models.ShareLink, ip, reason string) error {
	var shareID int64
	if link != nil {
		shareID = link.ID
	}
	slog.InfoContext(ctx, "share access denied", "kind", kind, "share_id", shareID, "reason", reason, "ip", ip)
	metrics.ShareAccess.WithLabelValues(string(kind), reason).Inc()
	return &Denial{Status: denialStatus[reason], Reason: reason}
}

// resolve runs the checks that do not depend on the visitor's session:
// token format, lookup, expiry and IP allowlist.
func (s *shareService) resolve(ctx context.Context, kind models.ShareKind, token, ip string) (*models.ShareLink, error) {
	if !shareTokenPattern.MatchString(token) {
		return nil, s.deny(ctx, kind, nil, ip, ReasonInvalidToken)
	}
	link, err := s.sl.GetByToken(ctx, token, kind)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, s.deny(ctx, kind, nil, ip, ReasonNotFound)
	}
	if link.Expired(s.now()) {
		return nil, s.deny(ctx, kind, link, ip, ReasonExpired)
	}
	if !ipAllowed(link.AllowedIPs, ip) {
		return nil, s.deny(ctx, kind, link, ip, ReasonIPNotAllowed)
	}
	return link, nil
}

func (s *shareService) gate(ctx context.Context, kind models.ShareKind, req AccessRequest) (*models.ShareLink, error) {
	link, err := s.resolve(ctx, kind, req.Token, req.IP)
	if err != nil {
		return nil, err
	}
	if link.HasPassword() && (req.Unlocked == nil || !req.Unlocked(link.ID)) {
		return link, ErrPasswordRequired
	}

	need := models.PermissionView
	if req.Action == models.ShareActionDownload {
		need = models.PermissionDownload
	}
	if !link.Permissions.Has(need) {
		return nil, s.deny(ctx, kind, link, req.IP, ReasonPermission)
	}
	return link, nil
}

// consume takes one unit of the view or download budget and logs the access.
// The increment is conditional, so concurrent visitors cannot overshoot.
func (s *shareService) consume(ctx context.Context, link *models.ShareLink, req AccessRequest) error {
	var (
		ok     bool
		err    error
		reason string
	)
	if req.Action == models.ShareActionDownload {
		ok, err = s.sl.IncrementDownloads(ctx, link.ID)
		reason = ReasonDownloadLimit
	} else {
		ok, err = s.sl.IncrementViews(ctx, link.ID)
		reason = ReasonViewLimit
	}
	if err != nil {
		return err
	}
	if !ok {
		return s.deny(ctx, link.Kind, link, req.IP, reason)
	}

	entry := &models.ShareAccessLog{
		ShareID:   link.ID,
		Action:    req.Action,
		IP:        req.IP,
		UserAgent: req.UserAgent,
	}
	if err := s.sl.CreateAccessLog(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "share access log failed", "share_id", link.ID, "error", err.Error())
	}
	metrics.ShareAccess.WithLabelValues(string(link.Kind), "granted").Inc()
	return nil
}

func (s *shareService) OpenReport(ctx context.Context, req AccessRequest) (*SharedReport, error) {
	if req.Action == "" {
		req.Action = models.ShareActionView
	}
	link, err := s.gate(ctx, models.ShareKindReport, req)
	if err != nil {
		return nil, err
	}

	report, err := s.rp.GetByID(ctx, link.ResourceID)
	if err != nil {
		return nil, err
	}
	if report == nil || report.ClientID != link.ClientID {
		return nil, s.deny(ctx, models.ShareKindReport, link, req.IP, ReasonNotFound)
	}

	out := &SharedReport{
		Link:        link,
		Report:      report,
		CanDownload: link.Permissions.Has(models.PermissionDownload),
	}
	if req.Action == models.ShareActionDownload {
		pdf, err := s.store.Get(ctx, report.FileKey)
		if err != nil {
			return nil, fmt.Errorf("fetch report file: %w", err)
		}
		if !filetype.Is(pdf, "pdf") {
			return nil, fmt.Errorf("report %d file is not a PDF", report.ID)
		}
		out.PDF = pdf
	}

	if err := s.consume(ctx, link, req); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *shareService) OpenCampaign(ctx context.Context, req AccessRequest) (*SharedCampaign, error) {
	req.Action = models.ShareActionView
	link, err := s.gate(ctx, models.ShareKindCampaign, req)
	if err != nil {
		return nil, err
	}

	campaign, err := s.cp.GetByID(ctx, link.ResourceID)
	if err != nil {
		return nil, err
	}
	if campaign == nil || campaign.ClientID != link.ClientID {
		return nil, s.deny(ctx, models.ShareKindCampaign, link, req.IP, ReasonNotFound)
	}
	posts, err := s.pr.ListByCampaignID(ctx, link.ClientID, campaign.ID)
	if err != nil {
		return nil, err
	}

	out := &SharedCampaign{
		Link:          link,
		Campaign:      campaign,
		Posts:         posts,
		ShowAnalytics: link.Permissions.Has(models.PermissionAnalytics),
	}
	if out.ShowAnalytics {
		out.Analytics = make(map[int64][]*models.PostAnalytics, len(posts))
		for _, p := range posts {
			rows, err := s.pa.GetByPostID(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			out.Analytics[p.ID] = rows
		}
	}

	if err := s.consume(ctx, link, req); err != nil {
		return nil, err
	}
	return out, nil
}

// Unlock checks a share password. The caller remembers success in the
// visitor's session.
func (s *shareService) Unlock(ctx context.Context, kind models.ShareKind, token, ip, password string) (*models.ShareLink, error) {
	link, err := s.resolve(ctx, kind, token, ip)
	if err != nil {
		return nil, err
	}
	if !link.HasPassword() {
		return link, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password)); err != nil {
		slog.InfoContext(ctx, "share password rejected", "kind", kind, "share_id", link.ID, "ip", ip)
		metrics.ShareAccess.WithLabelValues(string(kind), "wrong_password").Inc()
		return link, ErrWrongPassword
	}
	return link, nil
}

func (s *shareService) Create(ctx context.Context, clientID, userID int64, sc *transfer.ShareCreation) (*transfer.ShareCreated, error) {
	if sc == nil {
		return nil, invalid("share data is nil")
	}
	if err := transfer.Validate(sc); err != nil {
		return nil, invalidErr(err)
	}
	if sc.ExpiresAt != nil && !sc.ExpiresAt.After(s.now()) {
		return nil, invalid("expires_at must be in the future")
	}

	kind := models.ShareKind(sc.Kind)
	if err := s.checkResource(ctx, clientID, kind, sc.ResourceID); err != nil {
		return nil, err
	}

	token, err := utils.GenerateShareToken()
	if err != nil {
		return nil, err
	}

	link := &models.ShareLink{
		ClientID:     clientID,
		Kind:         kind,
		ResourceID:   sc.ResourceID,
		Token:        token,
		ExpiresAt:    sc.ExpiresAt,
		AllowedIPs:   models.StringList(sc.AllowedIPs),
		MaxViews:     sc.MaxViews,
		MaxDownloads: sc.MaxDownloads,
		Permissions:  models.PermissionSet{models.PermissionView},
		IsActive:     true,
		CreatedBy:    userID,
	}
	if len(sc.Permissions) > 0 {
		link.Permissions = make(models.PermissionSet, 0, len(sc.Permissions))
		for _, p := range sc.Permissions {
			link.Permissions = append(link.Permissions, models.Permission(p))
		}
	}
	if sc.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(sc.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		link.PasswordHash = string(hash)
	}

	id, err := s.sl.Create(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("error creating share link: %w", err)
	}
	return &transfer.ShareCreated{
		ID:    id,
		Token: token,
		URL:   fmt.Sprintf("%s/shared/%s?token=%s", s.baseURL, kind, token),
	}, nil
}

func (s *shareService) checkResource(ctx context.Context, clientID int64, kind models.ShareKind, id int64) error {
	var owner int64
	switch kind {
	case models.ShareKindReport:
		r, err := s.rp.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r != nil {
			owner = r.ClientID
		}
	case models.ShareKindCampaign:
		c, err := s.cp.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c != nil {
			owner = c.ClientID
		}
	}
	if owner != clientID {
		return invalid(fmt.Sprintf("%s %d does not exist", kind, id))
	}
	return nil
}

func (s *shareService) owned(ctx context.Context, clientID, shareID int64) error {
	ok, err := s.sl.CheckByClientID(ctx, shareID, clientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *shareService) Revoke(ctx context.Context, clientID, shareID int64) error {
	if err := s.owned(ctx, clientID, shareID); err != nil {
		return err
	}
	return s.sl.Revoke(ctx, shareID)
}

func (s *shareService) List(ctx context.Context, clientID int64) ([]*models.ShareLink, error) {
	return s.sl.GetByClientID(ctx, clientID)
}

func (s *shareService) AccessLogs(ctx context.Context, clientID, shareID int64) ([]*models.ShareAccessLog, error) {
	if err := s.owned(ctx, clientID, shareID); err != nil {
		return nil, err
	}
	return s.sl.GetAccessLogs(ctx, shareID)
}

// ipAllowed matches the visitor address against single addresses and CIDR
// ranges. An empty allowlist admits everyone.
func ipAllowed(allowed []string, ip string) bool {
	if len(allowed) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap().WithZone("")

	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err == nil && prefix.Contains(addr) {
				return true
			}
			continue
		}
		if a, err := netip.ParseAddr(entry); err == nil && a.Unmap() == addr {
			return true
		}
	}
	return false
}
