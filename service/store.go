package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kleurijkwonen/inspections/model"
	"gorm.io/gorm"
)

// Store is the gorm-backed persistence layer for users, submissions,
// reports and analyses.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// SubmissionFilter narrows ListSubmissions.
type SubmissionFilter struct {
	Query     string // case-insensitive substring of street or city
	Type      string // tenant, employee or empty for all
	UserID    string // only submissions created by this user
	Ascending bool   // oldest first
	Limit     int
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	Total              int64   `json:"total"`
	Tenant             int64   `json:"tenant"`
	Employee           int64   `json:"employee"`
	AverageDefectScore float64 `json:"averageDefectScore"`
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if _, err := s.FindUserByEmail(ctx, user.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (s *Store) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]model.Submission, error) {
	q := s.db.WithContext(ctx).Model(&model.Submission{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(street_name) LIKE ? OR LOWER(city) LIKE ?", like, like)
	}
	if f.Ascending {
		q = q.Order("date asc")
	} else {
		q = q.Order("date desc")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	submissions := []model.Submission{}
	if err := q.Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// Stats aggregates submission counts and the mean of per-submission rating
// means, rounded to one decimal.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var rows []struct {
		Type        string
		Count       int64
		RatingTotal int64
	}
	err := s.db.WithContext(ctx).Model(&model.Submission{}).
		Select("type, COUNT(*) AS count, SUM(structural_defects + decay_magnitude + defect_intensity) AS rating_total").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate submissions: %w", err)
	}

	stats := &Stats{}
	var ratingTotal int64
	for _, r := range rows {
		stats.Total += r.Count
		ratingTotal += r.RatingTotal
		switch r.Type {
		case model.TypeTenant:
			stats.Tenant = r.Count
		case model.TypeEmployee:
			stats.Employee = r.Count
		}
	}
	if stats.Total > 0 {
		mean := float64(ratingTotal) / 3 / float64(stats.Total)
		stats.AverageDefectScore = math.Round(mean*10) / 10
	}
	return stats, nil
}

func (s *Store) CreateReport(ctx context.Context, report *model.Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (s *Store) GetReportByFilename(ctx context.Context, filename string) (*model.Report, error) {
	var report model.Report
	if err := s.db.WithContext(ctx).First(&report, "filename = ?", filename).Error; err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

// ListReports returns report metadata without PDF content, newest first.
func (s *Store) ListReports(ctx context.Context, submissionID string) ([]model.Report, error) {
	q := s.db.WithContext(ctx).Model(&model.Report{}).
		Select("id, filename, size, submission_id, created_at").
		Order("created_at desc")
	if submissionID != "" {
		q = q.Where("submission_id = ?", submissionID)
	}
	reports := []model.Report{}
	if err := q.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (s *Store) CreateAnalysis(ctx context.Context, a *model.AIAnalysis) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to store analysis: %w", err)
	}
	return nil
}

func (s *Store) ListAnalyses(ctx context.Context, submissionID string) ([]model.AIAnalysis, error) {
	analyses := []model.AIAnalysis{}
	err := s.db.WithContext(ctx).Where("submission_id = ?", submissionID).
		Order("created_at desc").Find(&analyses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, nil
}
