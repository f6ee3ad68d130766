package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/sonarhub/internal/model"
)

// ActivityBackend is the slice of the backend the dashboard calls.
type ActivityBackend interface {
	UserActivity(ctx context.Context, username string) (*model.UserActivity, error)
	ScanResults(ctx context.Context, username string) ([]model.ScanResult, error)
}

// ActivityService serves the dashboard aggregates.
type ActivityService struct {
	backend ActivityBackend
}

// NewActivityService creates an ActivityService.
func NewActivityService(backend ActivityBackend) *ActivityService {
	return &ActivityService{backend: backend}
}

// Activity returns the user's activity metrics.
func (s *ActivityService) Activity(ctx context.Context, scope Scope) (*model.UserActivity, error) {
	a, err := s.backend.UserActivity(scope.Context(ctx), scope.Username())
	if err != nil {
		return nil, fmt.Errorf("service/activity: %s: %w", scope.Username(), err)
	}
	return a, nil
}

// LatestScan returns the most recent scan summary, or nil when the user has
// none. A scan whose timestamp does not parse as RFC 3339 counts as oldest.
func (s *ActivityService) LatestScan(ctx context.Context, scope Scope) (*model.ScanResult, error) {
	scans, err := s.backend.ScanResults(scope.Context(ctx), scope.Username())
	if err != nil {
		return nil, fmt.Errorf("service/activity: scans of %s: %w", scope.Username(), err)
	}
	var latest *model.ScanResult
	var latestAt time.Time
	for i := range scans {
		at := scanTime(scans[i].Timestamp)
		if latest == nil || at.After(latestAt) {
			latest, latestAt = &scans[i], at
		}
	}
	return latest, nil
}

func scanTime(ts string) time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
