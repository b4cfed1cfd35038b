// Package dashboard assembles the landing page summary.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ancora-cas/ancora-cas/internal/guests"
)

// latestCount is how many recent arrivals the dashboard shows.
const latestCount = 5

// Summary is the data shown on the landing page.
type Summary struct {
	TotalGuests     int
	ExpiringPermits []guests.Guest
	LatestGuests    []guests.Guest
}

// Service builds dashboard summaries. Concurrent requests share one
// repository round trip.
type Service struct {
	repo         guests.Repository
	expiryWindow time.Duration
	group        singleflight.Group
}

// NewService constructs a Service. expiryWindow bounds the "permits about
// to expire" list.
func NewService(repo guests.Repository, expiryWindow time.Duration) *Service {
	if expiryWindow <= 0 {
		expiryWindow = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, expiryWindow: expiryWindow}
}

// Summary returns the landing page data.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	resultChan := s.group.DoChan("summary", func() (interface{}, error) {
		return s.build(ctx)
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

func (s *Service) build(ctx context.Context) (Summary, error) {
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	expiring, err := s.repo.ExpiringPermits(ctx, s.expiryWindow)
	if err != nil {
		return Summary{}, err
	}
	latest, err := s.repo.Latest(ctx, latestCount)
	if err != nil {
		return Summary{}, err
	}
	return Summary{TotalGuests: total, ExpiringPermits: expiring, LatestGuests: latest}, nil
}
