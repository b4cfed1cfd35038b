package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ancora-cas/ancora-cas/internal/guests"
	jobmetrics "github.com/ancora-cas/ancora-cas/internal/jobs"
)

// NewPermitExpiryScanTask constructs the daily scan task.
func NewPermitExpiryScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypePermitExpiryScan, nil)
}

// PermitScanConfig collects dependencies for the permit expiry scan.
type PermitScanConfig struct {
	Repo    guests.Repository
	Client  *Client
	Window  time.Duration
	Notify  string
	Metrics *jobmetrics.Metrics
	Logger  *slog.Logger
}

// NewPermitExpiryScanHandler builds the handler for the scheduled permit
// scan. It looks up guests whose permit of stay runs out inside the window
// and enqueues one digest email.
func NewPermitExpiryScanHandler(cfg PermitScanConfig) asynq.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := cfg.Window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := cfg.Metrics.Track("permit_expiry_scan")
		expiring, err := cfg.Repo.ExpiringPermits(ctx, window)
		if err != nil {
			return tracker.End(err)
		}
		cfg.Metrics.AddExpiryNotices(len(expiring))
		logger.Info("permit expiry scan complete", slog.Int("expiring", len(expiring)))
		if len(expiring) == 0 || cfg.Notify == "" || cfg.Client == nil {
			return tracker.End(nil)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Permessi di soggiorno in scadenza entro %d giorni:\n\n", int(window.Hours()/24))
		for _, g := range expiring {
			fmt.Fprintf(&sb, "- %s %s, permesso %s, scadenza %s\n",
				g.LastName, g.FirstName, g.PermitNumber, g.PermitExpiry.Format("02/01/2006"))
		}
		_, err = cfg.Client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      cfg.Notify,
			Subject: fmt.Sprintf("Ancora CAS: %d permessi in scadenza", len(expiring)),
			Body:    sb.String(),
		})
		return tracker.End(err)
	}
}
