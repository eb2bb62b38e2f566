package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/gcp"
	"github.com/examanalyzer/backend/internal/mail"
	"github.com/examanalyzer/backend/internal/models"
	"github.com/examanalyzer/backend/internal/store"
)

// digestStore is the slice of the persistence adapter the digest needs.
type digestStore interface {
	ListReminderProfiles(ctx context.Context) ([]models.Profile, error)
	ListSessions(ctx context.Context, userID string) ([]models.PracticeSession, error)
}

// sender delivers one reminder email.
type sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// DigestFunction emails users whose streak is about to lapse: last practice
// was exactly yesterday and there is no session yet today.
type DigestFunction struct {
	store  digestStore
	mailer sender
	now    func() time.Time
}

// NewDigest creates a new DigestFunction instance.
func NewDigest(ctx context.Context, cfg *config.AppConfig) (*DigestFunction, error) {
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	mailer, err := mail.NewClient(cfg.Mail)
	if err != nil {
		return nil, err
	}
	return &DigestFunction{
		store:  store.New(firestoreClient, cfg.Collections),
		mailer: mailer,
		now:    time.Now,
	}, nil
}

// Process runs one digest pass over all opted-in profiles. Individual
// send failures are logged and counted as skipped; they never abort the
// pass.
func (f *DigestFunction) Process(ctx context.Context) (*models.DigestResponse, error) {
	profiles, err := f.store.ListReminderProfiles(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("Starting streak digest.", "profileCount", len(profiles))

	var (
		mu       sync.Mutex
		notified int
		skipped  int
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(5)

	for _, profile := range profiles {
		p := profile
		eg.Go(func() error {
			sent, err := f.remind(gctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Reminder failed", "userId", p.UserID, "error", err)
				skipped++
				return nil
			}
			if sent {
				notified++
			} else {
				skipped++
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	slog.Info("Streak digest complete.", "notified", notified, "skipped", skipped)
	return &models.DigestResponse{Notified: notified, Skipped: skipped}, nil
}

func (f *DigestFunction) remind(ctx context.Context, p models.Profile) (bool, error) {
	sessions, err := f.store.ListSessions(ctx, p.UserID)
	if err != nil {
		return false, err
	}
	days := practiceDays(sessions)
	if len(days) == 0 {
		return false, nil
	}

	today := f.now().UTC().Truncate(24 * time.Hour)
	if !days[len(days)-1].Equal(today.Add(-24 * time.Hour)) {
		return false, nil
	}

	current, _ := streaks(days, f.now())
	subject := fmt.Sprintf("Don't break your %d-day streak!", current)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>You're on a <strong>%d-day</strong> practice streak. Answer one question today to keep it alive.</p>",
		p.DisplayName, current)

	if err := f.mailer.Send(ctx, p.Email, subject, html); err != nil {
		return false, err
	}
	return true, nil
}
