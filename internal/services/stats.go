package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/gcp"
	"github.com/examanalyzer/backend/internal/models"
	"github.com/examanalyzer/backend/internal/store"
)

// statsStore is the slice of the persistence adapter the stats logic needs.
type statsStore interface {
	ListSessions(ctx context.Context, userID string) ([]models.PracticeSession, error)
	CountCompletedPapers(ctx context.Context) (int, error)
}

// StatsFunction aggregates practice history into streaks and achievements.
type StatsFunction struct {
	store statsStore
	now   func() time.Time
}

// NewStats creates a new StatsFunction instance.
func NewStats(ctx context.Context, cfg *config.AppConfig) (*StatsFunction, error) {
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &StatsFunction{
		store: store.New(firestoreClient, cfg.Collections),
		now:   time.Now,
	}, nil
}

// Process computes the dashboard stats for one user. The two independent
// reads are fanned out; everything else is plain aggregation.
func (f *StatsFunction) Process(ctx context.Context, req *models.StatsRequest) (*models.StatsResponse, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("userId is required")
	}

	var (
		sessions        []models.PracticeSession
		completedPapers int
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		sessions, err = f.store.ListSessions(gctx, req.UserID)
		return err
	})
	eg.Go(func() error {
		var err error
		completedPapers, err = f.store.CountCompletedPapers(gctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		slog.Error("Stats aggregation failed", "userId", req.UserID, "error", err)
		return nil, err
	}

	days := practiceDays(sessions)
	current, longest := streaks(days, f.now())

	questionsAnswered := 0
	for _, s := range sessions {
		questionsAnswered += s.QuestionsAnswered
	}

	return &models.StatsResponse{
		CurrentStreak:     current,
		LongestStreak:     longest,
		TotalSessions:     len(sessions),
		QuestionsAnswered: questionsAnswered,
		CompletedPapers:   completedPapers,
		Achievements:      achievements(len(sessions), longest, questionsAnswered, completedPapers),
	}, nil
}

// practiceDays normalizes sessions to distinct UTC days, sorted ascending.
func practiceDays(sessions []models.PracticeSession) []time.Time {
	seen := map[time.Time]bool{}
	var days []time.Time
	for _, s := range sessions {
		day := s.Date.UTC().Truncate(24 * time.Hour)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// streaks returns the current streak (counting back from today, or from
// yesterday if today has no session yet) and the longest streak on record.
func streaks(days []time.Time, now time.Time) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	today := now.UTC().Truncate(24 * time.Hour)
	last := days[len(days)-1]
	if last.Equal(today) || last.Equal(today.Add(-24*time.Hour)) {
		current = run
	}
	return current, longest
}

func achievements(totalSessions, longestStreak, questionsAnswered, completedPapers int) []models.Achievement {
	var earned []models.Achievement
	add := func(id, title string) {
		earned = append(earned, models.Achievement{ID: id, Title: title})
	}

	if totalSessions >= 1 {
		add("first-session", "Getting Started")
	}
	if longestStreak >= 7 {
		add("streak-7", "One Week Streak")
	}
	if longestStreak >= 30 {
		add("streak-30", "Monthly Master")
	}
	if questionsAnswered >= 100 {
		add("questions-100", "Century")
	}
	if questionsAnswered >= 500 {
		add("questions-500", "Question Machine")
	}
	if completedPapers >= 1 {
		add("first-paper", "Paper Analyzed")
	}
	return earned
}
