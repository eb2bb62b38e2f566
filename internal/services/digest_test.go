package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examanalyzer/backend/internal/models"
)

type fakeDigestStore struct {
	profiles []models.Profile
	sessions map[string][]models.PracticeSession
}

func (s *fakeDigestStore) ListReminderProfiles(context.Context) ([]models.Profile, error) {
	return s.profiles, nil
}

func (s *fakeDigestStore) ListSessions(_ context.Context, userID string) ([]models.PracticeSession, error) {
	return s.sessions[userID], nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	failTo string
}

func (s *fakeSender) Send(_ context.Context, to, _, _ string) error {
	if to == s.failTo {
		return errors.New("delivery refused")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	return nil
}

func TestDigestNotifiesOnlyLapsingStreaks(t *testing.T) {
	now := day("2026-08-30").Add(9 * time.Hour)
	sender := &fakeSender{}
	f := &DigestFunction{
		store: &fakeDigestStore{
			profiles: []models.Profile{
				{UserID: "lapsing", Email: "lapsing@example.com"},
				{UserID: "active", Email: "active@example.com"},
				{UserID: "gone", Email: "gone@example.com"},
				{UserID: "fresh", Email: "fresh@example.com"},
			},
			sessions: map[string][]models.PracticeSession{
				"lapsing": {{Date: day("2026-08-28")}, {Date: day("2026-08-29")}},
				"active":  {{Date: day("2026-08-29")}, {Date: day("2026-08-30")}},
				"gone":    {{Date: day("2026-08-20")}},
			},
		},
		mailer: sender,
		now:    func() time.Time { return now },
	}

	resp, err := f.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Notified)
	assert.Equal(t, 3, resp.Skipped)
	assert.Equal(t, []string{"lapsing@example.com"}, sender.sent)
}

func TestDigestSendFailureIsCountedNotFatal(t *testing.T) {
	now := day("2026-08-30").Add(9 * time.Hour)
	yesterday := []models.PracticeSession{{Date: day("2026-08-29")}}
	sender := &fakeSender{failTo: "a@example.com"}
	f := &DigestFunction{
		store: &fakeDigestStore{
			profiles: []models.Profile{
				{UserID: "a", Email: "a@example.com"},
				{UserID: "b", Email: "b@example.com"},
			},
			sessions: map[string][]models.PracticeSession{
				"a": yesterday,
				"b": yesterday,
			},
		},
		mailer: sender,
		now:    func() time.Time { return now },
	}

	resp, err := f.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Notified)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, []string{"b@example.com"}, sender.sent)
}

func TestNormalizeDifficulty(t *testing.T) {
	assert.Equal(t, "easy", normalizeDifficulty("Simple"))
	assert.Equal(t, "hard", normalizeDifficulty("CHALLENGING"))
	assert.Equal(t, "medium", normalizeDifficulty("moderate"))
	assert.Equal(t, "medium", normalizeDifficulty(""))
}
