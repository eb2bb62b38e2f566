// Package store is the persistence adapter over the managed Firestore
// backend. All pipeline writes and all dashboard reads go through here.
package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/models"
)

// Firestore implements the persistence operations against the configured
// collections.
type Firestore struct {
	client      *firestore.Client
	collections config.CollectionsConfig
}

// New wraps an existing Firestore client.
func New(client *firestore.Client, collections config.CollectionsConfig) *Firestore {
	return &Firestore{client: client, collections: collections}
}

// CreatePaper inserts a Paper and returns its generated id.
func (s *Firestore) CreatePaper(ctx context.Context, p models.Paper) (string, error) {
	p.CreatedAt = time.Now()
	docRef, _, err := s.client.Collection(s.collections.Papers).Add(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to create paper record: %w", err)
	}
	return docRef.ID, nil
}

// CreateQuestion inserts one Question record.
func (s *Firestore) CreateQuestion(ctx context.Context, q models.Question) error {
	q.CreatedAt = time.Now()
	if _, _, err := s.client.Collection(s.collections.Questions).Add(ctx, q); err != nil {
		return fmt.Errorf("failed to create question record: %w", err)
	}
	return nil
}

// UpdatePaperStatus moves a Paper to a new lifecycle status.
func (s *Firestore) UpdatePaperStatus(ctx context.Context, paperID, status string) error {
	_, err := s.client.Collection(s.collections.Papers).Doc(paperID).Update(ctx, []firestore.Update{
		{Path: "status", Value: status},
	})
	if err != nil {
		return fmt.Errorf("failed to update paper %s status: %w", paperID, err)
	}
	return nil
}

// GetSyllabus fetches the read-only syllabus used for classification.
func (s *Firestore) GetSyllabus(ctx context.Context, id string) (*models.Syllabus, error) {
	snap, err := s.client.Collection(s.collections.Syllabi).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch syllabus %s: %w", id, err)
	}
	var syl models.Syllabus
	if err := snap.DataTo(&syl); err != nil {
		return nil, fmt.Errorf("failed to decode syllabus %s: %w", id, err)
	}
	syl.ID = snap.Ref.ID
	return &syl, nil
}

// CreateQueuedFile registers a new queue record under its own id.
func (s *Firestore) CreateQueuedFile(ctx context.Context, f models.QueuedFile) error {
	if _, err := s.client.Collection(s.collections.Queue).Doc(f.ID).Create(ctx, f); err != nil {
		return fmt.Errorf("failed to create queue record: %w", err)
	}
	return nil
}

// SaveQueuedFile overwrites a queue record; the processor's observer calls
// this on every pipeline mutation.
func (s *Firestore) SaveQueuedFile(ctx context.Context, f models.QueuedFile) error {
	if _, err := s.client.Collection(s.collections.Queue).Doc(f.ID).Set(ctx, f); err != nil {
		return fmt.Errorf("failed to save queue record %s: %w", f.ID, err)
	}
	return nil
}

// GetQueuedFiles loads the queue records for the given ids, preserving the
// request order (the queue's FIFO order).
func (s *Firestore) GetQueuedFiles(ctx context.Context, ids []string) ([]models.QueuedFile, error) {
	files := make([]models.QueuedFile, 0, len(ids))
	for _, id := range ids {
		snap, err := s.client.Collection(s.collections.Queue).Doc(id).Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch queue record %s: %w", id, err)
		}
		var f models.QueuedFile
		if err := snap.DataTo(&f); err != nil {
			return nil, fmt.Errorf("failed to decode queue record %s: %w", id, err)
		}
		f.ID = snap.Ref.ID
		files = append(files, f)
	}
	return files, nil
}

// FindQueuedFileByHash checks for an earlier upload of the same document.
func (s *Firestore) FindQueuedFileByHash(ctx context.Context, fileHash string) (*models.QueuedFile, error) {
	docs, err := s.client.Collection(s.collections.Queue).
		Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var f models.QueuedFile
	if err := docs[0].DataTo(&f); err != nil {
		return nil, fmt.Errorf("failed to decode queue record: %w", err)
	}
	f.ID = docs[0].Ref.ID
	return &f, nil
}

// ListSessions returns every practice session for a user, oldest first.
func (s *Firestore) ListSessions(ctx context.Context, userID string) ([]models.PracticeSession, error) {
	it := s.client.Collection(s.collections.Sessions).
		Where("userId", "==", userID).OrderBy("date", firestore.Asc).Documents(ctx)

	var sessions []models.PracticeSession
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list practice sessions: %w", err)
		}
		var sess models.PracticeSession
		if err := snap.DataTo(&sess); err != nil {
			return nil, fmt.Errorf("failed to decode practice session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// CountCompletedPapers counts papers that finished the full pipeline.
func (s *Firestore) CountCompletedPapers(ctx context.Context) (int, error) {
	docs, err := s.client.Collection(s.collections.Papers).
		Where("status", "==", models.PaperCompleted).Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to count completed papers: %w", err)
	}
	return len(docs), nil
}

// ListReminderProfiles returns every profile opted in to streak reminders.
func (s *Firestore) ListReminderProfiles(ctx context.Context) ([]models.Profile, error) {
	it := s.client.Collection(s.collections.Profiles).
		Where("reminderOptIn", "==", true).Documents(ctx)

	var profiles []models.Profile
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list profiles: %w", err)
		}
		var p models.Profile
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to decode profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
