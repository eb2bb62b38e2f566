package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/examanalyzer/backend/internal/models"
)

// MaxUploadBytes is the hard cap on a single queued document.
const MaxUploadBytes = 20 * 1024 * 1024

// Queue is an explicit snapshot of the paper queue. Every operation returns
// a new snapshot; there is no ambient singleton.
type Queue []models.QueuedFile

// FileInput describes one candidate document prior to queueing.
type FileInput struct {
	Name        string
	Size        int64
	ContentType string
	ObjectName  string
}

// Enqueue appends every supported input as a pending file and returns the
// new snapshot plus the display names of rejected inputs. Rejection is a
// report for the UI, never an error.
func Enqueue(q Queue, inputs []FileInput) (Queue, []string) {
	out := append(Queue(nil), q...)
	var rejected []string

	for _, in := range inputs {
		if !supported(in) {
			rejected = append(rejected, in.Name)
			continue
		}
		out = append(out, models.QueuedFile{
			ID:          uuid.NewString(),
			ObjectName:  in.ObjectName,
			DisplayName: in.Name,
			Status:      models.StatusPending,
			Progress:    0,
			CreatedAt:   time.Now(),
		})
	}
	return out, rejected
}

func supported(in FileInput) bool {
	if in.Size <= 0 || in.Size > MaxUploadBytes {
		return false
	}
	if in.ContentType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(in.Name), ".pdf")
}

// Dequeue removes the file with the given id. Callers must check
// Controller.Processing first; the guard lives at the call site.
func Dequeue(q Queue, id string) Queue {
	out := make(Queue, 0, len(q))
	for _, f := range q {
		if f.ID != id {
			out = append(out, f)
		}
	}
	return out
}

// Clear empties the queue. Same non-processing precondition as Dequeue.
func Clear(Queue) Queue {
	return Queue{}
}
