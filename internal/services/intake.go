package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/gcp"
	"github.com/examanalyzer/backend/internal/pipeline"
	"github.com/examanalyzer/backend/internal/store"
)

// GCSEvent is the payload of a GCS object-finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// IntakeFunction registers freshly uploaded exam papers: it validates the
// object, dedupes by content hash, creates the queue record, and hands off
// to the processing workflow.
type IntakeFunction struct {
	storageClient    *storage.Client
	executionsClient *executions.Client
	store            *store.Firestore
	config           *config.AppConfig
}

// NewIntake creates a new IntakeFunction instance.
func NewIntake(ctx context.Context, cfg *config.AppConfig) (*IntakeFunction, error) {
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflows executions client: %w", err)
	}

	f := &IntakeFunction{
		storageClient:    storageClient,
		executionsClient: executionsClient,
		store:            store.New(firestoreClient, cfg.Collections),
		config:           cfg,
	}
	slog.Info("Paper intake logic initialized.", "workflowId", cfg.Workflow.ID)
	return f, nil
}

// Process handles one uploaded object. Rejections and duplicates exit
// cleanly so the event is not redelivered; only infrastructure failures
// are returned as errors.
func (f *IntakeFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new upload.")

	attrs, err := f.storageClient.Bucket(e.Bucket).Object(e.Name).Attrs(ctx)
	if err != nil {
		logCtx.Error("Failed to read object attributes", "error", err)
		return fmt.Errorf("failed to read object attributes: %w", err)
	}

	input := pipeline.FileInput{
		Name:        filepath.Base(e.Name),
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		ObjectName:  e.Name,
	}
	queue, rejected := pipeline.Enqueue(nil, []pipeline.FileInput{input})
	if len(rejected) > 0 {
		// User-visible rejection, reported through the upload UI; a clean
		// exit keeps the event from being retried.
		logCtx.Warn("Upload rejected.", "name", input.Name, "size", input.Size, "contentType", input.ContentType)
		return nil
	}
	queued := queue[0]

	tempDir, err := os.MkdirTemp("", "paper-intake-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	localPath := filepath.Join(tempDir, "upload.pdf")
	if err := gcp.DownloadToFile(ctx, f.storageClient, e.Bucket, e.Name, localPath); err != nil {
		logCtx.Error("Failed to download upload", "error", err)
		return err
	}

	fileHash, err := hashFile(localPath)
	if err != nil {
		logCtx.Error("Failed to hash upload", "error", err)
		return fmt.Errorf("failed to hash upload: %w", err)
	}
	queued.FileHash = fileHash
	logCtx = logCtx.With("fileHash", fileHash)

	existing, err := f.store.FindQueuedFileByHash(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if existing != nil {
		logCtx.Info("Duplicate upload detected. Skipping.", "existingId", existing.ID)
		return nil
	}

	if err := f.store.CreateQueuedFile(ctx, queued); err != nil {
		logCtx.Error("Failed to create queue record", "error", err)
		return err
	}
	logCtx = logCtx.With("fileId", queued.ID)
	logCtx.Info("Queue record created.")

	if err := f.triggerWorkflow(ctx, queued.ID, attrs.Metadata); err != nil {
		logCtx.Error("Failed to trigger processing workflow", "error", err)
		return err
	}
	logCtx.Info("Hand-off to processing workflow complete.")
	return nil
}

func (f *IntakeFunction) triggerWorkflow(ctx context.Context, queueID string, metadata map[string]string) error {
	payload := map[string]any{
		"queueIds":   []string{queueID},
		"syllabusId": metadata["syllabusId"],
		"examType":   metadata["examType"],
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}

	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s",
			f.config.ProjectID, f.config.Workflow.Location, f.config.Workflow.ID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := f.executionsClient.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
