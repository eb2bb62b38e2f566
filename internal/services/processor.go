package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/gcp"
	"github.com/examanalyzer/backend/internal/models"
	"github.com/examanalyzer/backend/internal/pdf"
	"github.com/examanalyzer/backend/internal/pipeline"
	"github.com/examanalyzer/backend/internal/remote"
	"github.com/examanalyzer/backend/internal/store"
)

// ProcessorFunction runs the batch ingestion pipeline for a set of queued
// files. One invocation handles one batch, one file at a time.
type ProcessorFunction struct {
	storageClient *storage.Client
	store         *store.Firestore
	clients       *remote.Client
	config        *config.AppConfig
}

// NewProcessor creates a new ProcessorFunction instance.
func NewProcessor(ctx context.Context, cfg *config.AppConfig) (*ProcessorFunction, error) {
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &ProcessorFunction{
		storageClient: storageClient,
		store:         store.New(firestoreClient, cfg.Collections),
		clients:       remote.NewClient(cfg.Functions.ExtractorURL, cfg.Functions.AnalyzerURL, cfg.Functions.OCRURL),
		config:        cfg,
	}, nil
}

// Process loads the requested queue records and the syllabus, runs the
// controller over them, and returns the final snapshot. Per-file progress
// is persisted through the controller's observer as it happens.
func (f *ProcessorFunction) Process(ctx context.Context, req *models.ProcessBatchRequest) (*models.ProcessBatchResponse, error) {
	logCtx := slog.With("syllabusId", req.SyllabusID, "fileCount", len(req.QueueIDs))
	logCtx.Info("Starting batch processing.")

	if len(req.QueueIDs) == 0 {
		return nil, fmt.Errorf("no queue ids provided")
	}

	files, err := f.store.GetQueuedFiles(ctx, req.QueueIDs)
	if err != nil {
		return nil, err
	}

	syllabus, err := f.store.GetSyllabus(ctx, req.SyllabusID)
	if err != nil {
		return nil, err
	}

	reader := newGCSDocumentReader(f.storageClient, f.config.Buckets.Uploads)
	defer reader.cleanup()

	ctrl := pipeline.NewController(reader, f.clients, f.clients, f.clients, f.store)
	ctrl.OnUpdate = func(file models.QueuedFile) {
		if err := f.store.SaveQueuedFile(ctx, file); err != nil {
			slog.Warn("Failed to persist queue record update", "fileId", file.ID, "error", err)
		}
	}

	examType := req.ExamType
	if examType == "" {
		examType = syllabus.ExamType
	}

	out := ctrl.Process(ctx, pipeline.Queue(files), pipeline.Config{
		SyllabusID: syllabus.ID,
		ExamType:   examType,
		Topics:     syllabus.Topics,
	})

	logCtx.Info("Batch processing complete.")
	return &models.ProcessBatchResponse{Files: out}, nil
}

// gcsDocumentReader implements the pipeline's DocumentReader by downloading
// each queued upload to a temp file once and extracting locally.
type gcsDocumentReader struct {
	client *storage.Client
	bucket string

	mu      sync.Mutex
	tempDir string
	paths   map[string]string
}

func newGCSDocumentReader(client *storage.Client, bucket string) *gcsDocumentReader {
	return &gcsDocumentReader{
		client: client,
		bucket: bucket,
		paths:  map[string]string{},
	}
}

func (r *gcsDocumentReader) localPath(ctx context.Context, f models.QueuedFile) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path, ok := r.paths[f.ObjectName]; ok {
		return path, nil
	}
	if r.tempDir == "" {
		dir, err := os.MkdirTemp("", "paper-processor-*")
		if err != nil {
			return "", fmt.Errorf("failed to create temp dir: %w", err)
		}
		r.tempDir = dir
	}

	destPath := filepath.Join(r.tempDir, f.ID+".pdf")
	if err := gcp.DownloadToFile(ctx, r.client, r.bucket, f.ObjectName, destPath); err != nil {
		return "", err
	}
	r.paths[f.ObjectName] = destPath
	return destPath, nil
}

func (r *gcsDocumentReader) ExtractText(ctx context.Context, f models.QueuedFile) (pdf.DocumentText, error) {
	path, err := r.localPath(ctx, f)
	if err != nil {
		return pdf.DocumentText{}, err
	}
	return pdf.ExtractText(path)
}

func (r *gcsDocumentReader) PagePayloads(ctx context.Context, f models.QueuedFile) ([]models.PagePayload, error) {
	path, err := r.localPath(ctx, f)
	if err != nil {
		return nil, err
	}
	return pdf.PagePayloads(path)
}

func (r *gcsDocumentReader) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tempDir != "" {
		os.RemoveAll(r.tempDir)
	}
}
