package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/services"
)

var (
	intakeInstance *services.IntakeFunction
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. GCS finalize events on the uploads
	// bucket are routed here.
	functions.CloudEvent("IngestPaperUpload", ingestPaperUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// ingestPaperUpload is the Cloud Function entry point for new uploads.
func ingestPaperUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		var cfg *config.AppConfig
		cfg, initErr = config.Load(os.Getenv("CONFIG_FILE"))
		if initErr != nil {
			return
		}
		intakeInstance, initErr = services.NewIntake(context.Background(), cfg)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Returning an error marks the invocation as failed so Eventarc retries.
	return intakeInstance.Process(ctx, gcsEvent)
}
