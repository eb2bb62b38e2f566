package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/models"
	"github.com/examanalyzer/backend/internal/services"
)

var (
	processorInstance *services.ProcessorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleProcessBatch" is the entry point name configured in GCP.
	functions.HTTP("HandleProcessBatch", handleProcessBatch)
}

// main is required by the Go Functions Framework.
func main() {}

// handleProcessBatch drives one queue batch through the analysis pipeline.
// The workflow invokes it once per batch and waits for completion.
func handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var cfg *config.AppConfig
		cfg, initErr = config.Load(os.Getenv("CONFIG_FILE"))
		if initErr != nil {
			return
		}
		processorInstance, initErr = services.NewProcessor(context.Background(), cfg)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		writeError(w, http.StatusInternalServerError, "failed to initialize service")
		return
	}

	var req models.ProcessBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		writeError(w, http.StatusBadRequest, "could not parse JSON request")
		return
	}

	res, err := processorInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside the Process method.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
