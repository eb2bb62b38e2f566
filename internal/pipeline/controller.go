package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/examanalyzer/backend/internal/models"
	"github.com/examanalyzer/backend/internal/pdf"
)

// Fixed user-facing failure messages for the first pipeline stage.
const (
	msgExtractFailed = "Failed to extract text from PDF"
	msgNoText        = "No text could be extracted"
	msgNoQuestions   = "No questions found in document"
)

// DocumentReader is the text extraction adapter: local page-by-page text
// plus single-page payloads for the OCR fallback.
type DocumentReader interface {
	ExtractText(ctx context.Context, f models.QueuedFile) (pdf.DocumentText, error)
	PagePayloads(ctx context.Context, f models.QueuedFile) ([]models.PagePayload, error)
}

// QuestionExtractor submits the full text for question extraction.
type QuestionExtractor interface {
	ExtractQuestions(ctx context.Context, text string) ([]models.ExtractedQuestion, error)
}

// QuestionAnalyzer classifies one question against the syllabus topics.
// A nil Classification with a nil error is treated the same as an error:
// the question stays unanalyzed.
type QuestionAnalyzer interface {
	Analyze(ctx context.Context, question string, topics []string) (*models.Classification, error)
}

// OCRReader recognizes text on rendered page payloads.
type OCRReader interface {
	Recognize(ctx context.Context, pages []models.PagePayload) (string, error)
}

// Store is the persistence adapter for papers and questions.
type Store interface {
	CreatePaper(ctx context.Context, p models.Paper) (string, error)
	CreateQuestion(ctx context.Context, q models.Question) error
	UpdatePaperStatus(ctx context.Context, paperID, status string) error
}

// Config carries the classification context for one batch run.
type Config struct {
	SyllabusID string
	ExamType   string
	Topics     []string
}

// Controller drives each pending file through the fixed stage sequence,
// one file at a time, isolating one file's failure from the rest of the
// queue.
type Controller struct {
	reader    DocumentReader
	extractor QuestionExtractor
	analyzer  QuestionAnalyzer
	ocr       OCRReader
	store     Store

	// OnUpdate, when set, observes every mutation of a file record.
	// The processor uses it to persist progress incrementally.
	OnUpdate func(models.QueuedFile)

	processing atomic.Bool
}

// NewController wires the controller's collaborators.
func NewController(reader DocumentReader, extractor QuestionExtractor, analyzer QuestionAnalyzer, ocr OCRReader, store Store) *Controller {
	return &Controller{
		reader:    reader,
		extractor: extractor,
		analyzer:  analyzer,
		ocr:       ocr,
		store:     store,
	}
}

// Processing reports whether a batch run is in flight. Dequeue and Clear
// call sites must check it before mutating the queue.
func (c *Controller) Processing() bool {
	return c.processing.Load()
}

// Process runs every pending file in FIFO order and returns the final
// queue snapshot. Files are processed strictly sequentially; the only
// cancellation point is between files.
func (c *Controller) Process(ctx context.Context, q Queue, cfg Config) Queue {
	c.processing.Store(true)
	defer c.processing.Store(false)

	out := append(Queue(nil), q...)
	for i := range out {
		if out[i].Status != models.StatusPending {
			continue
		}
		if ctx.Err() != nil {
			slog.Warn("Batch cancelled; leaving remaining files pending.", "fileId", out[i].ID)
			break
		}
		c.processFile(ctx, &out[i], cfg)
	}
	return out
}

func (c *Controller) processFile(ctx context.Context, f *models.QueuedFile, cfg Config) {
	logCtx := slog.With("fileId", f.ID, "displayName", f.DisplayName)
	logCtx.Info("Starting file processing.")

	// --- Stage 1: text extraction ---
	c.update(f, models.StatusExtractingText, 10)
	doc, err := c.reader.ExtractText(ctx, *f)
	if err != nil {
		logCtx.Error("Text extraction failed", "error", err)
		c.fail(f, msgExtractFailed)
		return
	}

	text := doc.Text
	if doc.ImageBased {
		logCtx.Info("Document looks image-based; running OCR.", "pageCount", doc.PageCount)
		pages, err := c.reader.PagePayloads(ctx, *f)
		if err != nil {
			logCtx.Error("Page payload preparation failed", "error", err)
			c.fail(f, msgExtractFailed)
			return
		}
		text, err = c.ocr.Recognize(ctx, pages)
		if err != nil {
			logCtx.Error("OCR failed", "error", err)
			c.fail(f, msgExtractFailed)
			return
		}
	}
	if strings.TrimSpace(text) == "" {
		c.fail(f, msgNoText)
		return
	}
	c.update(f, models.StatusExtractingText, 30)

	// --- Stage 2: question extraction ---
	c.update(f, models.StatusExtractingQuestions, 40)
	questions, err := c.extractor.ExtractQuestions(ctx, text)
	if err != nil {
		logCtx.Error("Question extraction failed", "error", err)
		c.fail(f, err.Error())
		return
	}
	if len(questions) == 0 {
		c.fail(f, msgNoQuestions)
		return
	}
	f.QuestionCount = len(questions)
	c.update(f, models.StatusExtractingQuestions, 50)

	// --- Stage 3: persistence bootstrap ---
	paperID, err := c.store.CreatePaper(ctx, models.Paper{
		Title:      f.DisplayName,
		ExamType:   cfg.ExamType,
		FullText:   text,
		SyllabusID: cfg.SyllabusID,
		Status:     models.PaperAnalyzing,
	})
	if err != nil {
		logCtx.Error("Paper creation failed", "error", err)
		c.fail(f, err.Error())
		return
	}
	logCtx = logCtx.With("paperId", paperID)

	// --- Stage 4: classification, one question at a time ---
	c.update(f, models.StatusAnalyzing, 60)
	total := len(questions)
	for i, eq := range questions {
		number := eq.Number
		if number == 0 {
			number = i + 1
		}

		question := models.Question{
			PaperID: paperID,
			Text:    eq.Text,
			Number:  number,
		}
		cls, err := c.analyzer.Analyze(ctx, eq.Text, cfg.Topics)
		if err != nil || cls == nil {
			// Soft failure: the question is persisted unanalyzed and the
			// file keeps going.
			logCtx.Warn("Classification unavailable for question", "number", number, "error", err)
		} else {
			question.Topic = cls.Topic
			question.Difficulty = cls.Difficulty
			question.Explanation = cls.Explanation
			question.Analyzed = true
		}

		if err := c.store.CreateQuestion(ctx, question); err != nil {
			logCtx.Warn("Failed to persist question", "number", number, "error", err)
		}

		c.update(f, models.StatusAnalyzing, 60+40*float64(i+1)/float64(total))
	}

	// --- Stage 5: finalization (best-effort paper status) ---
	if err := c.store.UpdatePaperStatus(ctx, paperID, models.PaperCompleted); err != nil {
		logCtx.Warn("Failed to mark paper completed", "error", err)
	}
	f.ErrorMessage = ""
	c.update(f, models.StatusComplete, 100)
	logCtx.Info("File processing complete.", "questionCount", total)
}

// update advances status and progress. Progress never moves backwards while
// the file is non-terminal.
func (c *Controller) update(f *models.QueuedFile, status models.QueueStatus, progress float64) {
	f.Status = status
	if progress > f.Progress {
		f.Progress = progress
	}
	c.notify(*f)
}

func (c *Controller) fail(f *models.QueuedFile, message string) {
	f.Status = models.StatusError
	f.ErrorMessage = message
	c.notify(*f)
}

func (c *Controller) notify(f models.QueuedFile) {
	if c.OnUpdate != nil {
		c.OnUpdate(f)
	}
}
