package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examanalyzer/backend/internal/models"
	"github.com/examanalyzer/backend/internal/pdf"
)

type fakeReader struct {
	texts        map[string]pdf.DocumentText
	extractErr   error
	payloads     []models.PagePayload
	payloadErr   error
	payloadCalls int
}

func (r *fakeReader) ExtractText(_ context.Context, f models.QueuedFile) (pdf.DocumentText, error) {
	if r.extractErr != nil {
		return pdf.DocumentText{}, r.extractErr
	}
	return r.texts[f.DisplayName], nil
}

func (r *fakeReader) PagePayloads(context.Context, models.QueuedFile) ([]models.PagePayload, error) {
	r.payloadCalls++
	return r.payloads, r.payloadErr
}

type fakeExtractor struct {
	questions map[string][]models.ExtractedQuestion
	err       error
}

func (e *fakeExtractor) ExtractQuestions(_ context.Context, text string) ([]models.ExtractedQuestion, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.questions[text], nil
}

type fakeAnalyzer struct {
	failOn map[string]bool
	calls  int
}

func (a *fakeAnalyzer) Analyze(_ context.Context, question string, topics []string) (*models.Classification, error) {
	a.calls++
	if a.failOn[question] {
		return nil, errors.New("model unavailable")
	}
	return &models.Classification{
		Topic:       topics[0],
		Difficulty:  "medium",
		Explanation: "frequently examined",
	}, nil
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (o *fakeOCR) Recognize(_ context.Context, pages []models.PagePayload) (string, error) {
	o.calls++
	return o.text, o.err
}

type fakeStore struct {
	papers       []models.Paper
	questions    []models.Question
	paperStatus  map[string]string
	createErrs   bool
	questionErrs bool
}

func (s *fakeStore) CreatePaper(_ context.Context, p models.Paper) (string, error) {
	if s.createErrs {
		return "", errors.New("permission denied")
	}
	id := fmt.Sprintf("paper-%d", len(s.papers)+1)
	p.ID = id
	s.papers = append(s.papers, p)
	return id, nil
}

func (s *fakeStore) CreateQuestion(_ context.Context, q models.Question) error {
	if s.questionErrs {
		return errors.New("write failed")
	}
	s.questions = append(s.questions, q)
	return nil
}

func (s *fakeStore) UpdatePaperStatus(_ context.Context, paperID, status string) error {
	if s.paperStatus == nil {
		s.paperStatus = map[string]string{}
	}
	s.paperStatus[paperID] = status
	return nil
}

func pendingFile(name string) models.QueuedFile {
	return models.QueuedFile{
		ID:          "id-" + name,
		ObjectName:  "uploads/" + name,
		DisplayName: name,
		Status:      models.StatusPending,
	}
}

var topics = []string{"Algebra", "Geometry", "Calculus"}

func textDoc(text string) pdf.DocumentText {
	return pdf.DocumentText{Text: text, PageCount: 3, ImageBased: false}
}

func TestProcessHappyPath(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{"a.pdf": textDoc("full text A")}}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"full text A": {{Text: "Q1", Number: 1}, {Text: "Q2", Number: 2}},
	}}
	store := &fakeStore{}
	ctrl := NewController(reader, extractor, &fakeAnalyzer{}, &fakeOCR{}, store)

	out := ctrl.Process(context.Background(), Queue{pendingFile("a.pdf")}, Config{SyllabusID: "syl-1", ExamType: "GCSE", Topics: topics})

	require.Len(t, out, 1)
	assert.Equal(t, models.StatusComplete, out[0].Status)
	assert.Equal(t, float64(100), out[0].Progress)
	assert.Equal(t, 2, out[0].QuestionCount)
	assert.Empty(t, out[0].ErrorMessage)

	require.Len(t, store.papers, 1)
	assert.Equal(t, "a.pdf", store.papers[0].Title)
	assert.Equal(t, models.PaperAnalyzing, store.papers[0].Status)
	assert.Equal(t, models.PaperCompleted, store.paperStatus["paper-1"])

	require.Len(t, store.questions, 2)
	for i, q := range store.questions {
		assert.True(t, q.Analyzed)
		assert.Equal(t, "Algebra", q.Topic)
		assert.Equal(t, i+1, q.Number)
	}
}

func TestProcessEveryFileReachesTerminalState(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{
		"a.pdf": textDoc("text A"),
		"b.pdf": textDoc("text B"),
		"c.pdf": textDoc(""),
	}}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"text A": {{Text: "Q1"}},
		"text B": nil,
	}}
	ctrl := NewController(reader, extractor, &fakeAnalyzer{}, &fakeOCR{}, &fakeStore{})

	out := ctrl.Process(context.Background(), Queue{pendingFile("a.pdf"), pendingFile("b.pdf"), pendingFile("c.pdf")}, Config{Topics: topics})

	for _, f := range out {
		assert.True(t, f.Status.Terminal(), "file %s left in state %s", f.DisplayName, f.Status)
	}
}

func TestEmptyExtractionFailsFileAndBatchContinues(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{
		"a.pdf": textDoc("text A"),
		"b.pdf": textDoc("text B"),
	}}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"text A": {{Text: "Q1", Number: 1}, {Text: "Q2", Number: 2}},
		"text B": nil,
	}}
	store := &fakeStore{}
	ctrl := NewController(reader, extractor, &fakeAnalyzer{}, &fakeOCR{}, store)

	// Order B-then-A: A's outcome must be unaffected by B's failure.
	out := ctrl.Process(context.Background(), Queue{pendingFile("b.pdf"), pendingFile("a.pdf")}, Config{SyllabusID: "syl-1", Topics: topics})

	require.Len(t, out, 2)
	assert.Equal(t, models.StatusError, out[0].Status)
	assert.Equal(t, "No questions found in document", out[0].ErrorMessage)

	assert.Equal(t, models.StatusComplete, out[1].Status)
	assert.Equal(t, float64(100), out[1].Progress)
	require.Len(t, store.questions, 2)
	assert.True(t, store.questions[0].Analyzed)
	assert.True(t, store.questions[1].Analyzed)
}

func TestImageBasedDocumentRoutesThroughOCR(t *testing.T) {
	reader := &fakeReader{
		texts: map[string]pdf.DocumentText{
			// 10 chars per page, below the 50-char threshold.
			"scan.pdf": {Text: "0123456789", PageCount: 1, ImageBased: true},
		},
		payloads: []models.PagePayload{{MIMEType: "application/pdf", Data: []byte("page-1")}},
	}
	ocr := &fakeOCR{text: "recognized exam text"}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"recognized exam text": {{Text: "Q1"}},
	}}
	store := &fakeStore{}
	ctrl := NewController(reader, extractor, &fakeAnalyzer{}, ocr, store)

	out := ctrl.Process(context.Background(), Queue{pendingFile("scan.pdf")}, Config{Topics: topics})

	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, 1, reader.payloadCalls)
	assert.Equal(t, models.StatusComplete, out[0].Status)
	require.Len(t, store.papers, 1)
	assert.Equal(t, "recognized exam text", store.papers[0].FullText)
}

func TestTextExtractionFailureMessage(t *testing.T) {
	ctrl := NewController(&fakeReader{extractErr: errors.New("corrupt xref")}, &fakeExtractor{}, &fakeAnalyzer{}, &fakeOCR{}, &fakeStore{})

	out := ctrl.Process(context.Background(), Queue{pendingFile("bad.pdf")}, Config{})

	assert.Equal(t, models.StatusError, out[0].Status)
	assert.Equal(t, "Failed to extract text from PDF", out[0].ErrorMessage)
}

func TestEmptyTextFailureMessage(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{"blank.pdf": textDoc("   ")}}
	ctrl := NewController(reader, &fakeExtractor{}, &fakeAnalyzer{}, &fakeOCR{}, &fakeStore{})

	out := ctrl.Process(context.Background(), Queue{pendingFile("blank.pdf")}, Config{})

	assert.Equal(t, models.StatusError, out[0].Status)
	assert.Equal(t, "No text could be extracted", out[0].ErrorMessage)
}

func TestClassificationFailureIsSoft(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{"a.pdf": textDoc("text A")}}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"text A": {{Text: "Q1", Number: 1}, {Text: "Q2", Number: 2}, {Text: "Q3", Number: 3}},
	}}
	analyzer := &fakeAnalyzer{failOn: map[string]bool{"Q2": true}}
	store := &fakeStore{}
	ctrl := NewController(reader, extractor, analyzer, &fakeOCR{}, store)

	out := ctrl.Process(context.Background(), Queue{pendingFile("a.pdf")}, Config{Topics: topics})

	assert.Equal(t, models.StatusComplete, out[0].Status)
	assert.Equal(t, float64(100), out[0].Progress)
	require.Len(t, store.questions, 3)
	assert.True(t, store.questions[0].Analyzed)
	assert.False(t, store.questions[1].Analyzed)
	assert.Empty(t, store.questions[1].Topic)
	assert.True(t, store.questions[2].Analyzed)
	assert.Equal(t, models.PaperCompleted, store.paperStatus["paper-1"])
}

func TestPaperCreationFailureFailsFile(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{"a.pdf": textDoc("text A")}}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"text A": {{Text: "Q1"}},
	}}
	store := &fakeStore{createErrs: true}
	ctrl := NewController(reader, extractor, &fakeAnalyzer{}, &fakeOCR{}, store)

	out := ctrl.Process(context.Background(), Queue{pendingFile("a.pdf")}, Config{Topics: topics})

	assert.Equal(t, models.StatusError, out[0].Status)
	assert.NotEmpty(t, out[0].ErrorMessage)
	assert.Empty(t, store.questions)
}

func TestQuestionPersistFailureDoesNotFailFile(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{"a.pdf": textDoc("text A")}}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"text A": {{Text: "Q1"}},
	}}
	store := &fakeStore{questionErrs: true}
	ctrl := NewController(reader, extractor, &fakeAnalyzer{}, &fakeOCR{}, store)

	out := ctrl.Process(context.Background(), Queue{pendingFile("a.pdf")}, Config{Topics: topics})

	assert.Equal(t, models.StatusComplete, out[0].Status)
}

func TestProgressIsMonotonic(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{"a.pdf": textDoc("text A")}}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"text A": {{Text: "Q1"}, {Text: "Q2"}, {Text: "Q3"}},
	}}
	ctrl := NewController(reader, extractor, &fakeAnalyzer{}, &fakeOCR{}, &fakeStore{})

	var seen []float64
	ctrl.OnUpdate = func(f models.QueuedFile) {
		seen = append(seen, f.Progress)
	}

	ctrl.Process(context.Background(), Queue{pendingFile("a.pdf")}, Config{Topics: topics})

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, float64(100), seen[len(seen)-1])
}

func TestQuestionsFallBackToArrayPosition(t *testing.T) {
	reader := &fakeReader{texts: map[string]pdf.DocumentText{"a.pdf": textDoc("text A")}}
	extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
		"text A": {{Text: "Q1"}, {Text: "Q2", Number: 7}, {Text: "Q3"}},
	}}
	store := &fakeStore{}
	ctrl := NewController(reader, extractor, &fakeAnalyzer{}, &fakeOCR{}, store)

	ctrl.Process(context.Background(), Queue{pendingFile("a.pdf")}, Config{Topics: topics})

	require.Len(t, store.questions, 3)
	assert.Equal(t, 1, store.questions[0].Number)
	assert.Equal(t, 7, store.questions[1].Number)
	assert.Equal(t, 3, store.questions[2].Number)
}

func TestCancelledContextLeavesFilesPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ctrl := NewController(&fakeReader{}, &fakeExtractor{}, &fakeAnalyzer{}, &fakeOCR{}, &fakeStore{})
	out := ctrl.Process(ctx, Queue{pendingFile("a.pdf"), pendingFile("b.pdf")}, Config{})

	for _, f := range out {
		assert.Equal(t, models.StatusPending, f.Status)
	}
}

func TestReprocessingIsIdempotentGivenSameResponses(t *testing.T) {
	run := func() Queue {
		reader := &fakeReader{texts: map[string]pdf.DocumentText{"a.pdf": textDoc("text A")}}
		extractor := &fakeExtractor{questions: map[string][]models.ExtractedQuestion{
			"text A": {{Text: "Q1", Number: 1}},
		}}
		analyzer := &fakeAnalyzer{failOn: map[string]bool{"Q1": true}}
		ctrl := NewController(reader, extractor, analyzer, &fakeOCR{}, &fakeStore{})
		return ctrl.Process(context.Background(), Queue{pendingFile("a.pdf")}, Config{Topics: topics})
	}

	first := run()
	second := run()
	assert.Equal(t, first[0].Status, second[0].Status)
	assert.Equal(t, first[0].Progress, second[0].Progress)
	assert.Equal(t, first[0].ErrorMessage, second[0].ErrorMessage)
}

func TestNonPendingFilesAreSkipped(t *testing.T) {
	done := pendingFile("done.pdf")
	done.Status = models.StatusComplete
	done.Progress = 100

	ctrl := NewController(&fakeReader{}, &fakeExtractor{}, &fakeAnalyzer{}, &fakeOCR{}, &fakeStore{})
	out := ctrl.Process(context.Background(), Queue{done}, Config{})

	assert.Equal(t, models.StatusComplete, out[0].Status)
	assert.Equal(t, float64(100), out[0].Progress)
}
