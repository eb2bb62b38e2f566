package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examanalyzer/backend/internal/models"
)

func TestExtractQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ExtractQuestionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "paper text", req.Text)

		json.NewEncoder(w).Encode(models.ExtractQuestionsResponse{
			Questions: []models.ExtractedQuestion{
				{Text: "What is 2+2?", Number: 1},
				{Text: "Prove Pythagoras."},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "")
	questions, err := client.ExtractQuestions(context.Background(), "paper text")

	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].Number)
	assert.Zero(t, questions[1].Number)
}

func TestAnalyzeReturnsClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.AnalyzeQuestionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"Algebra", "Geometry"}, req.Topics)

		json.NewEncoder(w).Encode(models.AnalyzeQuestionResponse{
			Topic:       "Algebra",
			Difficulty:  "hard",
			Explanation: "core technique",
		})
	}))
	defer srv.Close()

	client := NewClient("", srv.URL, "")
	cls, err := client.Analyze(context.Background(), "Solve x^2=4", []string{"Algebra", "Geometry"})

	require.NoError(t, err)
	assert.Equal(t, "Algebra", cls.Topic)
	assert.Equal(t, "hard", cls.Difficulty)
}

func TestAnalyzeEmptyClassificationIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.AnalyzeQuestionResponse{})
	}))
	defer srv.Close()

	client := NewClient("", srv.URL, "")
	cls, err := client.Analyze(context.Background(), "Q", []string{"Algebra"})

	assert.Error(t, err)
	assert.Nil(t, cls)
}

func TestErrorPayloadIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "model quota exceeded"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "")
	_, err := client.ExtractQuestions(context.Background(), "text")

	require.Error(t, err)
	assert.EqualError(t, err, "model quota exceeded")
}

func TestMissingEndpointReportedAtCallTime(t *testing.T) {
	client := NewClient("", "", "")

	_, err := client.ExtractQuestions(context.Background(), "text")
	assert.ErrorContains(t, err, "not configured")

	_, err = client.Recognize(context.Background(), nil)
	assert.ErrorContains(t, err, "not configured")
}

func TestRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.OCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Images, 2)
		assert.Equal(t, "application/pdf", req.Images[0].MIMEType)

		json.NewEncoder(w).Encode(models.OCRResponse{Text: "page one\n\npage two"})
	}))
	defer srv.Close()

	client := NewClient("", "", srv.URL)
	text, err := client.Recognize(context.Background(), []models.PagePayload{
		{MIMEType: "application/pdf", Data: []byte("p1")},
		{MIMEType: "application/pdf", Data: []byte("p2")},
	})

	require.NoError(t, err)
	assert.Contains(t, text, "page one")
}
