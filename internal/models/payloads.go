package models

// These structs define the JSON payloads for HTTP requests and responses
// between the web client, the batch processor, and the worker Cloud
// Functions. Error responses always take the {"error": "..."} shape.

// ExtractedQuestion is the transient output of the question-extraction
// stage; it becomes a Question record as soon as classification has been
// attempted.
type ExtractedQuestion struct {
	Text   string `json:"question_text"`
	Number int    `json:"question_number,omitempty"`
}

// ExtractQuestionsRequest is the input for the question-extractor function.
type ExtractQuestionsRequest struct {
	Text string `json:"text"`
}

// ExtractQuestionsResponse is the output of the question-extractor function.
type ExtractQuestionsResponse struct {
	Questions []ExtractedQuestion `json:"questions"`
}

// AnalyzeQuestionRequest is the input for the question-analyzer function.
type AnalyzeQuestionRequest struct {
	Question string   `json:"question"`
	Topics   []string `json:"topics"`
}

// AnalyzeQuestionResponse is the output of the question-analyzer function.
// All fields may be empty when the model could not classify the question.
type AnalyzeQuestionResponse struct {
	Topic       string `json:"topic,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	Explanation string `json:"importance_explanation,omitempty"`
}

// PagePayload is one rendered page of an image-based document, sent inline
// to the OCR function. Data is base64-encoded on the wire.
type PagePayload struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// OCRRequest is the input for the page-ocr function.
type OCRRequest struct {
	Images []PagePayload `json:"images"`
}

// OCRResponse is the output of the page-ocr function.
type OCRResponse struct {
	Text string `json:"text"`
}

// ProcessBatchRequest is the input for the paper-processor function.
type ProcessBatchRequest struct {
	QueueIDs   []string `json:"queueIds"`
	SyllabusID string   `json:"syllabusId"`
	ExamType   string   `json:"examType"`
}

// ProcessBatchResponse returns the final queue snapshot after a batch run.
type ProcessBatchResponse struct {
	Files []QueuedFile `json:"files"`
}

// EvaluateAnswerRequest is the input for the answer-evaluator function.
type EvaluateAnswerRequest struct {
	Question      string `json:"question"`
	ModelAnswer   string `json:"model_answer,omitempty"`
	StudentAnswer string `json:"student_answer"`
}

// EvaluateAnswerResponse is the output of the answer-evaluator function.
type EvaluateAnswerResponse struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// SpeechRequest is the input for the speech function. The response body is
// raw audio/mpeg, not JSON.
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// StatsRequest is the input for the practice-stats function.
type StatsRequest struct {
	UserID string `json:"userId"`
}

// StatsResponse is the output of the practice-stats function.
type StatsResponse struct {
	CurrentStreak     int           `json:"currentStreak"`
	LongestStreak     int           `json:"longestStreak"`
	TotalSessions     int           `json:"totalSessions"`
	QuestionsAnswered int           `json:"questionsAnswered"`
	CompletedPapers   int           `json:"completedPapers"`
	Achievements      []Achievement `json:"achievements"`
}

// DigestResponse summarizes one streak-digest run.
type DigestResponse struct {
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
}

// ErrorResponse is the uniform error payload returned by every function.
type ErrorResponse struct {
	Error string `json:"error"`
}
