package models

import "time"

// QueueStatus enumerates the lifecycle of a queued exam paper. Transitions
// are strictly forward; "error" is terminal and reachable from any
// non-terminal state.
type QueueStatus string

const (
	StatusPending             QueueStatus = "pending"
	StatusExtractingText      QueueStatus = "extracting-text"
	StatusExtractingQuestions QueueStatus = "extracting-questions"
	StatusAnalyzing           QueueStatus = "analyzing"
	StatusComplete            QueueStatus = "complete"
	StatusError               QueueStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s QueueStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Paper lifecycle statuses.
const (
	PaperAnalyzing = "analyzing"
	PaperCompleted = "completed"
)

// QueuedFile is the per-upload record in the paperQueue collection.
// It tracks the overall status and progress of one exam paper as the
// batch controller drives it through the pipeline.
type QueuedFile struct {
	ID            string      `firestore:"id" json:"id"`
	ObjectName    string      `firestore:"objectName" json:"objectName"`
	DisplayName   string      `firestore:"displayName" json:"displayName"`
	FileHash      string      `firestore:"fileHash,omitempty" json:"-"`
	Status        QueueStatus `firestore:"status" json:"status"`
	Progress      float64     `firestore:"progress" json:"progress"`
	QuestionCount int         `firestore:"questionCount,omitempty" json:"questionCount,omitempty"`
	ErrorMessage  string      `firestore:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt     time.Time   `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// Syllabus is a read-only named set of topics used to contextualize
// question classification.
type Syllabus struct {
	ID       string   `firestore:"id" json:"id"`
	Name     string   `firestore:"name" json:"name"`
	ExamType string   `firestore:"examType" json:"examType"`
	Topics   []string `firestore:"topics" json:"topics"`
}

// Paper is one uploaded exam document and its aggregate processing status.
type Paper struct {
	ID         string    `firestore:"-" json:"id"`
	Title      string    `firestore:"title" json:"title"`
	ExamType   string    `firestore:"examType" json:"examType"`
	FullText   string    `firestore:"fullText" json:"-"`
	SyllabusID string    `firestore:"syllabusId" json:"syllabusId"`
	Status     string    `firestore:"status" json:"status"`
	CreatedAt  time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// Classification is the tagged result of analyzing one question. A nil
// *Classification means "no classification available" and yields an
// unanalyzed Question; null-field punning is deliberately avoided.
type Classification struct {
	Topic       string `json:"topic"`
	Difficulty  string `json:"difficulty"`
	Explanation string `json:"importance_explanation"`
}

// Question is one classified (or unclassified) item extracted from a Paper.
type Question struct {
	PaperID     string    `firestore:"paperId" json:"paperId"`
	Text        string    `firestore:"text" json:"text"`
	Number      int       `firestore:"number" json:"number"`
	Topic       string    `firestore:"topic,omitempty" json:"topic,omitempty"`
	Difficulty  string    `firestore:"difficulty,omitempty" json:"difficulty,omitempty"`
	Explanation string    `firestore:"explanation,omitempty" json:"explanation,omitempty"`
	Analyzed    bool      `firestore:"analyzed" json:"analyzed"`
	CreatedAt   time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// PracticeSession is one day's practice activity for a user. Streaks and
// achievements are aggregated from these records.
type PracticeSession struct {
	UserID            string    `firestore:"userId" json:"userId"`
	Date              time.Time `firestore:"date" json:"date"`
	QuestionsAnswered int       `firestore:"questionsAnswered" json:"questionsAnswered"`
	Correct           int       `firestore:"correct" json:"correct"`
}

// Profile holds the contact preferences used by the streak digest.
type Profile struct {
	UserID        string `firestore:"userId" json:"userId"`
	Email         string `firestore:"email" json:"email"`
	DisplayName   string `firestore:"displayName" json:"displayName"`
	ReminderOptIn bool   `firestore:"reminderOptIn" json:"reminderOptIn"`
}

// Achievement is an earned badge derived from aggregate practice history.
type Achievement struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
