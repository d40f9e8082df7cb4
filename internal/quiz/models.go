package quiz

import "math"

// DateFormat is the wire and storage format for quiz dates. ISO dates
// compare correctly as strings, which keeps the "date >= today" queries
// portable across sqlite and postgres.
const DateFormat = "2006-01-02"

type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	PasswordHash  string `json:"-"`
	FullName      string `json:"full_name,omitempty"`
	Qualification string `json:"qualification,omitempty"`
	DOB           string `json:"dob,omitempty"` // YYYY-MM-DD, optional
	IsAdmin       bool   `json:"is_admin"`
	CreatedAt     int64  `json:"created_at"`
}

type Subject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

type Chapter struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SubjectID   string `json:"subject_id"`
	CreatedAt   int64  `json:"created_at"`
}

type Quiz struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChapterID    string `json:"chapter_id"`
	DateOfQuiz   string `json:"date_of_quiz"` // YYYY-MM-DD
	TimeDuration int    `json:"time_duration"` // minutes, 1..180
	Remarks      string `json:"remarks,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// AvailableOn reports whether the quiz may be attempted on the given day.
func (q Quiz) AvailableOn(today string) bool {
	return q.DateOfQuiz <= today
}

type Question struct {
	ID            string `json:"id"`
	QuizID        string `json:"quiz_id"`
	QuestionText  string `json:"question_text"`
	Option1       string `json:"option_1"`
	Option2       string `json:"option_2"`
	Option3       string `json:"option_3"`
	Option4       string `json:"option_4"`
	CorrectOption int    `json:"correct_option"` // 1..4
	CreatedAt     int64  `json:"created_at"`
}

// QuestionView is the learner-facing shape of a question: same content,
// correct option stripped.
type QuestionView struct {
	ID           string `json:"id"`
	QuizID       string `json:"quiz_id"`
	QuestionText string `json:"question_text"`
	Option1      string `json:"option_1"`
	Option2      string `json:"option_2"`
	Option3      string `json:"option_3"`
	Option4      string `json:"option_4"`
}

func (q Question) View() QuestionView {
	return QuestionView{
		ID:           q.ID,
		QuizID:       q.QuizID,
		QuestionText: q.QuestionText,
		Option1:      q.Option1,
		Option2:      q.Option2,
		Option3:      q.Option3,
		Option4:      q.Option4,
	}
}

// AnswerMap records the option a user picked per question. Unanswered
// questions keep their key with a nil value so the record of what was
// skipped survives the round trip through storage.
type AnswerMap map[string]*int

type Score struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quiz_id"`
	UserID         string    `json:"user_id"`
	TotalScored    int       `json:"total_scored"`
	TotalQuestions int       `json:"total_questions"`
	Answers        AnswerMap `json:"answers"`
	Timestamp      int64     `json:"timestamp"`
}

// Percentage is the score as a percent of total questions, rounded
// half-up to two decimals. Zero-question quizzes score 0.
func (s Score) Percentage() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return Round2(float64(s.TotalScored) / float64(s.TotalQuestions) * 100)
}

// Round2 rounds half-up to two decimal places. Persisted percentages were
// produced with this rounding, so display code must reuse it.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Counts is the entity tally shown on the admin dashboard.
type Counts struct {
	Users     int `json:"total_users"`
	Subjects  int `json:"total_subjects"`
	Quizzes   int `json:"total_quizzes"`
	Questions int `json:"total_questions"`
}
