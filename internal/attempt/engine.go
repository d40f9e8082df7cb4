// Package attempt enforces the one-attempt-per-user rule and grades
// submitted answers. A (user, quiz) pair moves NotYetAvailable ->
// Available -> Attempted; Attempted is terminal, there is no retake.
package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/quizmaster/quizmaster/internal/audit"
	"github.com/quizmaster/quizmaster/internal/quiz"
)

// Store is the slice of the data store the engine needs.
type Store interface {
	GetQuiz(ctx context.Context, id string) (quiz.Quiz, error)
	ListQuestionsByQuiz(ctx context.Context, quizID string) ([]quiz.Question, error)
	GetScoreByUserQuiz(ctx context.Context, userID, quizID string) (quiz.Score, error)
	CreateScore(ctx context.Context, s quiz.Score) (quiz.Score, error)
}

type Engine struct {
	store  Store
	events audit.Recorder // optional
	now    func() time.Time
}

type Option func(*Engine)

// WithRecorder makes the engine append a score.created event per submission.
func WithRecorder(r audit.Recorder) Option { return func(e *Engine) { e.events = r } }

// WithClock overrides the availability clock, for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Sheet is what a learner gets when an attempt starts: the quiz plus its
// questions with the correct options stripped.
type Sheet struct {
	Quiz      quiz.Quiz           `json:"quiz"`
	Questions []quiz.QuestionView `json:"questions"`
}

func (e *Engine) today() string { return e.now().Format(quiz.DateFormat) }

// guard runs the checks shared by start and submit and returns the quiz's
// questions when the attempt may proceed.
func (e *Engine) guard(ctx context.Context, userID, quizID string) (quiz.Quiz, []quiz.Question, error) {
	q, err := e.store.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, nil, err
	}
	if !q.AvailableOn(e.today()) {
		return quiz.Quiz{}, nil, quiz.ErrNotAvailable
	}
	existing, err := e.store.GetScoreByUserQuiz(ctx, userID, quizID)
	if err == nil {
		return quiz.Quiz{}, nil, &quiz.AlreadyAttemptedError{ScoreID: existing.ID}
	}
	if !errors.Is(err, quiz.ErrNotFound) {
		return quiz.Quiz{}, nil, err
	}
	questions, err := e.store.ListQuestionsByQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, nil, err
	}
	if len(questions) == 0 {
		return quiz.Quiz{}, nil, quiz.ErrNoQuestions
	}
	return q, questions, nil
}

// StartAttempt checks availability and prior attempts and hands back the
// attempt sheet. It writes nothing; the Available -> Attempted transition
// happens only in SubmitAttempt.
func (e *Engine) StartAttempt(ctx context.Context, userID, quizID string) (Sheet, error) {
	q, questions, err := e.guard(ctx, userID, quizID)
	if err != nil {
		return Sheet{}, err
	}
	views := make([]quiz.QuestionView, 0, len(questions))
	for _, qn := range questions {
		views = append(views, qn.View())
	}
	return Sheet{Quiz: q, Questions: views}, nil
}

// SubmitAttempt grades the answers and persists the score, append-only.
// The availability and prior-attempt checks run again here: a second
// submission racing this one loses inside the store's CreateScore and
// comes back as AlreadyAttempted with the winner's score id.
func (e *Engine) SubmitAttempt(ctx context.Context, userID, quizID string, answers map[string]int) (quiz.Score, error) {
	_, questions, err := e.guard(ctx, userID, quizID)
	if err != nil {
		return quiz.Score{}, err
	}

	scored, recorded := Grade(questions, answers)
	sc, err := e.store.CreateScore(ctx, quiz.Score{
		QuizID:         quizID,
		UserID:         userID,
		TotalScored:    scored,
		TotalQuestions: len(questions),
		Answers:        recorded,
		Timestamp:      e.now().Unix(),
	})
	if err != nil {
		return quiz.Score{}, err
	}

	if e.events != nil {
		data, _ := json.Marshal(map[string]any{
			"quiz_id":         sc.QuizID,
			"user_id":         sc.UserID,
			"total_scored":    sc.TotalScored,
			"total_questions": sc.TotalQuestions,
		})
		if err := e.events.Append(ctx, audit.Event{Type: "score.created", Key: sc.ID, DataJSON: string(data)}); err != nil {
			log.Printf("audit append failed for score %s: %v", sc.ID, err)
		}
	}
	return sc, nil
}

// Grade compares each submitted option against the question's correct
// option by exact integer equality. Missing or out-of-range answers count
// as incorrect, never as an error. Every question gets an entry in the
// returned map; unanswered ones keep a nil value so the stored record
// distinguishes "skipped" from "wrong".
func Grade(questions []quiz.Question, answers map[string]int) (total int, recorded quiz.AnswerMap) {
	recorded = make(quiz.AnswerMap, len(questions))
	for _, q := range questions {
		picked, ok := answers[q.ID]
		if !ok {
			recorded[q.ID] = nil
			continue
		}
		v := picked
		recorded[q.ID] = &v
		if picked == q.CorrectOption {
			total++
		}
	}
	return total, recorded
}
