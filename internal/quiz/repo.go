package quiz

import "context"

// Store is the persistence boundary for the whole catalog tree plus users
// and scores. Catalog deletes cascade: removing a subject removes its
// chapters, their quizzes, and everything under those.
type Store interface {
	// Users. Users are never deleted.
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	HasAdmin(ctx context.Context) (bool, error)

	// Subjects.
	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	UpdateSubject(ctx context.Context, s Subject) error
	DeleteSubject(ctx context.Context, id string) error
	ListSubjects(ctx context.Context) ([]Subject, error)

	// Chapters.
	CreateChapter(ctx context.Context, c Chapter) (Chapter, error)
	GetChapter(ctx context.Context, id string) (Chapter, error)
	UpdateChapter(ctx context.Context, c Chapter) error
	DeleteChapter(ctx context.Context, id string) error
	ListChaptersBySubject(ctx context.Context, subjectID string) ([]Chapter, error)

	// Quizzes.
	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz) error
	DeleteQuiz(ctx context.Context, id string) error
	ListQuizzes(ctx context.Context) ([]Quiz, error)
	ListQuizzesByChapter(ctx context.Context, chapterID string) ([]Quiz, error)
	// ListQuizzesFrom returns quizzes dated on or after the given day,
	// ascending by date.
	ListQuizzesFrom(ctx context.Context, date string, limit int) ([]Quiz, error)
	ListRecentQuizzes(ctx context.Context, limit int) ([]Quiz, error)

	// Questions.
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) error
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestionsByQuiz(ctx context.Context, quizID string) ([]Question, error)

	// Scores. CreateScore is the one write that must be atomic: the
	// (quiz, user) existence check and the insert happen in one unit so
	// concurrent submissions cannot both land. The loser gets
	// *AlreadyAttemptedError carrying the winner's score id.
	CreateScore(ctx context.Context, s Score) (Score, error)
	GetScore(ctx context.Context, id string) (Score, error)
	GetScoreByUserQuiz(ctx context.Context, userID, quizID string) (Score, error)
	ListScores(ctx context.Context) ([]Score, error)
	ListScoresByQuiz(ctx context.Context, quizID string) ([]Score, error)
	// ListScoresByUser returns the user's scores newest first.
	ListScoresByUser(ctx context.Context, userID string) ([]Score, error)
	ListRecentScores(ctx context.Context, limit int) ([]Score, error)

	// Aggregation support.
	Counts(ctx context.Context) (Counts, error)
	// SubjectNamesByQuiz maps every quiz id to the name of the subject it
	// belongs to (quiz -> chapter -> subject, resolved in one query).
	SubjectNamesByQuiz(ctx context.Context) (map[string]string, error)
}
