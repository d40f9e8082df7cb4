package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLStore implements Store over database/sql. It works against both the
// sqlite and pgx drivers; queries use $N placeholders, which both accept.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// ---- users ----

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id,email,username,password_hash,full_name,qualification,dob,is_admin,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.FullName, u.Qualification, u.DOB, boolToInt(u.IsAdmin), u.CreatedAt)
	if err != nil {
		return User{}, storageErr("create user", err)
	}
	return u, nil
}

func (s *SQLStore) scanUser(row *sql.Row) (User, error) {
	var u User
	var isAdmin int
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName, &u.Qualification, &u.DOB, &isAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, storageErr("scan user", err)
	}
	u.IsAdmin = isAdmin != 0
	return u, nil
}

const userCols = `id,email,username,password_hash,full_name,qualification,dob,is_admin,created_at`

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY username`)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		var isAdmin int
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName, &u.Qualification, &u.DOB, &isAdmin, &u.CreatedAt); err != nil {
			return nil, storageErr("scan user", err)
		}
		u.IsAdmin = isAdmin != 0
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) HasAdmin(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_admin=1`).Scan(&n)
	if err != nil {
		return false, storageErr("has admin", err)
	}
	return n > 0, nil
}

// ---- subjects ----

func (s *SQLStore) CreateSubject(ctx context.Context, sub Subject) (Subject, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt == 0 {
		sub.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (id,name,description,created_at) VALUES ($1,$2,$3,$4)`,
		sub.ID, sub.Name, sub.Description, sub.CreatedAt)
	if err != nil {
		return Subject{}, storageErr("create subject", err)
	}
	return sub, nil
}

func (s *SQLStore) GetSubject(ctx context.Context, id string) (Subject, error) {
	var sub Subject
	err := s.db.QueryRowContext(ctx,
		`SELECT id,name,description,created_at FROM subjects WHERE id=$1`, id).
		Scan(&sub.ID, &sub.Name, &sub.Description, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, ErrNotFound
	}
	if err != nil {
		return Subject{}, storageErr("get subject", err)
	}
	return sub, nil
}

func (s *SQLStore) UpdateSubject(ctx context.Context, sub Subject) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subjects SET name=$1, description=$2 WHERE id=$3`,
		sub.Name, sub.Description, sub.ID)
	return checkAffected(res, err, "update subject")
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1`, id)
	return checkAffected(res, err, "delete subject")
}

func (s *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,description,created_at FROM subjects ORDER BY name`)
	if err != nil {
		return nil, storageErr("list subjects", err)
	}
	defer rows.Close()
	out := []Subject{}
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Description, &sub.CreatedAt); err != nil {
			return nil, storageErr("scan subject", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ---- chapters ----

func (s *SQLStore) CreateChapter(ctx context.Context, c Chapter) (Chapter, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chapters (id,name,description,subject_id,created_at) VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Name, c.Description, c.SubjectID, c.CreatedAt)
	if err != nil {
		return Chapter{}, storageErr("create chapter", err)
	}
	return c, nil
}

func (s *SQLStore) GetChapter(ctx context.Context, id string) (Chapter, error) {
	var c Chapter
	err := s.db.QueryRowContext(ctx,
		`SELECT id,name,description,subject_id,created_at FROM chapters WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.SubjectID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Chapter{}, ErrNotFound
	}
	if err != nil {
		return Chapter{}, storageErr("get chapter", err)
	}
	return c, nil
}

func (s *SQLStore) UpdateChapter(ctx context.Context, c Chapter) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chapters SET name=$1, description=$2, subject_id=$3 WHERE id=$4`,
		c.Name, c.Description, c.SubjectID, c.ID)
	return checkAffected(res, err, "update chapter")
}

func (s *SQLStore) DeleteChapter(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chapters WHERE id=$1`, id)
	return checkAffected(res, err, "delete chapter")
}

func (s *SQLStore) ListChaptersBySubject(ctx context.Context, subjectID string) ([]Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,name,description,subject_id,created_at FROM chapters WHERE subject_id=$1 ORDER BY name`, subjectID)
	if err != nil {
		return nil, storageErr("list chapters", err)
	}
	defer rows.Close()
	out := []Chapter{}
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SubjectID, &c.CreatedAt); err != nil {
			return nil, storageErr("scan chapter", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- quizzes ----

const quizCols = `id,title,chapter_id,date_of_quiz,time_duration,remarks,created_at`

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quizzes (`+quizCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		q.ID, q.Title, q.ChapterID, q.DateOfQuiz, q.TimeDuration, q.Remarks, q.CreatedAt)
	if err != nil {
		return Quiz{}, storageErr("create quiz", err)
	}
	return q, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	var q Quiz
	err := s.db.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes WHERE id=$1`, id).
		Scan(&q.ID, &q.Title, &q.ChapterID, &q.DateOfQuiz, &q.TimeDuration, &q.Remarks, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrNotFound
	}
	if err != nil {
		return Quiz{}, storageErr("get quiz", err)
	}
	return q, nil
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET title=$1, chapter_id=$2, date_of_quiz=$3, time_duration=$4, remarks=$5 WHERE id=$6`,
		q.Title, q.ChapterID, q.DateOfQuiz, q.TimeDuration, q.Remarks, q.ID)
	return checkAffected(res, err, "update quiz")
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	return checkAffected(res, err, "delete quiz")
}

func (s *SQLStore) queryQuizzes(ctx context.Context, query string, args ...any) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list quizzes", err)
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.ChapterID, &q.DateOfQuiz, &q.TimeDuration, &q.Remarks, &q.CreatedAt); err != nil {
			return nil, storageErr("scan quiz", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	return s.queryQuizzes(ctx, `SELECT `+quizCols+` FROM quizzes ORDER BY created_at, id`)
}

func (s *SQLStore) ListQuizzesByChapter(ctx context.Context, chapterID string) ([]Quiz, error) {
	return s.queryQuizzes(ctx, `SELECT `+quizCols+` FROM quizzes WHERE chapter_id=$1 ORDER BY date_of_quiz`, chapterID)
}

func (s *SQLStore) ListQuizzesFrom(ctx context.Context, date string, limit int) ([]Quiz, error) {
	return s.queryQuizzes(ctx,
		`SELECT `+quizCols+` FROM quizzes WHERE date_of_quiz>=$1 ORDER BY date_of_quiz, id LIMIT $2`, date, limit)
}

func (s *SQLStore) ListRecentQuizzes(ctx context.Context, limit int) ([]Quiz, error) {
	return s.queryQuizzes(ctx, `SELECT `+quizCols+` FROM quizzes ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

// ---- questions ----

const questionCols = `id,quiz_id,question_text,option_1,option_2,option_3,option_4,correct_option,created_at`

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (`+questionCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		q.ID, q.QuizID, q.QuestionText, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption, q.CreatedAt)
	if err != nil {
		return Question{}, storageErr("create question", err)
	}
	return q, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	var q Question
	err := s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id).
		Scan(&q.ID, &q.QuizID, &q.QuestionText, &q.Option1, &q.Option2, &q.Option3, &q.Option4, &q.CorrectOption, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, storageErr("get question", err)
	}
	return q, nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET question_text=$1, option_1=$2, option_2=$3, option_3=$4, option_4=$5, correct_option=$6 WHERE id=$7`,
		q.QuestionText, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption, q.ID)
	return checkAffected(res, err, "update question")
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	return checkAffected(res, err, "delete question")
}

func (s *SQLStore) ListQuestionsByQuiz(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE quiz_id=$1 ORDER BY created_at, id`, quizID)
	if err != nil {
		return nil, storageErr("list questions", err)
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.QuestionText, &q.Option1, &q.Option2, &q.Option3, &q.Option4, &q.CorrectOption, &q.CreatedAt); err != nil {
			return nil, storageErr("scan question", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ---- scores ----

const scoreCols = `id,quiz_id,user_id,total_scored,total_questions,answers_json,time_stamp`

// CreateScore checks for an existing (quiz, user) score and inserts inside
// one transaction. A unique index on (quiz_id, user_id) backs the check,
// so a concurrent submission that slips past it still loses on insert and
// is reported as AlreadyAttempted with the winner's score id.
func (s *SQLStore) CreateScore(ctx context.Context, sc Score) (Score, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.Timestamp == 0 {
		sc.Timestamp = time.Now().Unix()
	}
	if sc.Answers == nil {
		sc.Answers = AnswerMap{}
	}
	aj, err := json.Marshal(sc.Answers)
	if err != nil {
		return Score{}, storageErr("encode answers", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Score{}, storageErr("begin tx", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM scores WHERE quiz_id=$1 AND user_id=$2`, sc.QuizID, sc.UserID).Scan(&existingID)
	if err == nil {
		return Score{}, &AlreadyAttemptedError{ScoreID: existingID}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Score{}, storageErr("check score", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scores (`+scoreCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		sc.ID, sc.QuizID, sc.UserID, sc.TotalScored, sc.TotalQuestions, string(aj), sc.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return Score{}, s.loserResult(ctx, sc)
		}
		return Score{}, storageErr("insert score", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return Score{}, s.loserResult(ctx, sc)
		}
		return Score{}, storageErr("commit score", err)
	}
	return sc, nil
}

// loserResult resolves the winning score id after losing the insert race.
func (s *SQLStore) loserResult(ctx context.Context, sc Score) error {
	existing, err := s.GetScoreByUserQuiz(ctx, sc.UserID, sc.QuizID)
	if err != nil {
		return &AlreadyAttemptedError{}
	}
	return &AlreadyAttemptedError{ScoreID: existing.ID}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") || // postgres
		strings.Contains(msg, "sqlstate 23505")
}

func (s *SQLStore) getScore(ctx context.Context, query string, args ...any) (Score, error) {
	var sc Score
	var aj string
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&sc.ID, &sc.QuizID, &sc.UserID, &sc.TotalScored, &sc.TotalQuestions, &aj, &sc.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return Score{}, ErrNotFound
	}
	if err != nil {
		return Score{}, storageErr("get score", err)
	}
	if err := json.Unmarshal([]byte(aj), &sc.Answers); err != nil {
		sc.Answers = AnswerMap{}
	}
	return sc, nil
}

func (s *SQLStore) GetScore(ctx context.Context, id string) (Score, error) {
	return s.getScore(ctx, `SELECT `+scoreCols+` FROM scores WHERE id=$1`, id)
}

func (s *SQLStore) GetScoreByUserQuiz(ctx context.Context, userID, quizID string) (Score, error) {
	return s.getScore(ctx, `SELECT `+scoreCols+` FROM scores WHERE user_id=$1 AND quiz_id=$2`, userID, quizID)
}

func (s *SQLStore) queryScores(ctx context.Context, query string, args ...any) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list scores", err)
	}
	defer rows.Close()
	out := []Score{}
	for rows.Next() {
		var sc Score
		var aj string
		if err := rows.Scan(&sc.ID, &sc.QuizID, &sc.UserID, &sc.TotalScored, &sc.TotalQuestions, &aj, &sc.Timestamp); err != nil {
			return nil, storageErr("scan score", err)
		}
		if err := json.Unmarshal([]byte(aj), &sc.Answers); err != nil {
			sc.Answers = AnswerMap{}
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListScores(ctx context.Context) ([]Score, error) {
	return s.queryScores(ctx, `SELECT `+scoreCols+` FROM scores`)
}

func (s *SQLStore) ListScoresByQuiz(ctx context.Context, quizID string) ([]Score, error) {
	return s.queryScores(ctx, `SELECT `+scoreCols+` FROM scores WHERE quiz_id=$1`, quizID)
}

func (s *SQLStore) ListScoresByUser(ctx context.Context, userID string) ([]Score, error) {
	return s.queryScores(ctx, `SELECT `+scoreCols+` FROM scores WHERE user_id=$1 ORDER BY time_stamp DESC, id`, userID)
}

func (s *SQLStore) ListRecentScores(ctx context.Context, limit int) ([]Score, error) {
	return s.queryScores(ctx, `SELECT `+scoreCols+` FROM scores ORDER BY time_stamp DESC, id LIMIT $1`, limit)
}

// ---- aggregation support ----

func (s *SQLStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM subjects),
		(SELECT COUNT(*) FROM quizzes),
		(SELECT COUNT(*) FROM questions)`).
		Scan(&c.Users, &c.Subjects, &c.Quizzes, &c.Questions)
	if err != nil {
		return Counts{}, storageErr("counts", err)
	}
	return c, nil
}

func (s *SQLStore) SubjectNamesByQuiz(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT q.id, s.name
		FROM quizzes q
		JOIN chapters c ON c.id = q.chapter_id
		JOIN subjects s ON s.id = c.subject_id`)
	if err != nil {
		return nil, storageErr("subject names by quiz", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var quizID, name string
		if err := rows.Scan(&quizID, &name); err != nil {
			return nil, storageErr("scan subject name", err)
		}
		out[quizID] = name
	}
	return out, rows.Err()
}

// ---- helpers ----

func checkAffected(res sql.Result, err error, op string) error {
	if err != nil {
		return storageErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
