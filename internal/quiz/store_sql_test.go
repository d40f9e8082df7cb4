package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/quizmaster/quizmaster/internal/db"
	"github.com/quizmaster/quizmaster/internal/quiz"
)

// openStore opens a fresh in-memory sqlite database named after the test,
// with foreign keys on so cascade deletes behave like production.
func openStore(t *testing.T) *quiz.SQLStore {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return quiz.NewSQLStore(conn, "sqlite")
}

func seedUser(t *testing.T, s *quiz.SQLStore, email string) quiz.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), quiz.User{
		Email:        email,
		Username:     strings.SplitN(email, "@", 2)[0],
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// seedCatalog builds subject -> chapter -> quiz and returns the quiz.
func seedCatalog(t *testing.T, s *quiz.SQLStore, date string) quiz.Quiz {
	t.Helper()
	ctx := context.Background()
	sub, err := s.CreateSubject(ctx, quiz.Subject{Name: "Physics"})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	ch, err := s.CreateChapter(ctx, quiz.Chapter{Name: "Optics", SubjectID: sub.ID})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	qz, err := s.CreateQuiz(ctx, quiz.Quiz{
		Title: "Lenses", ChapterID: ch.ID, DateOfQuiz: date, TimeDuration: 30,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return qz
}

func TestCatalogCRUD(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	sub, err := s.CreateSubject(ctx, quiz.Subject{Name: "Maths", Description: "numbers"})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	if sub.ID == "" || sub.CreatedAt == 0 {
		t.Fatalf("create subject did not fill id/created_at: %+v", sub)
	}

	got, err := s.GetSubject(ctx, sub.ID)
	if err != nil || got.Name != "Maths" {
		t.Fatalf("get subject: %+v, %v", got, err)
	}

	sub.Name = "Applied Maths"
	if err := s.UpdateSubject(ctx, sub); err != nil {
		t.Fatalf("update subject: %v", err)
	}
	got, _ = s.GetSubject(ctx, sub.ID)
	if got.Name != "Applied Maths" {
		t.Fatalf("update not persisted: %+v", got)
	}

	ch, err := s.CreateChapter(ctx, quiz.Chapter{Name: "Algebra", SubjectID: sub.ID})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	chs, err := s.ListChaptersBySubject(ctx, sub.ID)
	if err != nil || len(chs) != 1 || chs[0].ID != ch.ID {
		t.Fatalf("list chapters: %+v, %v", chs, err)
	}

	qz, err := s.CreateQuiz(ctx, quiz.Quiz{Title: "Quadratics", ChapterID: ch.ID, DateOfQuiz: "2025-06-10", TimeDuration: 45})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	qn, err := s.CreateQuestion(ctx, quiz.Question{
		QuizID: qz.ID, QuestionText: "2+2?",
		Option1: "3", Option2: "4", Option3: "5", Option4: "6",
		CorrectOption: 2,
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	qn.CorrectOption = 3
	if err := s.UpdateQuestion(ctx, qn); err != nil {
		t.Fatalf("update question: %v", err)
	}
	back, err := s.GetQuestion(ctx, qn.ID)
	if err != nil || back.CorrectOption != 3 {
		t.Fatalf("get question: %+v, %v", back, err)
	}

	if err := s.DeleteQuestion(ctx, qn.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if _, err := s.GetQuestion(ctx, qn.ID); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("deleted question still found: %v", err)
	}
}

func TestUpdateMissingRowsNotFound(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.UpdateSubject(ctx, quiz.Subject{ID: "nope", Name: "x"}); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := s.DeleteQuiz(ctx, "nope"); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.GetUser(ctx, "nope"); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteSubjectCascades(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	qz := seedCatalog(t, s, "2025-06-10")
	qn, err := s.CreateQuestion(ctx, quiz.Question{
		QuizID: qz.ID, QuestionText: "q", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectOption: 1,
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	ch, err := s.GetChapter(ctx, qz.ChapterID)
	if err != nil {
		t.Fatalf("get chapter: %v", err)
	}

	if err := s.DeleteSubject(ctx, ch.SubjectID); err != nil {
		t.Fatalf("delete subject: %v", err)
	}

	if _, err := s.GetChapter(ctx, ch.ID); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("chapter survived cascade: %v", err)
	}
	if _, err := s.GetQuiz(ctx, qz.ID); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("quiz survived cascade: %v", err)
	}
	if _, err := s.GetQuestion(ctx, qn.ID); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("question survived cascade: %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	seedUser(t, s, "amy@example.com")
	_, err := s.CreateUser(ctx, quiz.User{Email: "amy@example.com", Username: "amy2", PasswordHash: "x"})
	if err == nil {
		t.Fatal("duplicate email accepted")
	}
	var se *quiz.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("want StorageError, got %T: %v", err, err)
	}
}

func TestHasAdmin(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	ok, err := s.HasAdmin(ctx)
	if err != nil || ok {
		t.Fatalf("empty db reports admin: %v, %v", ok, err)
	}
	if _, err := s.CreateUser(ctx, quiz.User{Email: "a@b.c", Username: "a", PasswordHash: "x", IsAdmin: true}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	ok, err = s.HasAdmin(ctx)
	if err != nil || !ok {
		t.Fatalf("admin not detected: %v, %v", ok, err)
	}
}

func TestCreateScoreSingleAttempt(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "amy@example.com")
	qz := seedCatalog(t, s, "2025-06-10")

	first, err := s.CreateScore(ctx, quiz.Score{QuizID: qz.ID, UserID: u.ID, TotalScored: 3, TotalQuestions: 4})
	if err != nil {
		t.Fatalf("first score: %v", err)
	}

	_, err = s.CreateScore(ctx, quiz.Score{QuizID: qz.ID, UserID: u.ID, TotalScored: 4, TotalQuestions: 4})
	var already *quiz.AlreadyAttemptedError
	if !errors.As(err, &already) {
		t.Fatalf("want AlreadyAttemptedError, got %v", err)
	}
	if already.ScoreID != first.ID {
		t.Fatalf("want winner id %s, got %s", first.ID, already.ScoreID)
	}

	// the first result stands
	kept, err := s.GetScoreByUserQuiz(ctx, u.ID, qz.ID)
	if err != nil || kept.TotalScored != 3 {
		t.Fatalf("winner overwritten: %+v, %v", kept, err)
	}
}

func TestScoreAnswersRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "amy@example.com")
	qz := seedCatalog(t, s, "2025-06-10")

	two := 2
	in := quiz.AnswerMap{"q1": &two, "q2": nil}
	sc, err := s.CreateScore(ctx, quiz.Score{QuizID: qz.ID, UserID: u.ID, TotalScored: 1, TotalQuestions: 2, Answers: in})
	if err != nil {
		t.Fatalf("create score: %v", err)
	}

	back, err := s.GetScore(ctx, sc.ID)
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if got := back.Answers["q1"]; got == nil || *got != 2 {
		t.Fatalf("answer q1 lost: %+v", back.Answers)
	}
	// unanswered stays present with a nil value
	if v, ok := back.Answers["q2"]; !ok || v != nil {
		t.Fatalf("unanswered q2 not preserved: %+v", back.Answers)
	}
}

func TestQuizAndScoreOrdering(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "amy@example.com")
	sub, _ := s.CreateSubject(ctx, quiz.Subject{Name: "S"})
	ch, _ := s.CreateChapter(ctx, quiz.Chapter{Name: "C", SubjectID: sub.ID})

	dates := []string{"2025-06-20", "2025-06-10", "2025-06-15", "2025-06-01"}
	ids := make(map[string]string, len(dates))
	for i, d := range dates {
		qz, err := s.CreateQuiz(ctx, quiz.Quiz{
			Title: d, ChapterID: ch.ID, DateOfQuiz: d, TimeDuration: 10, CreatedAt: int64(100 + i),
		})
		if err != nil {
			t.Fatalf("create quiz %s: %v", d, err)
		}
		ids[d] = qz.ID
	}

	up, err := s.ListQuizzesFrom(ctx, "2025-06-10", 2)
	if err != nil {
		t.Fatalf("list from: %v", err)
	}
	if len(up) != 2 || up[0].DateOfQuiz != "2025-06-10" || up[1].DateOfQuiz != "2025-06-15" {
		t.Fatalf("upcoming order wrong: %+v", up)
	}

	recent, err := s.ListRecentQuizzes(ctx, 2)
	if err != nil {
		t.Fatalf("recent quizzes: %v", err)
	}
	if len(recent) != 2 || recent[0].DateOfQuiz != "2025-06-01" || recent[1].DateOfQuiz != "2025-06-15" {
		t.Fatalf("recent quiz order wrong: %+v", recent)
	}

	for i, d := range []string{"2025-06-20", "2025-06-10", "2025-06-15"} {
		_, err := s.CreateScore(ctx, quiz.Score{
			QuizID: ids[d], UserID: u.ID, TotalScored: i, TotalQuestions: 3, Timestamp: int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("create score: %v", err)
		}
	}

	mine, err := s.ListScoresByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 3 || mine[0].Timestamp != 1002 || mine[2].Timestamp != 1000 {
		t.Fatalf("user scores not newest first: %+v", mine)
	}
}

func TestCountsAndSubjectNames(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	seedUser(t, s, "amy@example.com")
	qz := seedCatalog(t, s, "2025-06-10")
	if _, err := s.CreateQuestion(ctx, quiz.Question{
		QuizID: qz.ID, QuestionText: "q", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectOption: 1,
	}); err != nil {
		t.Fatalf("create question: %v", err)
	}

	c, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := quiz.Counts{Users: 1, Subjects: 1, Quizzes: 1, Questions: 1}
	if c != want {
		t.Fatalf("counts = %+v, want %+v", c, want)
	}

	names, err := s.SubjectNamesByQuiz(ctx)
	if err != nil {
		t.Fatalf("subject names: %v", err)
	}
	if names[qz.ID] != "Physics" {
		t.Fatalf("quiz not mapped to subject: %+v", names)
	}
}
