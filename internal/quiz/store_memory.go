package quiz

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is a map-backed Store for tests and dev. A single mutex
// makes CreateScore's check-then-insert atomic, matching the guarantee
// the SQL store gets from its transaction plus unique index.
type memoryStore struct {
	mu        sync.RWMutex
	users     map[string]User
	subjects  map[string]Subject
	chapters  map[string]Chapter
	quizzes   map[string]Quiz
	questions map[string]Question
	scores    map[string]Score
	seq       int64 // insertion order for stable listings
	order     map[string]int64
}

func NewInMemoryStore() Store {
	return &memoryStore{
		users:     map[string]User{},
		subjects:  map[string]Subject{},
		chapters:  map[string]Chapter{},
		quizzes:   map[string]Quiz{},
		questions: map[string]Question{},
		scores:    map[string]Score{},
		order:     map[string]int64{},
	}
}

func (m *memoryStore) nextSeq(id string) {
	m.seq++
	m.order[id] = m.seq
}

// ---- users ----

func (m *memoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	m.users[u.ID] = u
	m.nextSeq(u.ID)
	return u, nil
}

func (m *memoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memoryStore) ListUsers(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryStore) HasAdmin(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

// ---- subjects ----

func (m *memoryStore) CreateSubject(_ context.Context, s Subject) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt == 0 {
		s.CreatedAt = time.Now().Unix()
	}
	m.subjects[s.ID] = s
	m.nextSeq(s.ID)
	return s, nil
}

func (m *memoryStore) GetSubject(_ context.Context, id string) (Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) UpdateSubject(_ context.Context, s Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.subjects[s.ID]
	if !ok {
		return ErrNotFound
	}
	s.CreatedAt = old.CreatedAt
	m.subjects[s.ID] = s
	return nil
}

func (m *memoryStore) DeleteSubject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[id]; !ok {
		return ErrNotFound
	}
	delete(m.subjects, id)
	for cid, c := range m.chapters {
		if c.SubjectID == id {
			m.deleteChapterLocked(cid)
		}
	}
	return nil
}

func (m *memoryStore) ListSubjects(_ context.Context) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- chapters ----

func (m *memoryStore) CreateChapter(_ context.Context, c Chapter) (Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	m.chapters[c.ID] = c
	m.nextSeq(c.ID)
	return c, nil
}

func (m *memoryStore) GetChapter(_ context.Context, id string) (Chapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chapters[id]
	if !ok {
		return Chapter{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryStore) UpdateChapter(_ context.Context, c Chapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.chapters[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = old.CreatedAt
	m.chapters[c.ID] = c
	return nil
}

func (m *memoryStore) deleteChapterLocked(id string) {
	delete(m.chapters, id)
	for qid, q := range m.quizzes {
		if q.ChapterID == id {
			m.deleteQuizLocked(qid)
		}
	}
}

func (m *memoryStore) DeleteChapter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chapters[id]; !ok {
		return ErrNotFound
	}
	m.deleteChapterLocked(id)
	return nil
}

func (m *memoryStore) ListChaptersBySubject(_ context.Context, subjectID string) ([]Chapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Chapter{}
	for _, c := range m.chapters {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- quizzes ----

func (m *memoryStore) CreateQuiz(_ context.Context, q Quiz) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	m.quizzes[q.ID] = q
	m.nextSeq(q.ID)
	return q, nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) UpdateQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.quizzes[q.ID]
	if !ok {
		return ErrNotFound
	}
	q.CreatedAt = old.CreatedAt
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) deleteQuizLocked(id string) {
	delete(m.quizzes, id)
	for qid, q := range m.questions {
		if q.QuizID == id {
			delete(m.questions, qid)
		}
	}
	for sid, s := range m.scores {
		if s.QuizID == id {
			delete(m.scores, sid)
		}
	}
}

func (m *memoryStore) DeleteQuiz(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return ErrNotFound
	}
	m.deleteQuizLocked(id)
	return nil
}

func (m *memoryStore) listQuizzesLocked(filter func(Quiz) bool) []Quiz {
	out := []Quiz{}
	for _, q := range m.quizzes {
		if filter == nil || filter(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out
}

func (m *memoryStore) ListQuizzes(_ context.Context) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listQuizzesLocked(nil), nil
}

func (m *memoryStore) ListQuizzesByChapter(_ context.Context, chapterID string) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listQuizzesLocked(func(q Quiz) bool { return q.ChapterID == chapterID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateOfQuiz < out[j].DateOfQuiz })
	return out, nil
}

func (m *memoryStore) ListQuizzesFrom(_ context.Context, date string, limit int) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listQuizzesLocked(func(q Quiz) bool { return q.DateOfQuiz >= date })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateOfQuiz < out[j].DateOfQuiz })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) ListRecentQuizzes(_ context.Context, limit int) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listQuizzesLocked(nil)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- questions ----

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	m.questions[q.ID] = q
	m.nextSeq(q.ID)
	return q, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.questions[q.ID]
	if !ok {
		return ErrNotFound
	}
	q.QuizID = old.QuizID
	q.CreatedAt = old.CreatedAt
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

func (m *memoryStore) ListQuestionsByQuiz(_ context.Context, quizID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out, nil
}

// ---- scores ----

func (m *memoryStore) CreateScore(_ context.Context, s Score) (Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sc := range m.scores {
		if sc.QuizID == s.QuizID && sc.UserID == s.UserID {
			return Score{}, &AlreadyAttemptedError{ScoreID: sc.ID}
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Timestamp == 0 {
		s.Timestamp = time.Now().Unix()
	}
	if s.Answers == nil {
		s.Answers = AnswerMap{}
	}
	m.scores[s.ID] = s
	m.nextSeq(s.ID)
	return s, nil
}

func (m *memoryStore) GetScore(_ context.Context, id string) (Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scores[id]
	if !ok {
		return Score{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) GetScoreByUserQuiz(_ context.Context, userID, quizID string) (Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.scores {
		if s.UserID == userID && s.QuizID == quizID {
			return s, nil
		}
	}
	return Score{}, ErrNotFound
}

func (m *memoryStore) listScoresLocked(filter func(Score) bool) []Score {
	out := []Score{}
	for _, s := range m.scores {
		if filter == nil || filter(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out
}

func (m *memoryStore) ListScores(_ context.Context) ([]Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listScoresLocked(nil), nil
}

func (m *memoryStore) ListScoresByQuiz(_ context.Context, quizID string) ([]Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listScoresLocked(func(s Score) bool { return s.QuizID == quizID }), nil
}

func (m *memoryStore) ListScoresByUser(_ context.Context, userID string) ([]Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listScoresLocked(func(s Score) bool { return s.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (m *memoryStore) ListRecentScores(_ context.Context, limit int) ([]Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listScoresLocked(nil)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- aggregation support ----

func (m *memoryStore) Counts(_ context.Context) (Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Counts{
		Users:     len(m.users),
		Subjects:  len(m.subjects),
		Quizzes:   len(m.quizzes),
		Questions: len(m.questions),
	}, nil
}

func (m *memoryStore) SubjectNamesByQuiz(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]string{}
	for id, q := range m.quizzes {
		c, ok := m.chapters[q.ChapterID]
		if !ok {
			continue
		}
		s, ok := m.subjects[c.SubjectID]
		if !ok {
			continue
		}
		out[id] = s.Name
	}
	return out, nil
}
