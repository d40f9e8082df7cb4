// Package stats computes the read-side dashboard summaries. Everything
// here is a snapshot: no writes, no isolation beyond what the store's
// reads give us.
package stats

import (
	"context"
	"sort"

	"github.com/quizmaster/quizmaster/internal/quiz"
)

// recentLimit caps every "top N" list on the dashboards.
const recentLimit = 5

// Source is the read-only slice of the data store the aggregator uses.
// Score->subject attribution comes from the store's one-shot join rather
// than per-score lookups.
type Source interface {
	Counts(ctx context.Context) (quiz.Counts, error)
	ListQuizzes(ctx context.Context) ([]quiz.Quiz, error)
	ListScores(ctx context.Context) ([]quiz.Score, error)
	ListRecentQuizzes(ctx context.Context, limit int) ([]quiz.Quiz, error)
	ListRecentScores(ctx context.Context, limit int) ([]quiz.Score, error)
	ListScoresByUser(ctx context.Context, userID string) ([]quiz.Score, error)
	ListQuizzesFrom(ctx context.Context, date string, limit int) ([]quiz.Quiz, error)
	SubjectNamesByQuiz(ctx context.Context) (map[string]string, error)
}

type Aggregator struct {
	src Source
}

func NewAggregator(src Source) *Aggregator { return &Aggregator{src: src} }

// QuizStat is one row of the admin dashboard's quiz ranking.
type QuizStat struct {
	Quiz     quiz.Quiz `json:"quiz"`
	AvgScore float64   `json:"avg_score"` // mean percentage, 0 with no attempts
	Attempts int       `json:"attempts"`
}

type Dashboard struct {
	quiz.Counts
	RecentQuizzes []quiz.Quiz  `json:"recent_quizzes"`
	RecentScores  []quiz.Score `json:"recent_scores"`
	QuizStats     []QuizStat   `json:"quiz_stats"`
}

type UserSummary struct {
	AvgPercentage    float64            `json:"avg_percentage"`
	CompletedQuizzes int                `json:"completed_quizzes"`
	CompletionRate   float64            `json:"completion_rate"`
	RecentScores     []quiz.Score       `json:"recent_scores"`
	UpcomingQuizzes  []quiz.Quiz        `json:"upcoming_quizzes"`
	SubjectAvg       map[string]float64 `json:"subject_avg"`
}

// DashboardStats builds the admin dashboard: entity counts, the five
// newest quizzes and scores, and every quiz's average percentage and
// attempt count, ranked by attempts descending (stable, so ties keep
// catalog order) and cut to five.
func (a *Aggregator) DashboardStats(ctx context.Context) (Dashboard, error) {
	counts, err := a.src.Counts(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	recentQuizzes, err := a.src.ListRecentQuizzes(ctx, recentLimit)
	if err != nil {
		return Dashboard{}, err
	}
	recentScores, err := a.src.ListRecentScores(ctx, recentLimit)
	if err != nil {
		return Dashboard{}, err
	}

	quizzes, err := a.src.ListQuizzes(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	scores, err := a.src.ListScores(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	byQuiz := map[string][]quiz.Score{}
	for _, s := range scores {
		byQuiz[s.QuizID] = append(byQuiz[s.QuizID], s)
	}

	qstats := make([]QuizStat, 0, len(quizzes))
	for _, q := range quizzes {
		qs := byQuiz[q.ID]
		st := QuizStat{Quiz: q, Attempts: len(qs)}
		if len(qs) > 0 {
			sum := 0.0
			for _, s := range qs {
				sum += s.Percentage()
			}
			st.AvgScore = quiz.Round2(sum / float64(len(qs)))
		}
		qstats = append(qstats, st)
	}
	sort.SliceStable(qstats, func(i, j int) bool { return qstats[i].Attempts > qstats[j].Attempts })
	if len(qstats) > recentLimit {
		qstats = qstats[:recentLimit]
	}

	return Dashboard{
		Counts:        counts,
		RecentQuizzes: recentQuizzes,
		RecentScores:  recentScores,
		QuizStats:     qstats,
	}, nil
}

// UserStats builds one learner's dashboard: overall average, completion
// rate against the whole catalog, recent scores, the next five scheduled
// quizzes, and a per-subject average percentage.
func (a *Aggregator) UserStats(ctx context.Context, userID, today string) (UserSummary, error) {
	scores, err := a.src.ListScoresByUser(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}
	counts, err := a.src.Counts(ctx)
	if err != nil {
		return UserSummary{}, err
	}
	upcoming, err := a.src.ListQuizzesFrom(ctx, today, recentLimit)
	if err != nil {
		return UserSummary{}, err
	}
	subjects, err := a.src.SubjectNamesByQuiz(ctx)
	if err != nil {
		return UserSummary{}, err
	}

	sum := 0.0
	subjectSum := map[string]float64{}
	subjectCount := map[string]int{}
	for _, s := range scores {
		p := s.Percentage()
		sum += p
		if name, ok := subjects[s.QuizID]; ok {
			subjectSum[name] += p
			subjectCount[name]++
		}
	}

	out := UserSummary{
		CompletedQuizzes: len(scores),
		RecentScores:     scores,
		UpcomingQuizzes:  upcoming,
		SubjectAvg:       map[string]float64{},
	}
	if len(scores) > recentLimit {
		out.RecentScores = scores[:recentLimit]
	}
	if len(scores) > 0 {
		out.AvgPercentage = quiz.Round2(sum / float64(len(scores)))
	}
	if counts.Quizzes > 0 {
		out.CompletionRate = quiz.Round2(float64(len(scores)) / float64(counts.Quizzes) * 100)
	}
	for name, total := range subjectSum {
		out.SubjectAvg[name] = quiz.Round2(total / float64(subjectCount[name]))
	}
	return out, nil
}
