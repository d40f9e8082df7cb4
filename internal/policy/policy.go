// Package policy decides who may see or change what. The predicates are
// stateless and evaluated per request; availability gating (quiz dates,
// prior attempts) belongs to the attempt engine, not here.
package policy

import "github.com/quizmaster/quizmaster/internal/quiz"

// RoleFor maps a stored user onto the permission table's roles.
func RoleFor(u quiz.User) string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// CanManageCatalog gates the subject/chapter/quiz/question admin surface.
func CanManageCatalog(u quiz.User) bool {
	return u.IsAdmin
}

// CanViewScore allows the score's owner and admins.
func CanViewScore(u quiz.User, s quiz.Score) bool {
	return u.ID == s.UserID || u.IsAdmin
}

// CanAttempt is true for any authenticated user, admins included.
// Whether the quiz is open is the attempt engine's call.
func CanAttempt(u quiz.User, q quiz.Quiz) bool {
	return u.ID != ""
}
