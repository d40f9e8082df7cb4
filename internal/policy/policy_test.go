package policy_test

import (
	"context"
	"testing"

	"github.com/quizmaster/quizmaster/internal/policy"
	"github.com/quizmaster/quizmaster/internal/quiz"
)

func TestCheckerRoles(t *testing.T) {
	c := policy.NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{policy.RoleUser, "catalog:view", true},
		{policy.RoleUser, "attempt:submit", true},
		{policy.RoleUser, "catalog:manage", false},
		{policy.RoleUser, "stats:view-all", false},
		{policy.RoleAdmin, "catalog:manage", true},
		{policy.RoleAdmin, "anything:at-all", true}, // wildcard
		{"", "catalog:view", false},
		{"ghost", "catalog:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}

	if !c.Any(policy.RoleUser, "catalog:manage", "score:view-own") {
		t.Error("Any should pass when one permission matches")
	}
	if c.Any(policy.RoleUser, "catalog:manage", "stats:view-all") {
		t.Error("Any should fail when none match")
	}
}

func TestCheckerPrefixPattern(t *testing.T) {
	c := policy.NewChecker(map[string][]string{"grader": {"score:*"}})
	if !c.Has("grader", "score:view-own") {
		t.Error("prefix pattern should match")
	}
	if c.Has("grader", "catalog:view") {
		t.Error("prefix pattern matched outside its prefix")
	}
}

func TestPredicates(t *testing.T) {
	admin := quiz.User{ID: "a1", IsAdmin: true}
	learner := quiz.User{ID: "u1"}
	other := quiz.User{ID: "u2"}
	score := quiz.Score{ID: "s1", UserID: "u1"}

	if policy.RoleFor(admin) != policy.RoleAdmin || policy.RoleFor(learner) != policy.RoleUser {
		t.Error("RoleFor mapping wrong")
	}

	if !policy.CanManageCatalog(admin) || policy.CanManageCatalog(learner) {
		t.Error("CanManageCatalog wrong")
	}

	if !policy.CanViewScore(learner, score) {
		t.Error("owner must see own score")
	}
	if !policy.CanViewScore(admin, score) {
		t.Error("admin must see any score")
	}
	if policy.CanViewScore(other, score) {
		t.Error("stranger must not see another user's score")
	}

	if !policy.CanAttempt(learner, quiz.Quiz{}) || !policy.CanAttempt(admin, quiz.Quiz{}) {
		t.Error("any authenticated user may attempt")
	}
	if policy.CanAttempt(quiz.User{}, quiz.Quiz{}) {
		t.Error("anonymous user may not attempt")
	}
}

func TestContextIdentity(t *testing.T) {
	ctx := policy.WithSubject(policy.WithRole(context.Background(), policy.RoleAdmin), "u1")
	if policy.RoleFromContext(ctx) != policy.RoleAdmin {
		t.Error("role lost in context")
	}
	if policy.SubjectFromContext(ctx) != "u1" {
		t.Error("subject lost in context")
	}
	if policy.RoleFromContext(context.Background()) != "" || policy.SubjectFromContext(context.Background()) != "" {
		t.Error("empty context should yield empty identity")
	}
}
