package auth

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizmaster/quizmaster/internal/quiz"
)

// AdminSeed is the explicit first-run provisioning input. There is no
// built-in default password: without a configured seed, no admin account
// is created and the operator is told so.
type AdminSeed struct {
	Email    string
	Username string
	Password string
}

// EnsureAdmin provisions the first admin account if none exists yet.
func EnsureAdmin(ctx context.Context, store quiz.Store, seed AdminSeed) error {
	has, err := store.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	if seed.Email == "" || seed.Password == "" {
		log.Printf("no admin account exists; set ADMIN_EMAIL and ADMIN_PASSWORD to provision one")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), 12)
	if err != nil {
		return err
	}
	username := seed.Username
	if username == "" {
		username = "admin"
	}
	_, err = store.CreateUser(ctx, quiz.User{
		Email:        seed.Email,
		Username:     username,
		PasswordHash: string(hash),
		FullName:     "Administrator",
		IsAdmin:      true,
	})
	if err != nil {
		return err
	}
	log.Printf("provisioned admin account %s", seed.Email)
	return nil
}
