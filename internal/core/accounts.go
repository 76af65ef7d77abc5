package core

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jo-hoe/gophotos/internal/backend/auth"
	"github.com/jo-hoe/gophotos/internal/backend/database"
)

const (
	minUsernameLength = 6
	maxUsernameLength = 50
	minPasswordLength = 6
	// bcrypt ignores input past 72 bytes
	maxPasswordBytes = 72
	maxEmailLength   = 100
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

func validateRegistration(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return fmt.Errorf("%w: username, password and email are required", ErrValidation)
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return fmt.Errorf("%w: username must be between %d and %d characters", ErrValidation, minUsernameLength, maxUsernameLength)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must not exceed %d bytes", ErrValidation, maxPasswordBytes)
	}
	if len(email) > maxEmailLength || !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

// Register creates a user account after checking input and uniqueness.
func (service *CoreService) Register(ctx context.Context, username, email, password string) (int64, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateRegistration(username, email, password); err != nil {
		return 0, err
	}

	existing, err := service.databaseService.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if existing != nil {
		return 0, fmt.Errorf("%w: username is already registered", ErrConflict)
	}
	existing, err = service.databaseService.GetUserByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if existing != nil {
		return 0, fmt.Errorf("%w: email is already registered", ErrConflict)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	userID, err := service.databaseService.CreateUser(ctx, &database.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	slog.Info("Register: user created", "user_id", userID)
	return userID, nil
}

// Login checks credentials and returns a signed bearer token.
func (service *CoreService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := service.databaseService.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return "", fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}

	token, err := service.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return token, nil
}

// Tokens exposes the issuer used to verify bearer tokens.
func (service *CoreService) Tokens() *auth.TokenIssuer {
	return service.tokens
}
