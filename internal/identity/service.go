// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

// Package identity implements passwordless login with emailed one-time
// codes, plus the profile and user directory operations.
//
// Login flow:
//
//  1. Login(email) rate-limits the address, stores a bcrypt hash of a fresh
//     code under otp:{email} and queues an email on the send_otp topic.
//  2. Verify(email, code) consumes the code, finds or creates the user and
//     issues a session token.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/relaychat/internal/auth"
	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/messaging"
	"github.com/tomtom215/relaychat/internal/metrics"
	"github.com/tomtom215/relaychat/internal/models"
	"github.com/tomtom215/relaychat/internal/store"
)

var (
	// ErrInvalidInput is returned when a required field is missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited is returned when an address requested too many codes.
	ErrRateLimited = errors.New("too many login attempts")

	// ErrInvalidOTP is returned for a wrong, expired or already used code.
	ErrInvalidOTP = errors.New("invalid OTP")

	// ErrUserNotFound is returned when no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
)

const (
	otpSubject = "Your OTP Code"

	otpKeyPrefix       = "otp:"
	rateLimitKeyPrefix = "otp:ratelimit:"
	attemptsKeyPrefix  = "otp:attempts:"
)

// Publisher queues outbound mail jobs.
type Publisher interface {
	PublishJSON(ctx context.Context, topic string, payload interface{}) error
}

// Service implements the identity operations.
type Service struct {
	store     *store.Store
	publisher Publisher
	tokens    *auth.JWTManager
	cfg       config.OTPConfig

	// generateCode is swapped in tests.
	generateCode func(length int) (string, error)
}

// NewService creates the identity service.
func NewService(st *store.Store, pub Publisher, tokens *auth.JWTManager, cfg config.OTPConfig) *Service {
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	return &Service{
		store:        st,
		publisher:    pub,
		tokens:       tokens,
		cfg:          cfg,
		generateCode: randomDigits,
	}
}

// AuthResult is returned by operations that issue a fresh token.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login sends a one-time code to email.
func (s *Service) Login(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	count, err := s.store.IncrementEphemeral(ctx, rateLimitKeyPrefix+email, s.cfg.RateLimitWindow)
	if err != nil {
		metrics.RecordOTPRequest("error")
		return fmt.Errorf("rate limit %s: %w", email, err)
	}
	if s.cfg.MaxAttempts > 0 && count > s.cfg.MaxAttempts {
		metrics.RecordOTPRequest("rate_limited")
		logging.Ctx(ctx).Warn().Str("email", email).Int("attempts", count).Msg("OTP login rate limited")
		return ErrRateLimited
	}

	code, err := s.generateCode(s.cfg.Length)
	if err != nil {
		metrics.RecordOTPRequest("error")
		return fmt.Errorf("generate OTP: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		metrics.RecordOTPRequest("error")
		return fmt.Errorf("hash OTP: %w", err)
	}

	if err := s.store.PutEphemeral(ctx, otpKeyPrefix+email, hash, s.cfg.TTL); err != nil {
		metrics.RecordOTPRequest("error")
		return fmt.Errorf("store OTP: %w", err)
	}
	// A new code resets the guess counter for the old one.
	if err := s.store.DeleteEphemeral(ctx, attemptsKeyPrefix+email); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("email", email).Msg("failed to reset OTP attempts")
	}

	job := messaging.OTPMail{
		To:      email,
		Subject: otpSubject,
		Text:    fmt.Sprintf("Your OTP code is %s. It is valid for %s.", code, humanDuration(s.cfg.TTL)),
	}
	if err := s.publisher.PublishJSON(ctx, messaging.TopicSendOTP, job); err != nil {
		metrics.RecordOTPRequest("error")
		return fmt.Errorf("queue OTP mail: %w", err)
	}

	metrics.RecordOTPRequest("sent")
	logging.Ctx(ctx).Info().Str("email", email).Msg("OTP queued")
	return nil
}

// Verify checks code against the stored hash. On success the code is
// consumed and the user, created on first login, gets a new token.
func (s *Service) Verify(ctx context.Context, email, code string) (*AuthResult, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and OTP are required", ErrInvalidInput)
	}

	hash, err := s.store.GetEphemeral(ctx, otpKeyPrefix+email)
	if errors.Is(err, store.ErrNotFound) {
		metrics.RecordOTPVerification("invalid")
		return nil, ErrInvalidOTP
	}
	if err != nil {
		metrics.RecordOTPVerification("error")
		return nil, fmt.Errorf("load OTP: %w", err)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
		metrics.RecordOTPVerification("invalid")
		s.recordFailedGuess(ctx, email)
		return nil, ErrInvalidOTP
	}

	if err := s.store.DeleteEphemeral(ctx, otpKeyPrefix+email); err != nil {
		metrics.RecordOTPVerification("error")
		return nil, fmt.Errorf("consume OTP: %w", err)
	}
	_ = s.store.DeleteEphemeral(ctx, attemptsKeyPrefix+email) //nolint:errcheck // counter expires with the code

	user, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		metrics.RecordOTPVerification("error")
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		metrics.RecordOTPVerification("error")
		return nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.RecordOTPVerification("success")
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("user verified")
	return &AuthResult{User: user, Token: token}, nil
}

// recordFailedGuess burns the code after MaxAttempts wrong guesses.
func (s *Service) recordFailedGuess(ctx context.Context, email string) {
	if s.cfg.MaxAttempts <= 0 {
		return
	}
	n, err := s.store.IncrementEphemeral(ctx, attemptsKeyPrefix+email, s.cfg.TTL)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("email", email).Msg("failed to count OTP attempt")
		return
	}
	if n >= s.cfg.MaxAttempts {
		if err := s.store.DeleteEphemeral(ctx, otpKeyPrefix+email); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("email", email).Msg("failed to discard OTP")
			return
		}
		logging.Ctx(ctx).Warn().Str("email", email).Int("attempts", n).Msg("OTP discarded after repeated failures")
	}
}

func (s *Service) findOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user = &models.User{Email: email, Name: models.DefaultUserName(email)}
	err = s.store.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent verification for the same address.
		return s.store.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("user created")
	return user, nil
}

// Me returns the stored profile of userID.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.GetUser(ctx, userID)
}

// UpdateName renames userID and returns a token carrying the new name.
func (s *Service) UpdateName(ctx context.Context, userID, name string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	user, err := s.store.UpdateUser(ctx, userID, func(u *models.User) error {
		u.Name = name
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// ListUsers returns every registered user.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// randomDigits returns a code of length decimal digits without a leading zero.
func randomDigits(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		lo, span := int64(0), int64(10)
		if i == 0 {
			lo, span = 1, 9
		}
		n, err := rand.Int(rand.Reader, big.NewInt(span))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + lo + n.Int64()))
	}
	return b.String(), nil
}

func humanDuration(d time.Duration) string {
	m := int(d.Minutes())
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
