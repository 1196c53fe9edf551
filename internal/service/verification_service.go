package service

import (
	"errors"
	"time"

	"workspace-service/internal/apperror"
	"workspace-service/internal/mailer"
	"workspace-service/internal/model"
	"workspace-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Verification outcomes returned to the caller.
const (
	VerificationAlreadyVerified = "already_verified"
	VerificationVerified        = "verified"
	VerificationPending         = "reverification_pending"
)

// VerificationService manages the single-use email verification tokens.
type VerificationService struct {
	db     *gorm.DB
	mailer mailer.Mailer
	log    *zap.Logger
	ttl    time.Duration
}

// NewVerificationService creates a VerificationService.
func NewVerificationService(db *gorm.DB, m mailer.Mailer, log *zap.Logger, ttl time.Duration) *VerificationService {
	return &VerificationService{db: db, mailer: m, log: log, ttl: ttl}
}

// Issue replaces any live verification token for the user with a fresh one
// and sends it by email. The email send is best-effort; only a failed
// database write is an error.
func (s *VerificationService) Issue(user *model.User) (*model.UserVerification, error) {
	verification := model.UserVerification{
		UserID:    user.ID,
		Token:     model.GenerateSecureToken(),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.UserVerification{}).Error; err != nil {
			return err
		}
		return tx.Create(&verification).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerificationEmail(user.Email, user.Name, verification.Token); err != nil {
		prometheus.RecordEmail("verification", "failure")
		s.log.Error("Failed to send verification email",
			zap.String("email", user.Email),
			zap.Error(err))
	} else {
		prometheus.RecordEmail("verification", "success")
	}

	return &verification, nil
}

// IssueBestEffort issues a verification token and swallows any failure.
// Used by registration, where verification must never undo the signup.
func (s *VerificationService) IssueBestEffort(user *model.User) {
	if _, err := s.Issue(user); err != nil {
		s.log.Error("Failed to issue verification token",
			zap.Uint("user_id", user.ID),
			zap.Error(err))
	}
}

// Verify consumes a verification token for the given user. If the account
// is already verified that is reported without a token lookup. An expired
// token is rotated: the stale token is deleted, a fresh one is issued and
// mailed, and the caller is told reverification is pending.
func (s *VerificationService) Verify(userID uint, token string) (string, error) {
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.UserNotFound()
		}
		return "", err
	}

	// Deliberately the first check: no token lookup for verified accounts.
	if user.EmailVerified {
		return VerificationAlreadyVerified, nil
	}

	var verification model.UserVerification
	err := s.db.Where("token = ? AND user_id = ?", token, userID).First(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.Validation("invalid verification token")
		}
		return "", err
	}

	if verification.Expired() {
		prometheus.RecordVerificationOperation("rotate")
		if _, err := s.Issue(&user); err != nil {
			return "", err
		}
		return VerificationPending, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("email_verified", true).Error; err != nil {
			return err
		}
		return tx.Delete(&verification).Error
	})
	if err != nil {
		return "", err
	}
	return VerificationVerified, nil
}

// Resend rotates the user's verification token and sends a fresh email.
// Already verified accounts short-circuit without issuing anything.
func (s *VerificationService) Resend(userID uint) (string, error) {
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.UserNotFound()
		}
		return "", err
	}

	if user.EmailVerified {
		return VerificationAlreadyVerified, nil
	}

	if _, err := s.Issue(&user); err != nil {
		return "", err
	}
	return VerificationPending, nil
}
