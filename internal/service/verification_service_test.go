package service

import (
	"testing"
	"time"

	"workspace-service/internal/apperror"
	"workspace-service/internal/model"
)

func TestVerifyConsumesToken(t *testing.T) {
	db, _, auth, _, _, verification := newTestServices(t)

	reg, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var token model.UserVerification
	if err := db.Where("user_id = ?", reg.User.ID).First(&token).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}

	status, err := verification.Verify(reg.User.ID, token.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if status != VerificationVerified {
		t.Fatalf("expected %s got %s", VerificationVerified, status)
	}

	var user model.User
	if err := db.First(&user, reg.User.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !user.EmailVerified {
		t.Fatalf("user should be marked verified")
	}

	// Single use: the consumed token short-circuits as already verified,
	// with no token lookup at all.
	status, err = verification.Verify(reg.User.ID, token.Token)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if status != VerificationAlreadyVerified {
		t.Fatalf("expected %s got %s", VerificationAlreadyVerified, status)
	}

	var remaining int64
	db.Model(&model.UserVerification{}).Where("user_id = ?", reg.User.ID).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("token should be deleted after use")
	}
}

func TestVerifyUnknownToken(t *testing.T) {
	_, _, auth, _, _, verification := newTestServices(t)

	reg, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = verification.Verify(reg.User.ID, "no-such-token")
	if appErr, ok := apperror.As(err); !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR got %v", err)
	}
}

func TestVerifyRejectsAnotherUsersToken(t *testing.T) {
	db, _, auth, _, _, verification := newTestServices(t)

	alice, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob, err := auth.Register("b@x.com", "Abcdef12", "Bob")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	var aliceToken model.UserVerification
	if err := db.Where("user_id = ?", alice.User.ID).First(&aliceToken).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}

	_, err = verification.Verify(bob.User.ID, aliceToken.Token)
	if appErr, ok := apperror.As(err); !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("token must belong to the verifying user, got %v", err)
	}
}

func TestVerifyExpiredRotatesOnce(t *testing.T) {
	db, mail, auth, _, _, verification := newTestServices(t)

	reg, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	sentAtRegistration := len(mail.verifications)

	var old model.UserVerification
	if err := db.Where("user_id = ?", reg.User.ID).First(&old).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	if err := db.Model(&old).Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("expire token: %v", err)
	}

	status, err := verification.Verify(reg.User.ID, old.Token)
	if err != nil {
		t.Fatalf("verify expired: %v", err)
	}
	if status != VerificationPending {
		t.Fatalf("expected %s got %s", VerificationPending, status)
	}

	// Exactly one replacement token and one new email.
	var tokens []model.UserVerification
	if err := db.Where("user_id = ?", reg.User.ID).Find(&tokens).Error; err != nil {
		t.Fatalf("load tokens: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected exactly 1 live token got %d", len(tokens))
	}
	if tokens[0].Token == old.Token {
		t.Fatalf("rotation must mint a fresh token")
	}
	if got := len(mail.verifications) - sentAtRegistration; got != 1 {
		t.Fatalf("expected exactly 1 new email got %d", got)
	}

	// The rotated-out token is permanently invalid.
	_, err = verification.Verify(reg.User.ID, old.Token)
	if appErr, ok := apperror.As(err); !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("old token must stay dead, got %v", err)
	}

	// The fresh token works.
	status, err = verification.Verify(reg.User.ID, tokens[0].Token)
	if err != nil || status != VerificationVerified {
		t.Fatalf("fresh token should verify, got %s %v", status, err)
	}
}

func TestResendRotatesToken(t *testing.T) {
	db, mail, auth, _, _, verification := newTestServices(t)

	reg, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var before model.UserVerification
	if err := db.Where("user_id = ?", reg.User.ID).First(&before).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}

	status, err := verification.Resend(reg.User.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if status != VerificationPending {
		t.Fatalf("expected %s got %s", VerificationPending, status)
	}

	var after model.UserVerification
	if err := db.Where("user_id = ?", reg.User.ID).First(&after).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	if after.Token == before.Token {
		t.Fatalf("resend must rotate the token")
	}
	if len(mail.verifications) != 2 {
		t.Fatalf("expected 2 verification emails got %d", len(mail.verifications))
	}
}

func TestResendShortCircuitsWhenVerified(t *testing.T) {
	db, mail, auth, _, _, verification := newTestServices(t)

	reg, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := db.Model(&model.User{}).Where("id = ?", reg.User.ID).Update("email_verified", true).Error; err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	sent := len(mail.verifications)

	status, err := verification.Resend(reg.User.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if status != VerificationAlreadyVerified {
		t.Fatalf("expected %s got %s", VerificationAlreadyVerified, status)
	}
	if len(mail.verifications) != sent {
		t.Fatalf("no email should be sent for verified accounts")
	}
}
