package service

import (
	"fmt"
	"testing"
	"time"

	"workspace-service/internal/mailer"
	"workspace-service/internal/model"
	"workspace-service/pkg/database"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// unique in-memory DB per test name to avoid leakage via shared cache
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeMailer records sends instead of delivering them.
type fakeMailer struct {
	verifications []string
	invitations   []string
	fail          bool
}

var _ mailer.Mailer = (*fakeMailer)(nil)

func (m *fakeMailer) SendVerificationEmail(to, name, token string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.verifications = append(m.verifications, to)
	return nil
}

func (m *fakeMailer) SendInvitationEmail(to, workspaceName, token string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.invitations = append(m.invitations, to)
	return nil
}

func newTestServices(t *testing.T) (*gorm.DB, *fakeMailer, *AuthService, *WorkspaceService, *InvitationService, *VerificationService) {
	t.Helper()
	db := setupTestDB(t)
	mail := &fakeMailer{}
	log := zap.NewNop()
	verification := NewVerificationService(db, mail, log, 24*time.Hour)
	auth := NewAuthService(db, verification)
	workspaces := NewWorkspaceService(db)
	invitations := NewInvitationService(db, mail, log, 7*24*time.Hour)
	return db, mail, auth, workspaces, invitations, verification
}

func seedUser(t *testing.T, db *gorm.DB, email, password, name string) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := model.User{Email: email, Password: string(hashed), Name: name}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func seedWorkspace(t *testing.T, db *gorm.DB, name string, ownerID uint) *model.Workspace {
	t.Helper()
	workspace := model.Workspace{Name: name, OwnerID: ownerID}
	if err := db.Create(&workspace).Error; err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return &workspace
}

func seedProfile(t *testing.T, db *gorm.DB, userID, workspaceID uint, role string, isDefault bool) *model.Profile {
	t.Helper()
	profile := model.Profile{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
		IsDefault:   isDefault,
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return &profile
}

func countDefaults(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.Profile{}).Where("user_id = ? AND is_default = ?", userID, true).Count(&n).Error; err != nil {
		t.Fatalf("count defaults: %v", err)
	}
	return n
}
