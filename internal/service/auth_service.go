// Package service holds the business logic between the HTTP handlers and
// the database. Multi-step mutations run inside a single transaction so
// partial application is impossible.
package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"workspace-service/internal/apperror"
	"workspace-service/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService implements registration, login and account lookups.
type AuthService struct {
	db           *gorm.DB
	verification *VerificationService
}

// NewAuthService creates an AuthService over the given database.
func NewAuthService(db *gorm.DB, verification *VerificationService) *AuthService {
	return &AuthService{db: db, verification: verification}
}

// RegistrationResult carries everything created by a successful registration.
type RegistrationResult struct {
	User      *model.User
	Workspace *model.Workspace
	Profile   *model.Profile
}

// ValidatePassword enforces the password policy: at least 8 characters
// with an upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperror.Validation("password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return apperror.Validation("password must contain upper case, lower case and a digit")
	}
	return nil
}

// WorkspaceNameFor derives the name of the workspace auto-created at
// registration. Falls back to the email local part when the user gave no
// display name.
func WorkspaceNameFor(name, email string) string {
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	return fmt.Sprintf("%s's Workspace", name)
}

// Register creates a user, their personal workspace and an ADMIN profile
// linking the two, atomically. The verification email is issued after the
// transaction commits and is best-effort.
func (s *AuthService) Register(email, password, name string) (*RegistrationResult, error) {
	if email == "" || password == "" {
		return nil, apperror.Validation("email and password are required")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	// Check if user already exists
	var existing model.User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperror.UserExists()
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
	}
	workspace := model.Workspace{Name: WorkspaceNameFor(name, email)}
	profile := model.Profile{
		Name:      name,
		Role:      model.RoleAdmin,
		IsDefault: true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		workspace.OwnerID = user.ID
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		profile.WorkspaceID = workspace.ID
		return tx.Create(&profile).Error
	})
	if err != nil {
		return nil, err
	}

	// Best effort: a verification failure must not undo the registration.
	s.verification.IssueBestEffort(&user)

	return &RegistrationResult{User: &user, Workspace: &workspace, Profile: &profile}, nil
}

// LoginResult carries the authenticated user and the workspace context the
// issued token is scoped to.
type LoginResult struct {
	User      *model.User
	Workspace *model.Workspace
	Profile   *model.Profile
}

// Login authenticates the credentials and resolves the user's default
// workspace context. Unknown email and wrong password produce the same
// error so accounts cannot be enumerated.
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperror.InvalidCredentials()
	}

	profile, err := s.EnsureDefaultProfile(&user)
	if err != nil {
		return nil, err
	}

	var workspace model.Workspace
	if err := s.db.First(&workspace, profile.WorkspaceID).Error; err != nil {
		return nil, err
	}

	return &LoginResult{User: &user, Workspace: &workspace, Profile: profile}, nil
}

// EnsureDefaultProfile resolves the user's default profile, repairing
// accounts that predate the multi-workspace model. It is idempotent:
//   - a default profile exists: returned as-is
//   - profiles exist but none is default: the oldest is promoted
//   - no profile exists at all: a workspace and ADMIN profile are provisioned
func (s *AuthService) EnsureDefaultProfile(user *model.User) (*model.Profile, error) {
	var profile model.Profile
	err := s.db.Where("user_id = ? AND is_default = ?", user.ID, true).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.db.Where("user_id = ?", user.ID).Order("id").First(&profile).Error
	if err == nil {
		// Promote the oldest profile: clear every flag, then set one.
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&model.Profile{}).Where("user_id = ?", user.ID).Update("is_default", false).Error; err != nil {
				return err
			}
			return tx.Model(&profile).Update("is_default", true).Error
		})
		if err != nil {
			return nil, err
		}
		profile.IsDefault = true
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Legacy account with no workspace at all: provision one.
	workspace := model.Workspace{
		Name:    WorkspaceNameFor(user.Name, user.Email),
		OwnerID: user.ID,
	}
	profile = model.Profile{
		UserID:    user.ID,
		Name:      user.Name,
		Role:      model.RoleAdmin,
		IsDefault: true,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		profile.WorkspaceID = workspace.ID
		return tx.Create(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetUser returns a single user by ID.
func (s *AuthService) GetUser(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, err
	}
	return &user, nil
}

// GetUserWithProfiles returns a user with their workspace memberships
// preloaded.
func (s *AuthService) GetUserWithProfiles(id uint) (*model.User, error) {
	var user model.User
	err := s.db.Preload("Profiles").Preload("Profiles.Workspace").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all user accounts.
func (s *AuthService) ListUsers() ([]model.User, error) {
	var users []model.User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
