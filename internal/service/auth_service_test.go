package service

import (
	"testing"

	"workspace-service/internal/apperror"
	"workspace-service/internal/model"

	"golang.org/x/crypto/bcrypt"
)

func TestRegisterCreatesUserWorkspaceProfile(t *testing.T) {
	db, mail, auth, _, _, _ := newTestServices(t)

	result, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if result.Workspace.Name != "Alice's Workspace" {
		t.Fatalf("expected workspace %q got %q", "Alice's Workspace", result.Workspace.Name)
	}
	if result.Profile.Role != model.RoleAdmin {
		t.Fatalf("expected ADMIN profile got %s", result.Profile.Role)
	}
	if !result.Profile.IsDefault {
		t.Fatalf("expected registration profile to be default")
	}
	if result.Workspace.OwnerID != result.User.ID {
		t.Fatalf("expected workspace owned by the new user")
	}

	// Password stored only as a hash
	var stored model.User
	if err := db.First(&stored, result.User.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.Password == "Abcdef12" {
		t.Fatalf("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Abcdef12")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	// Verification token issued and email dispatched
	var tokens int64
	db.Model(&model.UserVerification{}).Where("user_id = ?", result.User.ID).Count(&tokens)
	if tokens != 1 {
		t.Fatalf("expected 1 verification token got %d", tokens)
	}
	if len(mail.verifications) != 1 || mail.verifications[0] != "a@x.com" {
		t.Fatalf("expected one verification email to a@x.com got %v", mail.verifications)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, _, auth, _, _, _ := newTestServices(t)

	if _, err := auth.Register("a@x.com", "Abcdef12", "Alice"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := auth.Register("a@x.com", "Zyxwvu98", "Imposter")
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeUserExists {
		t.Fatalf("expected USER_EXISTS got %v", err)
	}
	if appErr.Status != 409 {
		t.Fatalf("expected 409 got %d", appErr.Status)
	}
}

func TestRegisterRejectsWeakPasswords(t *testing.T) {
	db, _, auth, _, _, _ := newTestServices(t)

	cases := []string{
		"Ab1",        // too short
		"abcdefg1",   // no upper case
		"ABCDEFG1",   // no lower case
		"Abcdefgh",   // no digit
	}
	for _, password := range cases {
		_, err := auth.Register("weak@x.com", password, "Weak")
		appErr, ok := apperror.As(err)
		if !ok || appErr.Code != apperror.CodeValidation {
			t.Fatalf("password %q: expected VALIDATION_ERROR got %v", password, err)
		}
	}

	// Validation runs before any mutation
	var users int64
	db.Model(&model.User{}).Count(&users)
	if users != 0 {
		t.Fatalf("expected no users persisted got %d", users)
	}
}

func TestRegisterEmailFailureDoesNotRollBack(t *testing.T) {
	db, mail, auth, _, _, _ := newTestServices(t)
	mail.fail = true

	result, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register should survive email failure: %v", err)
	}

	var users int64
	db.Model(&model.User{}).Where("id = ?", result.User.ID).Count(&users)
	if users != 1 {
		t.Fatalf("expected registration to persist")
	}
}

func TestLoginUniformInvalidCredentials(t *testing.T) {
	_, _, auth, _, _, _ := newTestServices(t)

	if _, err := auth.Register("a@x.com", "Abcdef12", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, unknownErr := auth.Login("nobody@x.com", "Abcdef12")
	_, wrongErr := auth.Login("a@x.com", "WrongPass1")

	unknown, ok1 := apperror.As(unknownErr)
	wrong, ok2 := apperror.As(wrongErr)
	if !ok1 || !ok2 {
		t.Fatalf("expected typed errors, got %v and %v", unknownErr, wrongErr)
	}
	if unknown.Code != apperror.CodeInvalidCredentials || wrong.Code != apperror.CodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS for both, got %s and %s", unknown.Code, wrong.Code)
	}
	if unknown.Message != wrong.Message || unknown.Status != wrong.Status {
		t.Fatalf("unknown-email and wrong-password responses must be identical")
	}
}

func TestLoginResolvesDefaultProfile(t *testing.T) {
	_, _, auth, workspaces, _, _ := newTestServices(t)

	reg, err := auth.Register("a@x.com", "Abcdef12", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// A second workspace must not steal the login context.
	if _, _, err := workspaces.Create(reg.User.ID, "Side Project"); err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	result, err := auth.Login("a@x.com", "Abcdef12")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Workspace.ID != reg.Workspace.ID {
		t.Fatalf("expected default workspace %d got %d", reg.Workspace.ID, result.Workspace.ID)
	}
	if result.Profile.ID != reg.Profile.ID {
		t.Fatalf("expected default profile %d got %d", reg.Profile.ID, result.Profile.ID)
	}
}

func TestLoginBackfillsLegacyAccount(t *testing.T) {
	db, _, auth, _, _, _ := newTestServices(t)

	// A legacy account predating the multi-workspace model: no profile at all.
	user := seedUser(t, db, "legacy@x.com", "Abcdef12", "Legacy")

	result, err := auth.Login("legacy@x.com", "Abcdef12")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Profile.Role != model.RoleAdmin || !result.Profile.IsDefault {
		t.Fatalf("expected backfilled default ADMIN profile, got %+v", result.Profile)
	}
	if result.Workspace.Name != "Legacy's Workspace" {
		t.Fatalf("unexpected backfilled workspace name %q", result.Workspace.Name)
	}

	// Idempotent: a second login reuses the provisioned pair.
	again, err := auth.Login("legacy@x.com", "Abcdef12")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if again.Workspace.ID != result.Workspace.ID {
		t.Fatalf("backfill ran twice")
	}
	var workspaceCount int64
	db.Model(&model.Workspace{}).Where("owner_id = ?", user.ID).Count(&workspaceCount)
	if workspaceCount != 1 {
		t.Fatalf("expected 1 backfilled workspace got %d", workspaceCount)
	}
}

func TestEnsureDefaultPromotesExistingProfile(t *testing.T) {
	db, _, auth, _, _, _ := newTestServices(t)

	user := seedUser(t, db, "a@x.com", "Abcdef12", "Alice")
	workspace := seedWorkspace(t, db, "Team", user.ID)
	profile := seedProfile(t, db, user.ID, workspace.ID, model.RoleUser, false)

	resolved, err := auth.EnsureDefaultProfile(user)
	if err != nil {
		t.Fatalf("ensure default: %v", err)
	}
	if resolved.ID != profile.ID {
		t.Fatalf("expected existing profile promoted, got %d", resolved.ID)
	}
	if n := countDefaults(t, db, user.ID); n != 1 {
		t.Fatalf("expected exactly 1 default got %d", n)
	}
}

func TestDuplicateProfilePairRejected(t *testing.T) {
	db, _, _, _, _, _ := newTestServices(t)

	user := seedUser(t, db, "a@x.com", "Abcdef12", "Alice")
	workspace := seedWorkspace(t, db, "Team", user.ID)
	seedProfile(t, db, user.ID, workspace.ID, model.RoleUser, true)

	dup := model.Profile{UserID: user.ID, WorkspaceID: workspace.ID, Role: model.RoleAdmin}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique (workspace, user) violation")
	}
}
