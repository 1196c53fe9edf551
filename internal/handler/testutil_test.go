package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"workspace-service/internal/mailer"
	"workspace-service/internal/middleware"
	"workspace-service/internal/service"
	"workspace-service/pkg/config"
	"workspace-service/pkg/database"
	"workspace-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeMailer records recipients and the last token sent to each.
type fakeMailer struct {
	verifications []string
	invitations   []string
	lastToken     string
}

var _ mailer.Mailer = (*fakeMailer)(nil)

func (m *fakeMailer) SendVerificationEmail(to, name, token string) error {
	m.verifications = append(m.verifications, to)
	m.lastToken = token
	return nil
}

func (m *fakeMailer) SendInvitationEmail(to, workspaceName, token string) error {
	m.invitations = append(m.invitations, to)
	m.lastToken = token
	return nil
}

// newTestServer wires the full route table against an in-memory database,
// mirroring the production router.
func newTestServer(t *testing.T) (*echo.Echo, *gorm.DB, *fakeMailer) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	jwtutil.Initialize(&config.JWTConfig{SigningKey: "handler-test-key", ExpirationHours: 1})

	mail := &fakeMailer{}
	log := zap.NewNop()

	verificationService := service.NewVerificationService(db, mail, log, 24*time.Hour)
	authService := service.NewAuthService(db, verificationService)
	workspaceService := service.NewWorkspaceService(db)
	invitationService := service.NewInvitationService(db, mail, log, 7*24*time.Hour)

	authHandler := NewAuthHandler(authService)
	userHandler := NewUserHandler(authService)
	workspaceHandler := NewWorkspaceHandler(workspaceService)
	invitationHandler := NewInvitationHandler(invitationService)
	verificationHandler := NewVerificationHandler(verificationService)

	resendLimiter := middleware.NewResendVerificationLimiter()
	t.Cleanup(resendLimiter.Stop)

	e := echo.New()

	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/invitations/accept", invitationHandler.Accept)

	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	users := api.Group("/users")
	users.GET("/me", userHandler.Me)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)

	api.POST("/verify-email", verificationHandler.Verify)
	api.POST("/resend-verification-email", verificationHandler.Resend, resendLimiter.Middleware())

	workspaces := api.Group("/workspaces")
	workspaces.POST("", workspaceHandler.Create)
	workspaces.GET("", workspaceHandler.List)
	workspaces.GET("/:id", workspaceHandler.Get)
	workspaces.DELETE("/:id", workspaceHandler.Delete)
	workspaces.POST("/switch", workspaceHandler.Switch)
	workspaces.DELETE("/:id/members/:user_id", workspaceHandler.RemoveMember)

	api.POST("/profiles/default", workspaceHandler.MakeProfileDefault)

	invitations := api.Group("/invitations")
	invitations.POST("", invitationHandler.Create)
	invitations.GET("", invitationHandler.List)
	invitations.DELETE("/:id", invitationHandler.Revoke)
	invitations.POST("/accept", invitationHandler.Accept)

	return e, db, mail
}

// doJSON performs a request against the test server. An empty token sends
// no Authorization header.
func doJSON(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// register signs a user up and returns their bearer token plus the data
// payload of the response.
func register(t *testing.T, e *echo.Echo, email, password, name string) (string, map[string]interface{}) {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/auth/register", "", echo.Map{
		"email":    email,
		"password": password,
		"name":     name,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201 got %d: %s", email, rec.Code, rec.Body.String())
	}
	data := decode(t, rec)["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("register %s: no token in response", email)
	}
	return token, data
}
