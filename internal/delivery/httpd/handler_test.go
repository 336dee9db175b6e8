package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository/repotest"
	"github.com/ilham-education/ilham-backend/internal/service"
	"github.com/ilham-education/ilham-backend/pkg/auth"
	"github.com/ilham-education/ilham-backend/pkg/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (discardPublisher) Close() error { return nil }

type testServer struct {
	repos  *repotest.Repositories
	tokens *auth.JWTManager
	router chi.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zerolog.Nop()
	r := repotest.New()
	events := discardPublisher{}
	tokens := auth.NewJWTManager(auth.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "ilham-test"})

	content := service.NewContentService(r.Tx, r.Content, r.Universities, nil, time.Minute, logger)
	services := Services{
		Applications: service.NewApplicationService(r.Tx, r.Applications, r.History, r.Students, r.Universities, r.Notifications, events, logger),
		Billing:      service.NewBillingService(r.Tx, r.Invoices, r.Payments, r.Applications, r.Students, r.Reminders, service.SettleAnyPayment, logger),
		Universities: service.NewUniversityService(r.Universities, content.Invalidate, logger),
		Content:      content,
	}

	h := NewHandler(services, tokens, validation.NewValidator(), Options{}, logger)
	router := chi.NewRouter()
	router.Use(Recovery(logger))
	h.RegisterRoutes(router)

	return &testServer{repos: r, tokens: tokens, router: router}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := s.tokens.Generate(userID, userID+"@ilham.test", role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) student(t *testing.T) *models.Student {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	user := &models.User{
		ID:         uuid.New().String(),
		Email:      uuid.New().String() + "@student.test",
		Role:       models.RoleStudent,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.repos.Users.Create(ctx, user))

	student := &models.Student{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  "Aisyah Rahman",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.repos.Students.Create(ctx, student))
	return student
}

func (s *testServer) university(t *testing.T, name string) *models.University {
	t.Helper()
	now := time.Now()
	u := &models.University{
		ID:        uuid.New().String(),
		Name:      name,
		Country:   "Malaysia",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.repos.Universities.Create(context.Background(), u))
	return u
}

type envelope struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	Data           json.RawMessage `json:"data"`
	Error          string          `json:"error"`
	Details        json.RawMessage `json:"details"`
	VerifyRequired bool            `json:"verify_required"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestAuthenticate(t *testing.T) {
	s := newTestServer(t)
	other := auth.NewJWTManager(auth.JWTConfig{Secret: "someone-else", Expiry: time.Hour})
	forged, err := other.Generate("u1", "u1@ilham.test", models.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{name: "missing header", header: "", message: "No token"},
		{name: "wrong scheme", header: "Basic abc", message: "Invalid token"},
		{name: "foreign signature", header: "Bearer " + forged, message: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/invoices", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, codeUnauthorized, env.Error)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestRequireRole(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/admin/invoices", s.token(t, "u1", models.RoleStudent), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied for role STUDENT", decodeEnvelope(t, rec).Message)

	rec = s.do(t, http.MethodGet, "/api/admin/invoices", s.token(t, "u2", models.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplyAndStatusFlow(t *testing.T) {
	s := newTestServer(t)
	student := s.student(t)
	uni := s.university(t, "Universiti Malaya")
	studentToken := s.token(t, student.UserID, models.RoleStudent)
	counselorToken := s.token(t, "counselor-1", models.RoleCounselor)

	rec := s.do(t, http.MethodPost, "/api/applications/apply", studentToken, models.ApplyRequest{UniversityID: uni.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app models.Application
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &app))
	assert.Equal(t, models.StatusApplied, app.Status)

	rec = s.do(t, http.MethodPost, "/api/applications/apply", studentToken, models.ApplyRequest{UniversityID: uni.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, codeDuplicate, env.Error)
	assert.Equal(t, "Student already has a Applied application to this university", env.Message)

	// students cannot move their own applications
	rec = s.do(t, http.MethodPost, "/api/applications/status", studentToken, models.SetStatusRequest{ApplicationID: app.ID, Status: "Approved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/applications/status", counselorToken, models.SetStatusRequest{ApplicationID: app.ID, Status: "Pending"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, decodeEnvelope(t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/applications/status", counselorToken, models.SetStatusRequest{
		ApplicationID: app.ID,
		Status:        "Rejected",
		Remark:        "Missing transcripts",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/applications/"+app.ID+"/history", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.ApplicationHistory
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusRejected, history[0].NewStatus)

	// a rejected application can be replaced by a fresh one
	rec = s.do(t, http.MethodPost, "/api/applications/apply", studentToken, models.ApplyRequest{UniversityID: uni.ID})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSetStatusUnknownApplication(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/admin/application/status", s.token(t, "admin", models.RoleAdmin), models.SetStatusRequest{
		ApplicationID: uuid.New().String(),
		Status:        "Approved",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, codeNotFound, env.Error)
	assert.Equal(t, "Application not found", env.Message)
}

func TestValidationFailure(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin", models.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/admin/invoice", admin, map[string]interface{}{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, codeValidation, env.Error)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Contains(t, string(env.Details), "application_id")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/invoice", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+admin)
	raw := httptest.NewRecorder()
	s.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
	assert.Equal(t, "Invalid request body", decodeEnvelope(t, raw).Message)
}

func TestInvoiceAndPayment(t *testing.T) {
	s := newTestServer(t)
	student := s.student(t)
	uni := s.university(t, "Monash Malaysia")
	admin := s.token(t, "admin", models.RoleAdmin)
	finance := s.token(t, "finance", models.RoleFinance)

	rec := s.do(t, http.MethodPost, "/api/admin/applications/create", admin, models.AdminCreateApplicationRequest{
		StudentID:    student.ID,
		UniversityID: uni.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app models.Application
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &app))

	rec = s.do(t, http.MethodPost, "/api/admin/invoice", admin, models.CreateInvoiceRequest{ApplicationID: app.ID, Amount: 1500})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var invoice models.Invoice
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &invoice))
	assert.Equal(t, models.InvoiceUnpaid, invoice.Status)

	rec = s.do(t, http.MethodPost, "/api/admin/invoice", admin, models.CreateInvoiceRequest{ApplicationID: app.ID, Amount: 900})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, codeDuplicate, env.Error)
	assert.JSONEq(t, `{"existing_id":"`+invoice.ID+`"}`, string(env.Details))

	// finance staff reach the payment endpoint but not the rest of admin
	rec = s.do(t, http.MethodGet, "/api/admin/invoices", finance, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/payment", finance, models.RecordPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    200,
		Method:    "Bank Transfer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.PaymentResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Equal(t, models.InvoicePaid, result.InvoiceStatus)

	rec = s.do(t, http.MethodPost, "/api/admin/payment", finance, models.RecordPaymentRequest{
		InvoiceID: uuid.New().String(),
		Amount:    200,
		Method:    "Cash",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicContent(t *testing.T) {
	s := newTestServer(t)
	s.university(t, "Taylor's University")
	admin := s.token(t, "admin", models.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/cms/admin/content", "", map[string]string{"hero_title": "Study abroad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cms/admin/content", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No updates provided", decodeEnvelope(t, rec).Message)

	rec = s.do(t, http.MethodPost, "/api/cms/admin/content", admin, map[string]string{"hero_title": "Study abroad"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/cms/public/content", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var content map[string]string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &content))
	assert.Equal(t, "Study abroad", content["hero_title"])

	rec = s.do(t, http.MethodGet, "/api/cms/public/universities", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Taylor's University")
}

func TestInternalErrorDetailsHiddenInProduction(t *testing.T) {
	failing := func(production bool) *httptest.ResponseRecorder {
		s := newTestServer(t)
		h := NewHandler(Services{}, s.tokens, validation.NewValidator(), Options{Production: production}, zerolog.Nop())
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		h.handleError(rec, req, assert.AnError)
		return rec
	}

	rec := failing(true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, codeDatabase, env.Error)
	assert.Empty(t, env.Details)

	rec = failing(false)
	assert.Contains(t, string(decodeEnvelope(t, rec).Details), assert.AnError.Error())
}

func TestHandleErrorVerificationRequired(t *testing.T) {
	h := NewHandler(Services{}, nil, validation.NewValidator(), Options{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	h.handleError(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), &service.VerificationRequiredError{Email: "a@b.test"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.VerifyRequired)
	assert.Contains(t, rec.Body.String(), `"email":"a@b.test"`)
}
