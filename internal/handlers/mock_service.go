package handlers

import (
	"context"
	"net/http"
	"time"

	"zone_controller/internal/audit"
	"zone_controller/internal/models"
	"zone_controller/internal/override"
	"zone_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMonitoring struct {
	state  models.ZoneState
	err    error
	health service.HealthReport
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.ZoneState, error) {
	return m.state, m.err
}

func (m *mockMonitoring) Health(ctx context.Context) (service.HealthReport, error) {
	return m.health, m.err
}

type mockEventLog struct {
	resp      []models.ZoneEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ZoneEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastLimit = f.Limit
	return m.resp, m.err
}

type mockOverrides struct {
	applied   override.Applied
	applyErr  error
	cancelled bool
	cancelErr error
	status    service.OverrideStatus
	statusErr error

	lastApply    service.OverrideParams
	lastCancelBy string
}

func (m *mockOverrides) Apply(_ context.Context, p service.OverrideParams) (override.Applied, error) {
	m.lastApply = p
	return m.applied, m.applyErr
}

func (m *mockOverrides) Cancel(_ context.Context, by string) (bool, error) {
	m.lastCancelBy = by
	return m.cancelled, m.cancelErr
}

func (m *mockOverrides) Current(context.Context) (service.OverrideStatus, error) {
	return m.status, m.statusErr
}

type mockAudit struct {
	res audit.Result
	err error
}

func (m *mockAudit) Verify(context.Context) (audit.Result, error) {
	return m.res, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
