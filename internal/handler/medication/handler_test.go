package medication

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nayana519/PulseGuard/internal/interaction"
	"github.com/Nayana519/PulseGuard/internal/middleware"
	"github.com/Nayana519/PulseGuard/internal/repository/memory"
	medicationService "github.com/Nayana519/PulseGuard/internal/service/medication"
	"github.com/Nayana519/PulseGuard/pkg/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Fields  []string `json:"fields"`
	} `json:"error"`
}

type testServer struct {
	router  *gin.Engine
	patient uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	orch := interaction.NewOrchestrator(nil, nil, nil, logger.Nop())
	svc := medicationService.NewService(store, orch, nil, logger.Nop())

	r := gin.New()
	api := r.Group("/api/v1", middleware.Identity())
	NewHandler(svc).RegisterRoutes(api)
	return &testServer{router: r, patient: uuid.New()}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderXUserID, s.patient.String())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) add(t *testing.T, name string) (*httptest.ResponseRecorder, medicationService.AddResult) {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/medications", gin.H{
		"name": name, "dose_amount": 5, "frequency_hours": 24, "current_stock": 10,
	})
	var res medicationService.AddResult
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &res))
	}
	return w, res
}

func TestAddMedication_CreatedThenBlocked(t *testing.T) {
	s := newTestServer(t)

	w, res := s.add(t, "aspirin")
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, res.Medication)
	assert.Equal(t, "aspirin", res.Medication.Name)
	assert.Equal(t, interaction.VerdictAllow, res.Decision.Verdict)

	w, res = s.add(t, "warfarin")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Nil(t, res.Medication)
	assert.Equal(t, interaction.VerdictBlock, res.Decision.Verdict)
	assert.Equal(t, interaction.ReasonPharmacokineticOverlap, res.Decision.Reason)
	require.Len(t, res.Decision.Overlaps, 1)
	assert.Equal(t, "aspirin", res.Decision.Overlaps[0].Med2)
}

func TestAddMedication_ValidationIs400(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/medications", gin.H{"name": "aspirin", "dose_amount": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "frequency_hours")
}

func TestMissingIdentityIs401(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/medications", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDoseLoggingAndCurve(t *testing.T) {
	s := newTestServer(t)
	_, res := s.add(t, "metformin")
	require.NotNil(t, res.Medication)
	base := "/api/v1/medications/" + res.Medication.ID.String()

	w, _ := s.do(t, http.MethodPost, base+"/doses", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(t, http.MethodGet, base+"/doses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "taken", logs[0]["status"])

	w, env = s.do(t, http.MethodGet, base+"/curve?cycles=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var samples []map[string]float64
	require.NoError(t, json.Unmarshal(env.Data, &samples))
	assert.Len(t, samples, 2*25)

	w, _ = s.do(t, http.MethodGet, base+"/curve?cycles=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndDeactivate(t *testing.T) {
	s := newTestServer(t)
	_, res := s.add(t, "lisinopril")
	require.NotNil(t, res.Medication)
	path := "/api/v1/medications/" + res.Medication.ID.String()

	w, _ := s.do(t, http.MethodGet, "/api/v1/medications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/v1/medications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestCheckInteractionsAndOverlaps(t *testing.T) {
	s := newTestServer(t)
	s.add(t, "aspirin")

	w, env := s.do(t, http.MethodPost, "/api/v1/medications/check", gin.H{"name": "warfarin"})
	require.Equal(t, http.StatusOK, w.Code)
	var a interaction.Assessment
	require.NoError(t, json.Unmarshal(env.Data, &a))
	assert.Equal(t, interaction.VerdictBlock, a.Verdict)

	w, env = s.do(t, http.MethodGet, "/api/v1/medications/overlaps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"overlaps":[],"has_overlap":false}`, string(env.Data))
}
