package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"govres/domain"
	"govres/infrastructure"
	"govres/usecase"
)

const control = "800000000"

type stubLLM struct{ replies []string }

func (s *stubLLM) Complete(context.Context, string, []infrastructure.Message) (string, error) {
	if len(s.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type stubJobs struct{ err error }

func (s *stubJobs) Search(context.Context, infrastructure.SearchParams) (infrastructure.SearchResult, error) {
	if s.err != nil {
		return infrastructure.SearchResult{}, s.err
	}
	return infrastructure.SearchResult{Total: 1, Jobs: []domain.Job{s.job()}}, nil
}

func (s *stubJobs) GetByControlNumber(_ context.Context, cn string) (domain.Job, error) {
	if cn != control {
		return domain.Job{}, fmt.Errorf("%w: posting %s", domain.ErrNotFound, cn)
	}
	return s.job(), nil
}

func (s *stubJobs) job() domain.Job {
	return domain.Job{ControlNumber: control, Title: "IT Specialist", Agency: "GSA"}
}

type stubStore struct{ objects map[string][]byte }

func (s *stubStore) Put(_ context.Context, key, _ string, data []byte) error {
	s.objects[key] = data
	return nil
}

func (s *stubStore) Get(_ context.Context, key string) ([]byte, error) {
	if d, ok := s.objects[key]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *stubStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.test/" + key, nil
}

type stubQueue struct{ queues []string }

func (s *stubQueue) Publish(_ context.Context, queue string, _ any) error {
	s.queues = append(s.queues, queue)
	return nil
}

type testServer struct {
	router *gin.Engine
	llm    *stubLLM
	jobs   *stubJobs
	store  *stubStore
	queue  *stubQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, infrastructure.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := &testServer{
		router: gin.New(),
		llm:    &stubLLM{},
		jobs:   &stubJobs{},
		store:  &stubStore{objects: map[string][]byte{}},
		queue:  &stubQueue{},
	}
	log := slog.New(slog.DiscardHandler)
	cfg := infrastructure.Config{
		IdentityHeader: "X-User-Id",
		EmailHeader:    "X-User-Email",
		MaxUploadBytes: 1024,
	}
	NewHTTPHandler(s.router, Services{
		Ally:       usecase.NewAlly(db, s.llm, s.jobs, log),
		Identity:   usecase.NewIdentity(db, s.queue, []string{"admin@example.gov"}, log),
		Resumes:    usecase.NewResumes(db, s.store, s.queue, cfg.MaxUploadBytes, log),
		PastJobs:   usecase.NewPastJobs(db, domain.PastJobTypeJob),
		Volunteers: usecase.NewPastJobs(db, domain.PastJobTypeVolunteer),
		Education:  usecase.NewEducation(db),
		Awards:     usecase.NewAwards(db),
	}, cfg, log)
	return s
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Id", user)
		req.Header.Set("X-User-Email", user+"@example.gov")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, user, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-Id", user)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMissingIdentityHeader(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "X-User-Id")
}

func TestMe(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/me", "jane", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[domain.User](t, w)
	assert.Equal(t, "jane", me.ID)
	assert.Equal(t, "jane@example.gov", me.Email)
	assert.NotNil(t, me.LastLoginAt)

	w = s.do(t, http.MethodPut, "/api/me", "jane", gin.H{"name": "Jane Doe", "is_admin": true})
	require.Equal(t, http.StatusOK, w.Code)
	me = decode[domain.User](t, w)
	assert.Equal(t, "Jane Doe", me.Name)
	assert.False(t, me.IsAdmin)
}

func TestProfileRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/past-jobs", "jane", gin.H{"title": "Analyst"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pj := decode[domain.PastJob](t, w)
	assert.Equal(t, domain.PastJobTypeJob, pj.Type)

	w = s.do(t, http.MethodPut, "/api/past-jobs/"+pj.ID, "jane", gin.H{"organization": "GSA"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[domain.PastJob](t, w)
	assert.Equal(t, "Analyst", updated.Title)
	assert.Equal(t, "GSA", updated.Organization)

	w = s.do(t, http.MethodGet, "/api/past-jobs/"+pj.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/volunteers/"+pj.ID, "jane", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/past-jobs", "jane", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.PastJob](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/past-jobs/"+pj.ID+"/qualifications", "jane", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/awards", "jane", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/api/past-jobs/"+pj.ID, "jane", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestApplicationRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/applications", "jane", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/applications", "jane", gin.H{"control_number": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/applications", "jane", gin.H{"control_number": control})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decode[domain.Application](t, w)

	w = s.do(t, http.MethodGet, "/api/applications/"+app.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/applications/"+app.ID+"/steps/bogus", "jane", gin.H{"completed": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/api/applications/"+app.ID+"/steps/education", "jane", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/api/applications/"+app.ID+"/steps/education", "jane", gin.H{"completed": true})
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[usecase.StepsView](t, w)
	assert.True(t, view.Steps[4].Completed)

	s.llm.replies = []string{"sorry, no JSON today"}
	w = s.do(t, http.MethodPost, "/api/applications/"+app.ID+"/keywords", "jane", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	s.llm.replies = []string{`{"keywords": ["Networking", "Security"]}`}
	w = s.do(t, http.MethodPost, "/api/applications/"+app.ID+"/keywords", "jane", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"keywords": ["Networking", "Security"]}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/qualifications/missing/paragraph", "jane", gin.H{
		"messages": []gin.H{{"role": "robot", "content": "hi"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/applications/"+app.ID+"/resume", "jane", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "IT Specialist")

	w = s.do(t, http.MethodDelete, "/api/applications/"+app.ID, "jane", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestConfirmQualificationParagraphOnlyKeepsDecision(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/applications", "jane", gin.H{"control_number": control})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decode[domain.Application](t, w)

	s.llm.replies = []string{
		`{"keywords": ["Security"]}`,
		`{"topics": [{"title": "Security", "description": "Protecting systems", "keywords": ["Security"]}]}`,
	}
	w = s.do(t, http.MethodPost, "/api/applications/"+app.ID+"/topics", "jane", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	topics := decode[struct {
		Topics []domain.Topic `json:"topics"`
	}](t, w).Topics
	require.Len(t, topics, 1)

	w = s.do(t, http.MethodPost, "/api/past-jobs", "jane", gin.H{"title": "Analyst"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pj := decode[domain.PastJob](t, w)

	s.llm.replies = []string{`{"matches": [{"topic_id": "` + topics[0].ID + `", "evidence": "audits"}]}`}
	w = s.do(t, http.MethodPost, "/api/applications/"+app.ID+"/past-jobs/"+pj.ID+"/match", "jane", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quals := decode[struct {
		Qualifications []domain.Qualification `json:"qualifications"`
	}](t, w).Qualifications
	require.Len(t, quals, 1)

	w = s.do(t, http.MethodPut, "/api/qualifications/"+quals[0].ID, "jane", gin.H{"paragraph": "Ran audits.", "user_confirmed": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[domain.Qualification](t, w).UserConfirmed)

	w = s.do(t, http.MethodPut, "/api/qualifications/"+quals[0].ID, "jane", gin.H{"paragraph": "Ran 40 audits."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	q := decode[domain.Qualification](t, w)
	assert.True(t, q.UserConfirmed)
	assert.Equal(t, "Ran 40 audits.", q.Paragraph)
}

func TestSearchUpstreamFailure(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/jobs/search?keyword=security&page=1", "jane", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[infrastructure.SearchResult](t, w).Total)

	s.jobs.err = fmt.Errorf("%w: status 503", domain.ErrUpstream)
	w = s.do(t, http.MethodGet, "/api/jobs/search?keyword=security", "jane", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestResumeRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.upload(t, "jane", "resume.txt", []byte("Jane Doe"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	file := decode[domain.ResumeFile](t, w)
	assert.Equal(t, []string{infrastructure.QueueResumeProcessing}, s.queue.queues)

	w = s.upload(t, "jane", "photo.png", []byte("png"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	w = s.upload(t, "jane", "huge.txt", bytes.Repeat([]byte("a"), 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = s.do(t, http.MethodGet, "/api/resumes/"+file.ID, "jane", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://files.test/")

	w = s.do(t, http.MethodGet, "/api/resumes", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.ResumeFile](t, w))

	w = s.do(t, http.MethodDelete, "/api/resumes/"+file.ID, "jane", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/admin/users", "jane", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error": "forbidden: admin only"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/admin/users", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.User](t, w), 2)

	w = s.do(t, http.MethodPut, "/api/admin/users/jane", "admin", gin.H{"is_admin": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.User](t, w).IsAdmin)

	w = s.do(t, http.MethodDelete, "/api/admin/users/jane", "admin", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(t, http.MethodPost, "/api/identity/events", "admin", gin.H{"type": "bogus", "user_id": "jane"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/identity/events", "admin", gin.H{
		"type": infrastructure.IdentityEventPostConfirmation, "user_id": "carol", "email": "carol@example.gov",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	assert.Equal(t, []string{infrastructure.QueueIdentityEvents, infrastructure.QueueIdentityEvents}, s.queue.queues)
}
