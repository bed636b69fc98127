package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"govres/domain"
	"govres/infrastructure"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "govres.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, infrastructure.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type llmCall struct {
	System   string
	Messages []infrastructure.Message
}

// fakeLLM returns queued replies in order.
type fakeLLM struct {
	replies []string
	calls   []llmCall
}

func (f *fakeLLM) Complete(_ context.Context, system string, messages []infrastructure.Message) (string, error) {
	f.calls = append(f.calls, llmCall{System: system, Messages: messages})
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeLLM) queue(replies ...string) { f.replies = append(f.replies, replies...) }

type fakeJobs struct {
	jobs map[string]domain.Job
}

func (f *fakeJobs) Search(_ context.Context, params infrastructure.SearchParams) (infrastructure.SearchResult, error) {
	var res infrastructure.SearchResult
	for _, j := range f.jobs {
		res.Jobs = append(res.Jobs, j)
	}
	res.Total = len(res.Jobs)
	return res, nil
}

func (f *fakeJobs) GetByControlNumber(_ context.Context, controlNumber string) (domain.Job, error) {
	j, ok := f.jobs[controlNumber]
	if !ok {
		return domain.Job{}, fmt.Errorf("%w: posting %s", domain.ErrNotFound, controlNumber)
	}
	return j, nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, key)
	}
	return data, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://files.test/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

type published struct {
	Queue string
	Body  any
}

type fakePublisher struct {
	msgs   []published
	err    error
	onFail func()
}

func (f *fakePublisher) Publish(_ context.Context, queue string, v any) error {
	if f.err != nil {
		if f.onFail != nil {
			f.onFail()
		}
		return f.err
	}
	f.msgs = append(f.msgs, published{Queue: queue, Body: v})
	return nil
}

func ptr[T any](v T) *T { return &v }
