package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sujal-2301/SyncCanvasLab/internal/tasks"
	"github.com/sujal-2301/SyncCanvasLab/internal/worker"
)

type mockReaper struct {
	mock.Mock
	mu    sync.Mutex
	calls int
}

func (m *mockReaper) RequestReap(maxIdle time.Duration) bool {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Called(maxIdle).Bool(0)
}

func (m *mockReaper) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newReapTask(t *testing.T, maxIdle time.Duration) *asynq.Task {
	t.Helper()
	payload, err := tasks.NewRoomReapTask(maxIdle)
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeRoomReapIdle, payload)
}

func TestRoomReapHandler_QueuesReap(t *testing.T) {
	reaper := new(mockReaper)
	reaper.On("RequestReap", 10*time.Minute).Return(true).Once()
	h := worker.NewRoomReapHandler(reaper)

	err := h.ProcessTask(context.Background(), newReapTask(t, 10*time.Minute))

	assert.NoError(t, err)
	reaper.AssertExpectations(t)
}

func TestRoomReapHandler_HubBusy(t *testing.T) {
	reaper := new(mockReaper)
	reaper.On("RequestReap", mock.Anything).Return(false).Once()
	h := worker.NewRoomReapHandler(reaper)

	err := h.ProcessTask(context.Background(), newReapTask(t, time.Minute))

	assert.ErrorIs(t, err, worker.ErrReapNotQueued, "Hub 未接收时返回可重试的错误")
}

func TestRoomReapHandler_BadPayloadSkipsRetry(t *testing.T) {
	reaper := new(mockReaper)
	h := worker.NewRoomReapHandler(reaper)

	for _, payload := range []string{`not json`, `{"max_idle_seconds":0}`} {
		err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeRoomReapIdle, []byte(payload)))
		assert.ErrorIs(t, err, asynq.SkipRetry, payload)
	}
	reaper.AssertNotCalled(t, "RequestReap", mock.Anything)
}

func TestLocalScheduler_Ticks(t *testing.T) {
	reaper := new(mockReaper)
	reaper.On("RequestReap", 5*time.Second).Return(true)
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := worker.NewLocalScheduler(worker.NewRoomReapHandler(reaper), 10*time.Millisecond, 5*time.Second, log)
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool { return reaper.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	s.Shutdown()

	after := reaper.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, reaper.callCount(), "停止后不再触发")
}

func TestParseRoomReapPayload(t *testing.T) {
	payload, err := tasks.NewRoomReapTask(90 * time.Second)
	require.NoError(t, err)

	parsed, err := tasks.ParseRoomReapPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, parsed.MaxIdle())

	_, err = tasks.ParseRoomReapPayload([]byte(`{"max_idle_seconds":-1}`))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
