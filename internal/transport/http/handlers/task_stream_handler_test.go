package handlers_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"github.com/vetclinic/aiadmin/internal/transport/http/dto"
	"github.com/vetclinic/aiadmin/internal/transport/http/handlers"
	"go.uber.org/zap/zaptest"
)

// pendingTasks reports one task that never leaves pending.
type pendingTasks struct {
	ports.TaskService
	lookups atomic.Int64
}

func (p *pendingTasks) GetTask(_ context.Context, id uint) (*domain.TaskRecord, error) {
	p.lookups.Add(1)
	return &domain.TaskRecord{ID: id, Status: domain.TaskStatusPending}, nil
}

func serveStream(t *testing.T, svc ports.TaskService) (string, <-chan struct{}) {
	t.Helper()
	h := handlers.NewTaskStreamHandler(svc, logger.Wrap(zaptest.NewLogger(t)), 10*time.Millisecond)
	exited := make(chan struct{})

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws/tasks/:id", websocket.New(func(c *websocket.Conn) {
		defer close(exited)
		h.Handle(c)
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String(), exited
}

func TestTaskStream_StopsPollingWhenClientLeaves(t *testing.T) {
	svc := &pendingTasks{}
	base, exited := serveStream(t, svc)

	conn, _, err := fws.DefaultDialer.Dial(base+"/ws/tasks/7", nil)
	require.NoError(t, err)

	var first dto.TaskUpdate
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, uint(7), first.ID)
	assert.Equal(t, domain.TaskStatusPending, first.Status)
	assert.False(t, first.Terminal)

	require.NoError(t, conn.Close())

	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		t.Fatal("stream kept polling after the client disconnected")
	}

	settled := svc.lookups.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, svc.lookups.Load())
}
