package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, kv))
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.add("DEBUG", msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...any)  { l.add("WARN", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.add("ERROR", msg, kv) }

func (l *recordingLogger) withPrefix(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") {
			out = append(out, line)
		}
	}
	return out
}

type viewer struct {
	mapID string
}

func newDispatcher(t *testing.T) (*Dispatcher[*viewer], *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	d, err := New[*viewer](logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, logger
}

// gate blocks a queue worker until released.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gate) handler(*viewer, Event) (any, error) {
	g.started <- struct{}{}
	<-g.release
	return nil, nil
}

func TestDispatch_Sync(t *testing.T) {
	d, _ := newDispatcher(t)
	d.Register("navigate", func(v *viewer, e Event) (any, error) {
		var args struct {
			MapID string `json:"mapId"`
		}
		if err := e.Decode(&args); err != nil {
			return nil, err
		}
		v.mapID = args.MapID
		return "ok", nil
	})

	v := &viewer{}
	result, err := d.Dispatch(v, Event{Command: "navigate", Payload: json.RawMessage(`{"mapId":"customs"}`)})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "customs", v.mapID)

	_, err = d.Dispatch(v, Event{Command: "navigate", Payload: json.RawMessage(`{"mapId":4}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode navigate payload")
}

func TestDispatch_Timestamp(t *testing.T) {
	d, _ := newDispatcher(t)
	var got []time.Time
	d.Register("ping", func(_ *viewer, e Event) (any, error) {
		got = append(got, e.Timestamp)
		return nil, nil
	})

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	_, _ = d.Dispatch(nil, Event{Command: "ping"})
	_, _ = d.Dispatch(nil, Event{Command: "ping", Timestamp: fixed})

	require.Len(t, got, 2)
	assert.False(t, got[0].IsZero())
	assert.Equal(t, fixed, got[1])
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, _ := newDispatcher(t)
	_, err := d.Dispatch(nil, Event{Command: "teleport"})
	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.EqualError(t, err, "unknown command: teleport")
}

func TestDecode_EmptyPayload(t *testing.T) {
	v := struct{ Width int }{Width: 3}
	require.NoError(t, Event{Command: "resize"}.Decode(&v))
	assert.Equal(t, 3, v.Width)
}

func TestBuffered_RunsOnWorker(t *testing.T) {
	d, _ := newDispatcher(t)
	var wg sync.WaitGroup
	wg.Add(3)
	var mu sync.Mutex
	var seen []string
	d.Register("refresh", func(v *viewer, _ Event) (any, error) {
		mu.Lock()
		seen = append(seen, v.mapID)
		mu.Unlock()
		wg.Done()
		return nil, nil
	}, Buffered(8))

	for _, id := range []string{"customs", "woods", "shoreline"} {
		result, err := d.Dispatch(&viewer{mapID: id}, Event{Command: "refresh"})
		require.NoError(t, err)
		q, ok := result.(Queued)
		require.True(t, ok)
		assert.Equal(t, "refresh", q.Command)
	}
	wg.Wait()
	assert.Equal(t, []string{"customs", "woods", "shoreline"}, seen)
}

func TestBuffered_RejectsWhenFull(t *testing.T) {
	d, logger := newDispatcher(t)
	g := newGate()
	d.Register("refresh", g.handler, Buffered(2))

	_, err := d.Dispatch(nil, Event{Command: "refresh"})
	require.NoError(t, err)
	<-g.started
	for i := 0; i < 2; i++ {
		result, err := d.Dispatch(nil, Event{Command: "refresh"})
		require.NoError(t, err)
		assert.Equal(t, i+1, result.(Queued).Depth)
	}

	_, err = d.Dispatch(nil, Event{Command: "refresh"})
	require.ErrorIs(t, err, ErrQueueFull)
	assert.Len(t, logger.withPrefix("WARN"), 1)

	close(g.release)
}

func TestBuffered_BlockingWaitsForRoom(t *testing.T) {
	d, _ := newDispatcher(t)
	g := newGate()
	d.Register("refresh", g.handler, Buffered(1), Blocking())

	_, _ = d.Dispatch(nil, Event{Command: "refresh"})
	<-g.started
	_, _ = d.Dispatch(nil, Event{Command: "refresh"})

	done := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(nil, Event{Command: "refresh"})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("dispatch returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	assert.NoError(t, <-done)
}

func TestClose_DrainsAndRejects(t *testing.T) {
	d, _ := newDispatcher(t)
	var mu sync.Mutex
	count := 0
	d.Register("refresh", func(*viewer, Event) (any, error) {
		mu.Lock()
		count++
		mu.Unlock()
		return nil, nil
	}, Buffered(4))

	for i := 0; i < 3; i++ {
		_, err := d.Dispatch(nil, Event{Command: "refresh"})
		require.NoError(t, err)
	}
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 3, count)

	_, err := d.Dispatch(nil, Event{Command: "refresh"})
	require.ErrorIs(t, err, ErrClosed)
}

func TestLogged(t *testing.T) {
	d, logger := newDispatcher(t)
	d.Register("toggle", func(*viewer, Event) (any, error) { return "ok", nil }, Logged())
	d.Register("resize", func(*viewer, Event) (any, error) { return nil, errors.New("bad size") }, Logged())

	_, err := d.Dispatch(nil, Event{Command: "toggle", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = d.Dispatch(nil, Event{Command: "resize"})
	require.Error(t, err)

	assert.Len(t, logger.withPrefix("DEBUG"), 3)
	errs := logger.withPrefix("ERROR")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "bad size")
}

func TestLogged_BufferedFailureIsLogged(t *testing.T) {
	d, logger := newDispatcher(t)
	done := make(chan struct{})
	d.Register("refresh", func(*viewer, Event) (any, error) {
		defer close(done)
		return nil, errors.New("api down")
	}, Buffered(1), Logged())

	_, err := d.Dispatch(nil, Event{Command: "refresh"})
	require.NoError(t, err)
	<-done
	require.NoError(t, d.Close())

	errs := logger.withPrefix("ERROR")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "api down")
}
