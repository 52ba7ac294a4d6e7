package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/botflow"
	botflowhttp "github.com/aretw0/botflow/pkg/adapters/http"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/dispatch"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/observability"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv      *httptest.Server
	sessions *session.Manager
	turns    *dispatch.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := memory.NewRepository()
	repo.AddBot(domain.Bot{ID: "shop", Name: "Shop"})
	require.NoError(t, repo.SaveBlock(ctx, domain.BlockDocument{
		ID: "ask", BotID: "shop", IsEnabled: true, Triggers: []string{"start"},
		Cards: json.RawMessage(`[{"type":"text","text":"Hi!"},{"type":"userInput","prompt":"Name?","variableName":"name"},{"type":"text","text":"Bye {{name}}"}]`),
	}))

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	recorder := memory.NewRecorder()
	sessions := session.NewManager(memory.NewStore())
	engine := botflow.New(repo, sessions, recorder, botflow.WithLifecycleHooks(metrics.Hooks()))
	turns := dispatch.New(engine)

	api := botflowhttp.New(repo, turns, sessions,
		botflowhttp.WithTranscripts(recorder),
		botflowhttp.WithGatherer(reg),
		botflowhttp.WithVersion("test"),
	)
	f := &fixture{srv: httptest.NewServer(api.Handler()), sessions: sessions, turns: turns}
	t.Cleanup(func() {
		f.srv.Close()
		_ = turns.Close(context.Background())
	})
	return f
}

func (f *fixture) post(t *testing.T, bot, sender, text string) (*http.Response, botflowhttp.MessageResponse) {
	t.Helper()
	body, _ := json.Marshal(botflowhttp.MessageRequest{SenderID: sender, Text: text})
	resp, err := http.Post(f.srv.URL+"/v1/bots/"+bot+"/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out botflowhttp.MessageResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func texts(entries []botflowhttp.TranscriptEntry) []string {
	var out []string
	for _, e := range entries {
		if e.Type == "text" {
			out = append(out, e.Message.Summary())
		}
	}
	return out
}

func TestHealthAndInfo(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.srv.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "test", info["version"])
}

func TestMessages_Conversation(t *testing.T) {
	f := newFixture(t)

	resp, out := f.post(t, "shop", "ana", "start")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	assert.Equal(t, []string{"Hi!", "Name?"}, texts(out.Messages))

	_, out = f.post(t, "shop", "ana", "Ana")
	assert.Equal(t, []string{"Bye Ana"}, texts(out.Messages))

	_, out = f.post(t, "shop", "bo", "hello")
	assert.True(t, out.Success)
	assert.Len(t, out.Messages, 1, "the bootstrapped default answer replies")
}

func TestMessages_Validation(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "ghost", "ana", "hi")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.post(t, "shop", "", "hi")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := http.Post(f.srv.URL+"/v1/bots/shop/messages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestMessages_DispatcherClosed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.turns.Close(context.Background()))

	resp, _ := f.post(t, "shop", "ana", "start")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// echoTurns answers every message with "echo <text>" and counts overlapping turns.
type echoTurns struct {
	gateway *memory.Recorder
	active  atomic.Int32
	overlap atomic.Bool
}

func (e *echoTurns) Submit(ctx context.Context, req dispatch.Request) (domain.Result, error) {
	if e.active.Add(1) > 1 {
		e.overlap.Store(true)
	}
	defer e.active.Add(-1)
	time.Sleep(2 * time.Millisecond)
	if err := e.gateway.SendText(ctx, req.Bot, req.SenderID, "echo "+req.Message); err != nil {
		return domain.Result{}, err
	}
	return domain.Result{Success: true}, nil
}

func TestMessages_SameSenderGetsOwnReplies(t *testing.T) {
	repo := memory.NewRepository()
	repo.AddBot(domain.Bot{ID: "shop", Name: "Shop"})
	recorder := memory.NewRecorder()
	turns := &echoTurns{gateway: recorder}
	api := botflowhttp.New(repo, turns, session.NewManager(memory.NewStore()), botflowhttp.WithTranscripts(recorder))
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	const n = 10
	got := make([][]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := json.Marshal(botflowhttp.MessageRequest{SenderID: "ana", Text: fmt.Sprintf("m%d", i)})
			resp, err := http.Post(srv.URL+"/v1/bots/shop/messages", "application/json", bytes.NewReader(body))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			var out botflowhttp.MessageResponse
			if assert.NoError(t, json.NewDecoder(resp.Body).Decode(&out)) {
				got[i] = texts(out.Messages)
			}
		}()
	}
	wg.Wait()

	assert.False(t, turns.overlap.Load(), "turns of one sender never overlap")
	for i := range n {
		assert.Equal(t, []string{fmt.Sprintf("echo m%d", i)}, got[i])
	}
}

func TestSessions_GetAndDelete(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/v1/bots/shop/sessions/ana")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	f.post(t, "shop", "ana", "start")

	resp, err = http.Get(f.srv.URL + "/v1/bots/shop/sessions/ana")
	require.NoError(t, err)
	var s domain.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	resp.Body.Close()
	require.NotNil(t, s.CurrentBlockID)
	assert.Equal(t, "ask", *s.CurrentBlockID)
	assert.Equal(t, 1, s.CurrentCardIndex)

	req, _ := http.NewRequest(http.MethodDelete, f.srv.URL+"/v1/bots/shop/sessions/ana", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err = f.sessions.Load(context.Background(), domain.SessionKey("shop", "ana"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.post(t, "shop", "ana", "start")

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), "botflow_turns_total")
}

func TestSessionEvents(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/v1/bots/shop/sessions/ana/events", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	f.post(t, "shop", "ana", "start")

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	var s domain.Session
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &s))
	assert.Equal(t, "ask", *s.CurrentBlockID)
}

func TestStreamManager(t *testing.T) {
	sm := botflowhttp.NewStreamManager()
	assert.False(t, sm.HasSubscribers("k"))

	ch, cancel := sm.Subscribe("k")
	assert.True(t, sm.HasSubscribers("k"))
	sm.Broadcast("k", "hello")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	assert.False(t, sm.HasSubscribers("k"))
	_, open := <-ch
	assert.False(t, open)
}
