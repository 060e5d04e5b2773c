package application

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testEpoch = time.Date(2026, 3, 7, 9, 30, 0, 0, time.UTC)

type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []domain.GenerationRequest
}

func (g *scriptedGenerator) Generate(_ context.Context, req domain.GenerationRequest) (io.ReadCloser, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}

	body := ""
	if len(g.responses) > 0 {
		body = g.responses[0]
		if len(g.responses) > 1 {
			g.responses = g.responses[1:]
		}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (g *scriptedGenerator) calls() []domain.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.GenerationRequest(nil), g.requests...)
}

// blockingGenerator holds every request until unblock is closed.
type blockingGenerator struct {
	entered chan struct{}
	unblock chan struct{}
	body    string

	mu    sync.Mutex
	count int
}

func newBlockingGenerator(body string) *blockingGenerator {
	return &blockingGenerator{entered: make(chan struct{}, 8), unblock: make(chan struct{}), body: body}
}

func (g *blockingGenerator) Generate(ctx context.Context, _ domain.GenerationRequest) (io.ReadCloser, error) {
	g.mu.Lock()
	g.count++
	g.mu.Unlock()

	g.entered <- struct{}{}
	select {
	case <-g.unblock:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return io.NopCloser(strings.NewReader(g.body)), nil
}

func (g *blockingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// autoClock advances its own time by every duration it is asked to wait.
type autoClock struct {
	mu  sync.Mutex
	now time.Time
}

func newAutoClock() *autoClock {
	return &autoClock{now: testEpoch}
}

func (c *autoClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *autoClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type manualTimer struct {
	deadline time.Time
	ch       chan time.Time
}

// manualClock only fires timers on Advance and reports every armed wait.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []manualTimer
	armed  chan time.Duration
}

func newManualClock() *manualClock {
	return &manualClock{now: testEpoch, armed: make(chan time.Duration, 128)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.timers = append(c.timers, manualTimer{deadline: c.now.Add(d), ch: ch})
	c.mu.Unlock()

	select {
	case c.armed <- d:
	default:
	}
	return ch
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	pending := c.timers[:0]
	for _, timer := range c.timers {
		if timer.deadline.After(c.now) {
			pending = append(pending, timer)
			continue
		}
		timer.ch <- c.now
	}
	c.timers = pending
}

func (c *manualClock) nextArmed(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-c.armed:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a timer to be armed")
		return 0
	}
}

type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []domain.Delivery
}

func (n *recordingNotifier) Publish(delivery domain.Delivery) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery)
}

func (n *recordingNotifier) all() []domain.Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Delivery(nil), n.deliveries...)
}

func ndjson(fragments ...string) string {
	var b strings.Builder
	for _, fragment := range fragments {
		line, _ := json.Marshal(map[string]any{"response": fragment, "done": false})
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteString(`{"response":"","done":true}` + "\n")
	return b.String()
}

func testRoster() []domain.Persona {
	return []domain.Persona{
		{ID: "group", DisplayName: "群聊", StatusText: "三人组", AvatarGlyph: "群", ParticipantIDs: []domain.PersonaID{"1", "2", "3"}},
		{ID: "1", DisplayName: "榆木华", AvatarGlyph: "华", Greeting: "我是榆木华",
			ProfileText: "爱好登山。\n活跃度 (talkativeness)：0.8\n回复率 (reply_rate)：0.9"},
		{ID: "2", DisplayName: "Snaur", AvatarGlyph: "卵", Greeting: "我是Snaur",
			ProfileText: "宅。\n活跃度 (talkativeness)：0.3\n回复率 (reply_rate)：0.5"},
		{ID: "3", DisplayName: "FFFanwen", AvatarGlyph: "蚊", Greeting: "我是FFFanwen",
			ProfileText: "已读不回。\n活跃度 (talkativeness)：0.2\n回复率 (reply_rate)：0.1"},
	}
}
