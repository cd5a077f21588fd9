package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/msomdec/task-manager/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMailer fails the first failN sends of every message with err.
type fakeMailer struct {
	mu       sync.Mutex
	failN    int
	err      error
	attempts map[string]int
	sent     []notify.Message
	block    chan struct{}
}

func newFakeMailer(failN int, err error) *fakeMailer {
	return &fakeMailer{failN: failN, err: err, attempts: map[string]int{}}
}

func (m *fakeMailer) Send(ctx context.Context, msg notify.Message) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[msg.To]++
	if m.attempts[msg.To] <= m.failN {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) snapshot() (map[string]int, []notify.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempts := make(map[string]int, len(m.attempts))
	for k, v := range m.attempts {
		attempts[k] = v
	}
	return attempts, append([]notify.Message(nil), m.sent...)
}

var fastRetry = notify.Options{
	Workers:        1,
	QueueSize:      10,
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
}

func TestDispatcher_DeliversQueuedMessages(t *testing.T) {
	mailer := newFakeMailer(0, nil)
	d := notify.NewDispatcher(mailer, fastRetry)

	assert.True(t, d.Enqueue(notify.WelcomeMessage("ann@x.com", "Ann")))
	assert.True(t, d.Enqueue(notify.CancellationMessage("bob@x.com", "Bob")))

	require.NoError(t, d.Close(context.Background()))

	_, sent := mailer.snapshot()
	require.Len(t, sent, 2)
	assert.Equal(t, "Thanks for joining in!", sent[0].Subject)
	assert.Equal(t, "We are sad to see you leave.", sent[1].Subject)
}

func TestDispatcher_RetriesTransientErrors(t *testing.T) {
	mailer := newFakeMailer(2, errors.New("temporary outage"))
	d := notify.NewDispatcher(mailer, fastRetry)

	d.Enqueue(notify.WelcomeMessage("ann@x.com", "Ann"))
	require.NoError(t, d.Close(context.Background()))

	attempts, sent := mailer.snapshot()
	assert.Equal(t, 3, attempts["ann@x.com"])
	assert.Len(t, sent, 1)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	mailer := newFakeMailer(10, errors.New("still down"))
	d := notify.NewDispatcher(mailer, fastRetry)

	d.Enqueue(notify.WelcomeMessage("ann@x.com", "Ann"))
	require.NoError(t, d.Close(context.Background()))

	attempts, sent := mailer.snapshot()
	assert.Equal(t, fastRetry.MaxAttempts, attempts["ann@x.com"])
	assert.Empty(t, sent)
}

func TestDispatcher_PermanentErrorsAreNotRetried(t *testing.T) {
	mailer := newFakeMailer(10, notify.Permanent(errors.New("bad recipient")))
	d := notify.NewDispatcher(mailer, fastRetry)

	d.Enqueue(notify.WelcomeMessage("ann@x.com", "Ann"))
	require.NoError(t, d.Close(context.Background()))

	attempts, _ := mailer.snapshot()
	assert.Equal(t, 1, attempts["ann@x.com"])
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	mailer := newFakeMailer(0, nil)
	mailer.block = make(chan struct{})
	d := notify.NewDispatcher(mailer, notify.Options{Workers: 1, QueueSize: 1, MaxAttempts: 1})

	accepted := 0
	for i := 0; i < 5; i++ {
		if d.Enqueue(notify.Message{To: "x@example.com"}) {
			accepted++
		}
	}
	// One message is held by the worker, one sits in the queue.
	assert.LessOrEqual(t, accepted, 2)
	assert.GreaterOrEqual(t, accepted, 1)

	close(mailer.block)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	d := notify.NewDispatcher(newFakeMailer(0, nil), fastRetry)
	require.NoError(t, d.Close(context.Background()))
	// Closing twice is fine.
	require.NoError(t, d.Close(context.Background()))

	assert.False(t, d.Enqueue(notify.WelcomeMessage("late@x.com", "Late")))
}

func TestDispatcher_CloseHonoursDeadline(t *testing.T) {
	mailer := newFakeMailer(0, nil)
	mailer.block = make(chan struct{})
	d := notify.NewDispatcher(mailer, fastRetry)
	d.Enqueue(notify.WelcomeMessage("slow@x.com", "Slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPermanent(t *testing.T) {
	base := errors.New("boom")
	err := notify.Permanent(base)

	assert.True(t, notify.IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, notify.IsPermanent(base))
	assert.NoError(t, notify.Permanent(nil))
}

func TestMessages(t *testing.T) {
	welcome := notify.WelcomeMessage("ann@x.com", "Ann")
	assert.Equal(t, "ann@x.com", welcome.To)
	assert.Contains(t, welcome.Text, "Welcome to the app, Ann.")

	bye := notify.CancellationMessage("ann@x.com", "Ann")
	assert.Contains(t, bye.Text, "We are sad to see you leave our site, Ann.")
}
