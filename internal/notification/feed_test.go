package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/storage"
)

type fakeSource struct {
	mu       sync.Mutex
	items    []api.Notification
	err      error
	markErr  error
	polls    int
	marked   []string
	gate     chan struct{}
	failures int
}

func (f *fakeSource) Notifications(ctx context.Context) ([]api.Notification, error) {
	f.mu.Lock()
	f.polls++
	gate := f.gate
	items := append([]api.Notification(nil), f.items...)
	err := f.err
	if f.failures > 0 {
		f.failures--
		err = errors.New("gateway timeout")
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (f *fakeSource) MarkNotificationRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return f.markErr
}

func (f *fakeSource) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func sampleItems() []api.Notification {
	return []api.Notification{
		{ID: "n1", Message: "New Go role at Acme", Job: api.JobRef{ID: "j1"}},
		{ID: "n2", Message: "Application viewed", IsRead: true},
		{ID: "n3", Message: "New SRE role"},
	}
}

func standardContext(t *testing.T) *session.Context {
	t.Helper()
	sc := session.NewContext(context.Background(), session.NewStore(storage.NewMemoryKV(), nil), nil)
	require.NoError(t, sc.SetSession(context.Background(), "abc", "u1", session.RoleStandard, session.LoginUser))
	return sc
}

func TestPoll_StandardUser(t *testing.T) {
	sc := standardContext(t)
	src := &fakeSource{items: sampleItems()}
	feed := NewFeed(sc, src, Options{})

	require.NoError(t, feed.Poll(context.Background()))

	assert.Len(t, feed.Items(), 3)
	assert.Equal(t, 2, feed.Unread())
}

func TestPoll_IdleForOtherAccessLevels(t *testing.T) {
	ctx := context.Background()
	sc := session.NewContext(ctx, session.NewStore(storage.NewMemoryKV(), nil), nil)
	src := &fakeSource{items: sampleItems()}
	feed := NewFeed(sc, src, Options{})

	require.NoError(t, feed.Poll(ctx))
	require.NoError(t, sc.SetSession(ctx, "t", "a1", session.RoleAdmin, session.LoginAdmin))
	require.NoError(t, feed.Poll(ctx))

	assert.Zero(t, src.Polls())
	assert.Empty(t, feed.Items())
}

func TestPoll_FailureDegradesToEmpty(t *testing.T) {
	sc := standardContext(t)
	src := &fakeSource{items: sampleItems()}
	feed := NewFeed(sc, src, Options{})
	require.NoError(t, feed.Poll(context.Background()))

	src.mu.Lock()
	src.err = errors.New("503")
	src.mu.Unlock()

	assert.Error(t, feed.Poll(context.Background()))
	assert.Empty(t, feed.Items())
	assert.Zero(t, feed.Unread())
}

func TestPoll_LateResultAfterLogoutIsDropped(t *testing.T) {
	ctx := context.Background()
	sc := standardContext(t)
	src := &fakeSource{items: sampleItems(), gate: make(chan struct{})}
	feed := NewFeed(sc, src, Options{})

	done := make(chan error)
	go func() { done <- feed.Poll(ctx) }()
	require.Eventually(t, func() bool { return src.Polls() == 1 }, time.Second, time.Millisecond)

	sc.ClearSession(ctx, session.LoginUser)
	close(src.gate)

	require.NoError(t, <-done)
	assert.Empty(t, feed.Items())
}

func TestMarkRead_Optimistic(t *testing.T) {
	sc := standardContext(t)
	src := &fakeSource{items: sampleItems()}
	feed := NewFeed(sc, src, Options{})
	require.NoError(t, feed.Poll(context.Background()))

	require.NoError(t, feed.MarkRead(context.Background(), "n1"))

	assert.Equal(t, 1, feed.Unread())
	assert.Equal(t, []string{"n1"}, src.marked)
}

func TestMarkRead_RevertsOnFailure(t *testing.T) {
	sc := standardContext(t)
	src := &fakeSource{items: sampleItems(), markErr: errors.New("server error")}
	feed := NewFeed(sc, src, Options{})
	require.NoError(t, feed.Poll(context.Background()))

	var unreadSeen []int
	feed.OnChange(func() { unreadSeen = append(unreadSeen, feed.Unread()) })

	err := feed.MarkRead(context.Background(), "n3")

	require.Error(t, err)
	assert.Equal(t, 2, feed.Unread())
	assert.Equal(t, []int{1, 2}, unreadSeen, "flip then revert")
}

func TestMarkRead_AlreadyReadIsNoop(t *testing.T) {
	sc := standardContext(t)
	src := &fakeSource{items: sampleItems()}
	feed := NewFeed(sc, src, Options{})
	require.NoError(t, feed.Poll(context.Background()))

	require.NoError(t, feed.MarkRead(context.Background(), "n2"))
	assert.Empty(t, src.marked)
}

func TestRun_PollsOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sc := standardContext(t)
	src := &fakeSource{items: sampleItems()}
	feed := NewFeed(sc, src, Options{Interval: 10 * time.Millisecond})

	stopped := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return src.Polls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, feed.Unread())

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_RecoversAfterFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sc := standardContext(t)
	src := &fakeSource{items: sampleItems(), failures: 2}
	feed := NewFeed(sc, src, Options{Interval: 20 * time.Millisecond})

	go feed.Run(ctx)

	require.Eventually(t, func() bool { return feed.Unread() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, src.Polls(), 3)
}

func TestRun_WakesOnLogin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sc := session.NewContext(ctx, session.NewStore(storage.NewMemoryKV(), nil), nil)
	src := &fakeSource{items: sampleItems()}
	feed := NewFeed(sc, src, Options{Interval: time.Hour})

	go feed.Run(ctx)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, src.Polls(), "guests are not polled")

	require.NoError(t, sc.SetSession(ctx, "abc", "u1", session.RoleStandard, session.LoginUser))

	require.Eventually(t, func() bool { return src.Polls() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(feed.Items()) == 3 }, time.Second, time.Millisecond)

	sc.ClearSession(ctx, session.LoginUser)
	require.Eventually(t, func() bool { return len(feed.Items()) == 0 }, time.Second, time.Millisecond)
}
