package realtime

import (
	"sync"
	"testing"
)

// fakeSession 是一个进程内的 Session 实现，记录收到的载荷与关闭状态。
type fakeSession struct {
	mu       sync.Mutex
	id       string
	key      string
	received [][]byte
	closed   bool
	code     int
}

func newFakeSession(id, key string) *fakeSession {
	return &fakeSession{id: id, key: key}
}

func (f *fakeSession) SessionID() string      { return f.id }
func (f *fakeSession) ParticipantKey() string { return f.key }

func (f *fakeSession) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, payload)
	return nil
}

func (f *fakeSession) Close(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.code = code
}

func (f *fakeSession) isClosed() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.code
}

func (f *fakeSession) receivedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func TestAttachSupersedesPreviousConnection(t *testing.T) {
	hub := NewHub()
	key := ParticipantKey("user", 42)

	first := newFakeSession("s1", key)
	second := newFakeSession("s2", key)

	hub.Attach(first)
	hub.Attach(second)

	if closed, code := first.isClosed(); !closed || code != 4001 {
		t.Fatalf("旧连接应被关闭(4001)，got closed=%v code=%d", closed, code)
	}

	conn, ok := hub.Lookup(key)
	if !ok {
		t.Fatal("参与者应在线")
	}
	if conn.SessionID() != "s2" {
		t.Fatalf("活跃连接应是后注册者，got %s", conn.SessionID())
	}
}

func TestDetachOfSupersededConnectionIsNoop(t *testing.T) {
	hub := NewHub()
	key := ParticipantKey("user", 7)

	first := newFakeSession("s1", key)
	second := newFakeSession("s2", key)
	hub.Attach(first)
	hub.Attach(second)

	// 旧连接的断开回调晚于替换到达，不应影响新连接
	hub.Detach(first)

	conn, ok := hub.Lookup(key)
	if !ok || conn.SessionID() != "s2" {
		t.Fatal("被替换连接的 Detach 不应移除新连接")
	}
}

func TestLookupAfterDetach(t *testing.T) {
	hub := NewHub()
	key := ParticipantKey("expert", 3)

	conn := newFakeSession("s1", key)
	hub.Attach(conn)
	hub.Detach(conn)

	if _, ok := hub.Lookup(key); ok {
		t.Fatal("断开后参与者不应在线")
	}
}

func TestBroadcastReachesAllRoomMembers(t *testing.T) {
	hub := NewHub()

	user := newFakeSession("s1", ParticipantKey("user", 1))
	expert := newFakeSession("s2", ParticipantKey("expert", 2))
	outsider := newFakeSession("s3", ParticipantKey("user", 3))
	hub.Attach(user)
	hub.Attach(expert)
	hub.Attach(outsider)

	hub.Join("session_9", user)
	hub.Join("session_9", expert)

	delivered := hub.Broadcast("session_9", []byte(`{"type":"chat_message"}`))
	if delivered != 2 {
		t.Fatalf("应投递给 2 名成员，got %d", delivered)
	}
	if user.receivedCount() != 1 || expert.receivedCount() != 1 {
		t.Fatal("频道成员应各收到一条消息")
	}
	if outsider.receivedCount() != 0 {
		t.Fatal("非频道成员不应收到消息")
	}
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub()
	if delivered := hub.Broadcast("session_404", []byte("x")); delivered != 0 {
		t.Fatalf("空频道广播应投递 0 条，got %d", delivered)
	}
}

func TestLeaveRemovesMembership(t *testing.T) {
	hub := NewHub()
	conn := newFakeSession("s1", ParticipantKey("user", 1))
	hub.Attach(conn)
	hub.Join("session_1", conn)
	hub.Leave("session_1", conn)

	if delivered := hub.Broadcast("session_1", []byte("x")); delivered != 0 {
		t.Fatalf("离开频道后不应再收到广播，got %d", delivered)
	}
}

func TestDetachCleansUpRoomMemberships(t *testing.T) {
	hub := NewHub()
	conn := newFakeSession("s1", ParticipantKey("user", 1))
	hub.Attach(conn)
	hub.Join("session_1", conn)
	hub.Join("session_2", conn)
	hub.Detach(conn)

	if hub.Broadcast("session_1", []byte("x")) != 0 || hub.Broadcast("session_2", []byte("x")) != 0 {
		t.Fatal("断开后全部频道成员关系应被清理")
	}
}

func TestNotifyOfflineParticipant(t *testing.T) {
	hub := NewHub()
	if hub.Notify(ParticipantKey("user", 99), []byte("x")) {
		t.Fatal("目标不在线时 Notify 应返回 false")
	}
}

func TestNotifyDeliversToCurrentConnection(t *testing.T) {
	hub := NewHub()
	key := ParticipantKey("user", 5)
	conn := newFakeSession("s1", key)
	hub.Attach(conn)

	if !hub.Notify(key, []byte(`{"type":"chat_started"}`)) {
		t.Fatal("目标在线时 Notify 应返回 true")
	}
	if conn.receivedCount() != 1 {
		t.Fatalf("目标应收到 1 条消息，got %d", conn.receivedCount())
	}
}

func TestJoinIgnoresUntrackedConnection(t *testing.T) {
	hub := NewHub()
	conn := newFakeSession("s1", ParticipantKey("user", 1))
	// 未 Attach 就 Join，频道不应出现幽灵成员
	hub.Join("session_1", conn)

	if delivered := hub.Broadcast("session_1", []byte("x")); delivered != 0 {
		t.Fatalf("未注册连接不应加入频道，got %d", delivered)
	}
}

func TestShutdownClosesAllConnections(t *testing.T) {
	hub := NewHub()
	a := newFakeSession("s1", ParticipantKey("user", 1))
	b := newFakeSession("s2", ParticipantKey("expert", 2))
	hub.Attach(a)
	hub.Attach(b)

	hub.Shutdown()

	if closed, _ := a.isClosed(); !closed {
		t.Fatal("Shutdown 后连接 a 应被关闭")
	}
	if closed, _ := b.isClosed(); !closed {
		t.Fatal("Shutdown 后连接 b 应被关闭")
	}
	if _, ok := hub.Lookup(ParticipantKey("user", 1)); ok {
		t.Fatal("Shutdown 后不应有在线参与者")
	}
}

func TestConcurrentAttachSingleWinner(t *testing.T) {
	hub := NewHub()
	key := ParticipantKey("user", 1)

	const n = 32
	sessions := make([]*fakeSession, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		sessions[i] = newFakeSession(string(rune('a'+i)), key)
		wg.Add(1)
		go func(s *fakeSession) {
			defer wg.Done()
			hub.Attach(s)
		}(sessions[i])
	}
	wg.Wait()

	winner, ok := hub.Lookup(key)
	if !ok {
		t.Fatal("并发注册后参与者应在线")
	}

	open := 0
	for _, s := range sessions {
		if closed, _ := s.isClosed(); !closed {
			open++
			if s.SessionID() != winner.SessionID() {
				t.Fatalf("未关闭的连接 %s 不是当前活跃连接 %s", s.SessionID(), winner.SessionID())
			}
		}
	}
	if open != 1 {
		t.Fatalf("并发注册后应恰有一条连接存活，got %d", open)
	}
}

func TestParticipantKeyFormat(t *testing.T) {
	if got := ParticipantKey("user", 42); got != "user:42" {
		t.Fatalf("ParticipantKey = %q", got)
	}
	if got := ParticipantKey("expert", 7); got != "expert:7" {
		t.Fatalf("ParticipantKey = %q", got)
	}
}
