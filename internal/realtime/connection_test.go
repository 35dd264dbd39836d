package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// newTestSocket 通过本地 httptest 服务器建立一条真实的 WebSocket 连接。
func newTestSocket(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		<-done
		_ = ws.Close()
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("建立测试连接失败: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return ws
}

func TestConnectionSendCloseConcurrent(t *testing.T) {
	// 后注册连接替换旧连接时，Close 会与进行中的 Send 并发，
	// 任何交错下都不允许崩溃
	for i := 0; i < 20; i++ {
		conn := NewConnection(ParticipantKey("user", 1), newTestSocket(t))

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					_ = conn.Send([]byte("payload"))
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.Close(websocket.CloseNormalClosure, "")
		}()
		wg.Wait()
	}
}

func TestConnectionSendAfterClose(t *testing.T) {
	conn := NewConnection(ParticipantKey("user", 1), newTestSocket(t))
	conn.Close(websocket.CloseNormalClosure, "")

	if err := conn.Send([]byte("late")); err == nil {
		t.Fatal("已关闭连接的 Send 应返回错误")
	}
}

func TestConnectionCloseIdempotent(t *testing.T) {
	conn := NewConnection(ParticipantKey("user", 1), newTestSocket(t))
	conn.Close(websocket.CloseNormalClosure, "")
	conn.Close(4001, "连接已被新会话替换")
}

func TestConnectionSendBufferBounded(t *testing.T) {
	// 写循环未启动，缓冲占满后 Send 必须关闭连接而不是无界阻塞
	conn := NewConnection(ParticipantKey("user", 1), newTestSocket(t))

	var err error
	for i := 0; i < 256; i++ {
		if err = conn.Send([]byte("x")); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("缓冲占满后 Send 应失败")
	}
	if closedErr := conn.Send([]byte("y")); closedErr == nil {
		t.Fatal("缓冲超限后连接应已关闭")
	}
}
