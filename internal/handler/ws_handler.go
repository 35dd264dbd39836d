package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"mindful-path-go/internal/model"
	"mindful-path-go/internal/realtime"
	"mindful-path-go/internal/repository"
	"mindful-path-go/internal/service"
	"mindful-path-go/pkg/log"
	"mindful-path-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler 负责 WebSocket 升级与每条连接的事件分发循环。
// 每条连接由独立的读循环按到达顺序处理事件，不同连接之间互相并发。
type WSHandler struct {
	relay        realtime.Relay
	matchService service.MatchService
	authService  service.AuthService
	jwtManager   *token.JWTManager
	upgrader     websocket.Upgrader
}

// NewWSHandler 创建一个新的 WSHandler 实例。
func NewWSHandler(relay realtime.Relay, matchService service.MatchService, authService service.AuthService, jwtManager *token.JWTManager) *WSHandler {
	return &WSHandler{
		relay:        relay,
		matchService: matchService,
		authService:  authService,
		jwtManager:   jwtManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域由前端部署环境控制，这里不做 Origin 限制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// serverEvent 是服务端出站消息的统一结构。
type serverEvent struct {
	Type           string          `json:"type"`
	Room           string          `json:"room,omitempty"`
	Sender         string          `json:"sender,omitempty"`
	Message        string          `json:"message,omitempty"`
	ConversationID uint            `json:"conversationId,omitempty"`
	Messages       []model.Message `json:"messages,omitempty"`
	FromRole       string          `json:"fromRole,omitempty"`
	FromID         uint            `json:"fromId,omitempty"`
	Signal         json.RawMessage `json:"signal,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Serve 处理 WebSocket 升级请求。浏览器无法为升级请求设置请求头，
// 因此身份凭证通过路径参数携带。
func (h *WSHandler) Serve(c *gin.Context) {
	tokenString := c.Param("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少 token"})
		return
	}
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil || h.authService.IsBlacklisted(tokenString) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的 token"})
		return
	}
	if claims.Role != model.RoleUser && claims.Role != model.RoleExpert {
		c.JSON(http.StatusForbidden, gin.H{"error": "该角色不能建立实时连接"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("WebSocket 升级失败: %v", err)
		return
	}

	conn := realtime.NewConnection(realtime.ParticipantKey(claims.Role, claims.SubjectID), ws)
	conn.Start()
	// 连接建立即完成在线注册，register 事件只作确认
	h.relay.Attach(conn)
	log.Infof("参与者 %s 已连接，会话 %s", conn.ParticipantKey(), conn.SessionID())

	go h.readLoop(conn, ws, claims)
}

// readLoop 逐条读取入站事件并分发。连接断开时注销在线状态，
// 频道成员关系随之清理。
func (h *WSHandler) readLoop(conn *realtime.Connection, ws *websocket.Conn, claims *token.CustomClaims) {
	defer func() {
		h.relay.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "")
		log.Infof("参与者 %s 已断开", conn.ParticipantKey())
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var event realtime.ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			h.sendError(conn, "无法解析事件")
			continue
		}
		h.dispatch(conn, claims, &event)
	}
}

// dispatch 按事件类型分发处理。不认识的类型回送错误，连接保持打开。
func (h *WSHandler) dispatch(conn *realtime.Connection, claims *token.CustomClaims, event *realtime.ClientEvent) {
	switch event.Type {
	case realtime.EventRegister:
		h.handleRegister(conn)
	case realtime.EventJoinRoom:
		h.handleJoinRoom(conn, claims, event)
	case realtime.EventChatMessage:
		h.handleChatMessage(conn, claims, event)
	case realtime.EventInitiateCall:
		h.handleCall(conn, claims, event, "incoming_call")
	case realtime.EventCallSignal:
		h.handleCall(conn, claims, event, "call_signal")
	case realtime.EventLeaveSession:
		h.handleLeaveSession(conn, claims, event)
	default:
		h.sendError(conn, "未知的事件类型: "+event.Type)
	}
}

// handleRegister 确认在线注册。注册在连接建立时已经完成，这里只回执。
func (h *WSHandler) handleRegister(conn *realtime.Connection) {
	h.send(conn, serverEvent{Type: "registered"})
}

// handleJoinRoom 校验会话归属后将连接加入频道，并回放该会话的历史消息，
// 使重连或换端的参与者能看到完整上下文。
func (h *WSHandler) handleJoinRoom(conn *realtime.Connection, claims *token.CustomClaims, event *realtime.ClientEvent) {
	conv, err := h.matchService.AuthorizeJoin(context.Background(), event.Room, claims.Role, claims.SubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownConversation) {
			h.sendError(conn, "会话不存在")
			return
		}
		h.sendError(conn, "无权加入该频道")
		return
	}

	h.relay.Join(event.Room, conn)

	history, err := h.matchService.Messages(context.Background(), conv.ID)
	if err != nil {
		log.Warnf("读取会话 %d 历史消息失败: %v", conv.ID, err)
		history = nil
	}
	h.send(conn, serverEvent{
		Type:           "joined",
		Room:           event.Room,
		ConversationID: conv.ID,
		Messages:       history,
	})
}

// handleChatMessage 先将消息落库，再向频道全体成员广播（包含发送者回显）。
// 落库失败时消息不广播，发送者收到错误。
func (h *WSHandler) handleChatMessage(conn *realtime.Connection, claims *token.CustomClaims, event *realtime.ClientEvent) {
	conv, err := h.matchService.AuthorizeJoin(context.Background(), event.Room, claims.Role, claims.SubjectID)
	if err != nil {
		h.sendError(conn, "无权向该频道发送消息")
		return
	}
	if event.Message == "" {
		h.sendError(conn, "消息不能为空")
		return
	}

	msg, err := h.matchService.AppendMessage(context.Background(), conv.ID, claims.Role, event.Message)
	if err != nil {
		h.sendError(conn, "消息保存失败")
		return
	}

	payload, _ := json.Marshal(serverEvent{
		Type:           "chat_message",
		Room:           event.Room,
		Sender:         msg.Sender,
		Message:        msg.Message,
		ConversationID: conv.ID,
	})
	h.relay.Broadcast(event.Room, payload)
}

// handleCall 将通话信令点对点投递给目标参与者，载荷原样透传、不落库。
// 目标不在线时静默丢弃，由上层通话协议自行超时。
func (h *WSHandler) handleCall(conn *realtime.Connection, claims *token.CustomClaims, event *realtime.ClientEvent, outType string) {
	if event.TargetRole == "" || event.TargetID == 0 {
		h.sendError(conn, "缺少信令目标")
		return
	}

	payload, _ := json.Marshal(serverEvent{
		Type:     outType,
		Room:     event.Room,
		FromRole: claims.Role,
		FromID:   claims.SubjectID,
		Signal:   event.Signal,
	})
	if !h.relay.Notify(realtime.ParticipantKey(event.TargetRole, event.TargetID), payload) {
		log.Infof("信令目标 %s:%d 不在线，载荷已丢弃", event.TargetRole, event.TargetID)
	}
}

// handleLeaveSession 结束会话并离开频道。会话归属校验失败时只回错误，
// 已结束的会话重复关闭由后写者胜出语义兜底。
func (h *WSHandler) handleLeaveSession(conn *realtime.Connection, claims *token.CustomClaims, event *realtime.ClientEvent) {
	room := model.RoomName(event.ConversationID)
	if _, err := h.matchService.AuthorizeJoin(context.Background(), room, claims.Role, claims.SubjectID); err != nil {
		h.sendError(conn, "无权结束该会话")
		return
	}

	conv, err := h.matchService.CloseSession(context.Background(), event.ConversationID)
	if err != nil {
		h.sendError(conn, "结束会话失败")
		return
	}

	payload, _ := json.Marshal(serverEvent{
		Type:           "session_closed",
		Room:           room,
		ConversationID: conv.ID,
	})
	h.relay.Broadcast(room, payload)
	h.relay.Leave(room, conn)
}

func (h *WSHandler) send(conn *realtime.Connection, event serverEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := conn.Send(payload); err != nil {
		log.Warnf("向 %s 投递失败: %v", conn.ParticipantKey(), err)
	}
}

func (h *WSHandler) sendError(conn *realtime.Connection, msg string) {
	h.send(conn, serverEvent{Type: "error", Error: msg})
}
