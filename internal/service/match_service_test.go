package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"mindful-path-go/internal/model"
	"mindful-path-go/internal/realtime"
	"mindful-path-go/internal/repository"
	"mindful-path-go/pkg/tasks"
)

// fakeQueueRepo 是 QueueRepository 的内存实现，并发安全。
type fakeQueueRepo struct {
	mu      sync.Mutex
	entries []*model.QueueEntry
}

func (r *fakeQueueRepo) Enqueue(entry *model.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.UserID == entry.UserID && e.Duration == nil {
			return repository.ErrAlreadyQueued
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeQueueRepo) FindWaiting() ([]model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var waiting []model.QueueEntry
	for _, e := range r.entries {
		if e.Duration == nil {
			waiting = append(waiting, *e)
		}
	}
	return waiting, nil
}

func (r *fakeQueueRepo) FindWaitingByUser(userID uint) (*model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.UserID == userID && e.Duration == nil {
			copied := *e
			return &copied, nil
		}
	}
	return nil, repository.ErrNotWaiting
}

func (r *fakeQueueRepo) MarkClaimed(userID uint, seconds int64) (*model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.UserID == userID && e.Duration == nil {
			e.Duration = &seconds
			copied := *e
			return &copied, nil
		}
	}
	return nil, repository.ErrNotWaiting
}

// fakeConvRepo 是 ConversationRepository 的内存实现。
type fakeConvRepo struct {
	mu       sync.Mutex
	nextID   uint
	convs    map[uint]*model.Conversation
	messages map[uint][]model.Message
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		nextID:   1,
		convs:    make(map[uint]*model.Conversation),
		messages: make(map[uint][]model.Message),
	}
}

func (r *fakeConvRepo) Create(conv *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.convs {
		if existing.UserID == conv.UserID && existing.ExpertID == conv.ExpertID &&
			existing.Date.Equal(conv.Date) && existing.StartTime == conv.StartTime {
			return repository.ErrDuplicateSession
		}
	}
	conv.ID = r.nextID
	r.nextID++
	copied := *conv
	r.convs[conv.ID] = &copied
	return nil
}

func (r *fakeConvRepo) FindByID(conversationID uint) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[conversationID]
	if !ok {
		return nil, repository.ErrUnknownConversation
	}
	copied := *conv
	return &copied, nil
}

func (r *fakeConvRepo) Close(conversationID uint, seconds int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[conversationID]
	if !ok {
		return repository.ErrUnknownConversation
	}
	conv.Duration = &seconds
	return nil
}

func (r *fakeConvRepo) AppendMessage(msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[msg.ConversationID]; !ok {
		return repository.ErrUnknownConversation
	}
	msg.ID = uint(len(r.messages[msg.ConversationID]) + 1)
	msg.SentAt = time.Now()
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], *msg)
	return nil
}

func (r *fakeConvRepo) FindMessages(conversationID uint) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Message(nil), r.messages[conversationID]...), nil
}

func (r *fakeConvRepo) FindAll() ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Conversation
	for _, c := range r.convs {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeConvRepo) FindByUser(userID uint) ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Conversation
	for _, c := range r.convs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeConvRepo) FindByExpert(expertID uint) ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Conversation
	for _, c := range r.convs {
		if c.ExpertID == expertID {
			out = append(out, *c)
		}
	}
	return out, nil
}

// fakeNotifier 记录每次投递，online 控制目标是否在线。
type fakeNotifier struct {
	mu       sync.Mutex
	online   bool
	payloads map[string][][]byte
}

func newFakeNotifier(online bool) *fakeNotifier {
	return &fakeNotifier{online: online, payloads: make(map[string][][]byte)}
}

func (n *fakeNotifier) Notify(key string, payload []byte) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online {
		return false
	}
	n.payloads[key] = append(n.payloads[key], payload)
	return true
}

// fakePublisher 收集发布的会话事件。
type fakePublisher struct {
	mu     sync.Mutex
	events []tasks.SessionEvent
}

func (p *fakePublisher) Publish(event tasks.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) byType(eventType string) []tasks.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []tasks.SessionEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestMatchService(queueRepo repository.QueueRepository, convRepo repository.ConversationRepository, notifier Notifier, pub EventPublisher, now time.Time) MatchService {
	svc := NewMatchService(queueRepo, convRepo, notifier, pub).(*matchService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestEnqueueRejectsDuplicate(t *testing.T) {
	queueRepo := &fakeQueueRepo{}
	svc := newTestMatchService(queueRepo, newFakeConvRepo(), newFakeNotifier(true), &fakePublisher{}, time.Now())

	if _, err := svc.Enqueue(context.Background(), 1, "", ""); err != nil {
		t.Fatalf("首次入队应成功: %v", err)
	}
	if _, err := svc.Enqueue(context.Background(), 1, "", ""); !errors.Is(err, repository.ErrAlreadyQueued) {
		t.Fatalf("重复入队应返回 ErrAlreadyQueued, got %v", err)
	}
}

func TestEnqueueRejectsMalformedDate(t *testing.T) {
	svc := newTestMatchService(&fakeQueueRepo{}, newFakeConvRepo(), newFakeNotifier(true), &fakePublisher{}, time.Now())
	if _, err := svc.Enqueue(context.Background(), 1, "not-a-date", ""); err == nil {
		t.Fatal("非法日期应报错")
	}
	if _, err := svc.Enqueue(context.Background(), 1, "", "25:99"); err == nil {
		t.Fatal("非法时间应报错")
	}
}

func TestClaimCreatesSessionAndNotifiesUser(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.Local)
	queueRepo := &fakeQueueRepo{}
	convRepo := newFakeConvRepo()
	notifier := newFakeNotifier(true)
	pub := &fakePublisher{}
	svc := newTestMatchService(queueRepo, convRepo, notifier, pub, now)

	if _, err := svc.Enqueue(context.Background(), 42, "2026-03-10", "14:25:00"); err != nil {
		t.Fatal(err)
	}

	conv, err := svc.Claim(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("认领应成功: %v", err)
	}
	if conv.UserID != 42 || conv.ExpertID != 7 {
		t.Fatalf("会话双方不符: user=%d expert=%d", conv.UserID, conv.ExpertID)
	}
	if conv.Room() != "session_1" {
		t.Fatalf("频道名应由会话 ID 派生, got %q", conv.Room())
	}

	// 等待的用户应收到携带频道名的会话开始通知
	key := realtime.ParticipantKey(model.RoleUser, 42)
	payloads := notifier.payloads[key]
	if len(payloads) != 1 {
		t.Fatalf("用户应收到 1 条通知, got %d", len(payloads))
	}
	var note struct {
		Type     string `json:"type"`
		Room     string `json:"room"`
		ExpertID uint   `json:"expertId"`
	}
	if err := json.Unmarshal(payloads[0], &note); err != nil {
		t.Fatal(err)
	}
	if note.Type != "chat_started" || note.Room != conv.Room() || note.ExpertID != 7 {
		t.Fatalf("通知内容不符: %+v", note)
	}

	// 认领应发布携带等待时长的审计事件
	claimed := pub.byType(tasks.EventClaimed)
	if len(claimed) != 1 {
		t.Fatalf("应发布 1 条认领事件, got %d", len(claimed))
	}
	if claimed[0].WaitSeconds != 300 {
		t.Fatalf("等待时长应为 300 秒, got %d", claimed[0].WaitSeconds)
	}
}

func TestClaimOfflineUserStillCreatesSession(t *testing.T) {
	queueRepo := &fakeQueueRepo{}
	convRepo := newFakeConvRepo()
	svc := newTestMatchService(queueRepo, convRepo, newFakeNotifier(false), &fakePublisher{}, time.Now())

	if _, err := svc.Enqueue(context.Background(), 1, "", ""); err != nil {
		t.Fatal(err)
	}
	conv, err := svc.Claim(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("用户不在线时认领仍应成功: %v", err)
	}
	if _, err := convRepo.FindByID(conv.ID); err != nil {
		t.Fatal("会话记录应已落库")
	}
}

func TestClaimUnqueuedUser(t *testing.T) {
	svc := newTestMatchService(&fakeQueueRepo{}, newFakeConvRepo(), newFakeNotifier(true), &fakePublisher{}, time.Now())
	if _, err := svc.Claim(context.Background(), 2, 99); !errors.Is(err, repository.ErrNotWaiting) {
		t.Fatalf("未排队用户的认领应返回 ErrNotWaiting, got %v", err)
	}
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	queueRepo := &fakeQueueRepo{}
	convRepo := newFakeConvRepo()
	svc := newTestMatchService(queueRepo, convRepo, newFakeNotifier(true), &fakePublisher{}, time.Now())

	if _, err := svc.Enqueue(context.Background(), 1, "", ""); err != nil {
		t.Fatal(err)
	}

	const experts = 16
	var wg sync.WaitGroup
	errs := make([]error, experts)
	for i := 0; i < experts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Claim(context.Background(), uint(i+1), 1)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, repository.ErrNotWaiting):
		default:
			t.Fatalf("并发认领出现意外错误: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("并发认领应恰有一名胜者, got %d", winners)
	}

	waiting, _ := queueRepo.FindWaiting()
	if len(waiting) != 0 {
		t.Fatal("认领后队列中不应再有该用户")
	}
}

func TestCloseSessionRecordsDuration(t *testing.T) {
	started := time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)
	queueRepo := &fakeQueueRepo{}
	convRepo := newFakeConvRepo()
	pub := &fakePublisher{}
	svc := newTestMatchService(queueRepo, convRepo, newFakeNotifier(true), pub, started).(*matchService)

	if _, err := svc.Enqueue(context.Background(), 1, "", ""); err != nil {
		t.Fatal(err)
	}
	conv, err := svc.Claim(context.Background(), 2, 1)
	if err != nil {
		t.Fatal(err)
	}

	// 会话进行了 45 分钟
	svc.now = func() time.Time { return started.Add(45 * time.Minute) }
	closed, err := svc.CloseSession(context.Background(), conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if closed.Duration == nil || *closed.Duration != 2700 {
		t.Fatalf("会话时长应为 2700 秒, got %v", closed.Duration)
	}

	events := pub.byType(tasks.EventSessionClosed)
	if len(events) != 1 || events[0].DurationSeconds != 2700 {
		t.Fatalf("应发布携带时长的结束事件, got %+v", events)
	}
}

func TestCloseUnknownSession(t *testing.T) {
	svc := newTestMatchService(&fakeQueueRepo{}, newFakeConvRepo(), newFakeNotifier(true), &fakePublisher{}, time.Now())
	if _, err := svc.CloseSession(context.Background(), 404); !errors.Is(err, repository.ErrUnknownConversation) {
		t.Fatalf("未知会话应返回 ErrUnknownConversation, got %v", err)
	}
}

func TestAuthorizeJoin(t *testing.T) {
	queueRepo := &fakeQueueRepo{}
	convRepo := newFakeConvRepo()
	svc := newTestMatchService(queueRepo, convRepo, newFakeNotifier(true), &fakePublisher{}, time.Now())

	if _, err := svc.Enqueue(context.Background(), 10, "", ""); err != nil {
		t.Fatal(err)
	}
	conv, err := svc.Claim(context.Background(), 20, 10)
	if err != nil {
		t.Fatal(err)
	}
	room := conv.Room()

	cases := []struct {
		name    string
		room    string
		role    string
		subject uint
		wantErr error
	}{
		{"会话用户可加入", room, model.RoleUser, 10, nil},
		{"会话专家可加入", room, model.RoleExpert, 20, nil},
		{"其他用户被拒绝", room, model.RoleUser, 11, ErrNotParticipant},
		{"其他专家被拒绝", room, model.RoleExpert, 21, ErrNotParticipant},
		{"管理员不是参与者", room, model.RoleAdmin, 0, ErrNotParticipant},
		{"未知频道", "session_999", model.RoleUser, 10, repository.ErrUnknownConversation},
		{"非法频道名", "lobby", model.RoleUser, 10, repository.ErrUnknownConversation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AuthorizeJoin(context.Background(), tc.room, tc.role, tc.subject)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAppendMessageRequiresKnownConversation(t *testing.T) {
	svc := newTestMatchService(&fakeQueueRepo{}, newFakeConvRepo(), newFakeNotifier(true), &fakePublisher{}, time.Now())
	if _, err := svc.AppendMessage(context.Background(), 404, model.RoleUser, "hello"); !errors.Is(err, repository.ErrUnknownConversation) {
		t.Fatalf("未知会话的消息应被拒绝, got %v", err)
	}
}

func TestMessagesPreserveOrder(t *testing.T) {
	queueRepo := &fakeQueueRepo{}
	convRepo := newFakeConvRepo()
	svc := newTestMatchService(queueRepo, convRepo, newFakeNotifier(true), &fakePublisher{}, time.Now())

	if _, err := svc.Enqueue(context.Background(), 1, "", ""); err != nil {
		t.Fatal(err)
	}
	conv, err := svc.Claim(context.Background(), 2, 1)
	if err != nil {
		t.Fatal(err)
	}

	texts := []string{"你好", "最近怎么样", "还不错"}
	for i, text := range texts {
		sender := model.RoleUser
		if i%2 == 1 {
			sender = model.RoleExpert
		}
		if _, err := svc.AppendMessage(context.Background(), conv.ID, sender, text); err != nil {
			t.Fatal(err)
		}
	}

	messages, err := svc.Messages(context.Background(), conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != len(texts) {
		t.Fatalf("应回放 %d 条消息, got %d", len(texts), len(messages))
	}
	for i, msg := range messages {
		if msg.Message != texts[i] {
			t.Fatalf("第 %d 条消息应为 %q, got %q", i, texts[i], msg.Message)
		}
	}
}
