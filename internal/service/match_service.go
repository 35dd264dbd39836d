// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mindful-path-go/internal/model"
	"mindful-path-go/internal/realtime"
	"mindful-path-go/internal/repository"
	"mindful-path-go/pkg/log"
	"mindful-path-go/pkg/metrics"
	"mindful-path-go/pkg/tasks"
)

// ErrNotParticipant 表示加入频道的身份不是会话记录中指名的双方之一。
var ErrNotParticipant = errors.New("不是该会话的参与者")

// Notifier 是协调器需要的点对点投递能力。投递失败（目标不在线）不是错误。
type Notifier interface {
	Notify(key string, payload []byte) bool
}

// EventPublisher 将会话生命周期事件发布到审计流。发布是尽力而为的旁路。
type EventPublisher interface {
	Publish(event tasks.SessionEvent) error
}

// MatchService 是撮合协调器：驱动排队、认领、会话建立与结束的完整状态流转
// （等待 -> 已认领 -> 会话进行中 -> 会话结束）。
type MatchService interface {
	Enqueue(ctx context.Context, userID uint, date, startTime string) (*model.QueueEntry, error)
	WaitingQueue(ctx context.Context) ([]model.QueueEntry, error)
	Claim(ctx context.Context, expertID, userID uint) (*model.Conversation, error)
	CloseSession(ctx context.Context, conversationID uint) (*model.Conversation, error)
	AuthorizeJoin(ctx context.Context, room, role string, subjectID uint) (*model.Conversation, error)
	AppendMessage(ctx context.Context, conversationID uint, sender, text string) (*model.Message, error)
	Messages(ctx context.Context, conversationID uint) ([]model.Message, error)
}

type matchService struct {
	queueRepo repository.QueueRepository
	convRepo  repository.ConversationRepository
	notifier  Notifier
	events    EventPublisher
	now       func() time.Time
}

// NewMatchService 创建一个新的 MatchService 实例。
func NewMatchService(queueRepo repository.QueueRepository, convRepo repository.ConversationRepository, notifier Notifier, events EventPublisher) MatchService {
	return &matchService{
		queueRepo: queueRepo,
		convRepo:  convRepo,
		notifier:  notifier,
		events:    events,
		now:       time.Now,
	}
}

// Enqueue 将用户加入等待队列。date 与 startTime 为空时取服务器当前时间。
// 用户已有待认领记录时返回 repository.ErrAlreadyQueued。
func (s *matchService) Enqueue(ctx context.Context, userID uint, date, startTime string) (*model.QueueEntry, error) {
	now := s.now()
	day := now
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("无效的日期 '%s': %w", date, err)
		}
		day = parsed
	}
	start := now.Format("15:04:05")
	if startTime != "" {
		if _, err := time.ParseInLocation("15:04:05", startTime, time.Local); err != nil {
			return nil, fmt.Errorf("无效的开始时间 '%s': %w", startTime, err)
		}
		start = startTime
	}

	entry := &model.QueueEntry{
		UserID:    userID,
		Date:      time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local),
		StartTime: start,
	}
	if err := s.queueRepo.Enqueue(entry); err != nil {
		return nil, err
	}

	metrics.WaitingUsers.Inc()
	s.publish(tasks.SessionEvent{Type: tasks.EventEnqueued, UserID: userID})
	return entry, nil
}

// WaitingQueue 返回当前所有等待中的排队记录，先入队者在前。
// 结果是一个时间点快照：记录可能在读取与认领之间被其他专家抢走。
func (s *matchService) WaitingQueue(ctx context.Context) ([]model.QueueEntry, error) {
	return s.queueRepo.FindWaiting()
}

// Claim 执行专家对排队用户的认领：
//  1. 以单条条件更新写入观察到的等待时长，这是唯一的并发保护——
//     两名专家并发认领同一用户时恰有一方成功，另一方收到 ErrNotWaiting；
//  2. 创建会话记录；
//  3. 若用户在线，向其推送携带频道名与专家 ID 的会话开始通知。
//     用户不在线时会话照常建立，聊天界面的空缺由专家端自行感知。
func (s *matchService) Claim(ctx context.Context, expertID, userID uint) (*model.Conversation, error) {
	now := s.now()

	entry, err := s.queueRepo.FindWaitingByUser(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotWaiting) {
			metrics.ClaimRaces.Inc()
		}
		return nil, err
	}

	waited := int64(0)
	if startedAt, serr := entry.StartedAt(); serr == nil && now.After(startedAt) {
		waited = int64(now.Sub(startedAt).Seconds())
	}

	// 真正的认领保护：影响行数为零即输掉竞争
	if _, err := s.queueRepo.MarkClaimed(userID, waited); err != nil {
		if errors.Is(err, repository.ErrNotWaiting) {
			metrics.ClaimRaces.Inc()
		}
		return nil, err
	}
	metrics.WaitingUsers.Dec()

	conv := &model.Conversation{
		UserID:    userID,
		ExpertID:  expertID,
		Date:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local),
		StartTime: now.Format("15:04:05"),
	}
	if err := s.convRepo.Create(conv); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"type":     "chat_started",
		"room":     conv.Room(),
		"expertId": expertID,
	})
	if !s.notifier.Notify(realtime.ParticipantKey(model.RoleUser, userID), payload) {
		// 返回值只反映本实例的投递结果：多实例部署下用户可能挂在其他实例上，
		// 由中继桥送达。未投递也是正常结果，会话已经建立，
		// 用户下次进入频道时可从历史中补读。
		log.Infof("用户 %d 的会话开始通知未在本实例投递", userID)
	}

	s.publish(tasks.SessionEvent{
		Type:           tasks.EventClaimed,
		UserID:         userID,
		ExpertID:       expertID,
		ConversationID: conv.ID,
		WaitSeconds:    waited,
	})

	log.Infof("专家 %d 认领了用户 %d，会话 %d，等待 %d 秒", expertID, userID, conv.ID, waited)
	return conv, nil
}

// CloseSession 结束会话：以认领时刻到当前的间隔写入会话时长。
// 重复关闭时后写者胜出。
func (s *matchService) CloseSession(ctx context.Context, conversationID uint) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, err
	}

	seconds := int64(0)
	if startedAt, serr := conv.StartedAt(); serr == nil && s.now().After(startedAt) {
		seconds = int64(s.now().Sub(startedAt).Seconds())
	}
	if err := s.convRepo.Close(conversationID, seconds); err != nil {
		return nil, err
	}
	conv.Duration = &seconds

	s.publish(tasks.SessionEvent{
		Type:            tasks.EventSessionClosed,
		UserID:          conv.UserID,
		ExpertID:        conv.ExpertID,
		ConversationID:  conv.ID,
		DurationSeconds: seconds,
	})

	log.Infof("会话 %d 已结束，时长 %d 秒", conversationID, seconds)
	return conv, nil
}

// AuthorizeJoin 校验加入频道的身份：只有会话记录中指名的用户与专家可以加入。
// 知道频道名不等于有权加入。
func (s *matchService) AuthorizeJoin(ctx context.Context, room, role string, subjectID uint) (*model.Conversation, error) {
	var conversationID uint
	if _, err := fmt.Sscanf(room, "session_%d", &conversationID); err != nil {
		return nil, repository.ErrUnknownConversation
	}
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, err
	}

	switch role {
	case model.RoleUser:
		if conv.UserID != subjectID {
			return nil, ErrNotParticipant
		}
	case model.RoleExpert:
		if conv.ExpertID != subjectID {
			return nil, ErrNotParticipant
		}
	default:
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// AppendMessage 向会话的消息日志追加一条消息。先落库，再由调用方广播。
func (s *matchService) AppendMessage(ctx context.Context, conversationID uint, sender, text string) (*model.Message, error) {
	msg := &model.Message{
		ConversationID: conversationID,
		Sender:         sender,
		Message:        text,
	}
	if err := s.convRepo.AppendMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Messages 返回会话的全部历史消息，按接受顺序排列。
func (s *matchService) Messages(ctx context.Context, conversationID uint) ([]model.Message, error) {
	return s.convRepo.FindMessages(conversationID)
}

func (s *matchService) publish(event tasks.SessionEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().Unix()
	if err := s.events.Publish(event); err != nil {
		log.Warnf("发布会话事件失败: type=%s, err=%v", event.Type, err)
	}
}
