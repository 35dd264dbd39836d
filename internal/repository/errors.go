// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import "errors"

// 领域层可预期的失败。这些错误属于正常业务结果，由调用方映射为客户端可见的提示，
// 绝不会导致中继或注册表崩溃。
var (
	// ErrAlreadyQueued 表示该用户已有一条 duration 为空的排队记录。
	ErrAlreadyQueued = errors.New("用户已在排队队列中")
	// ErrNotWaiting 表示该用户没有待认领的排队记录（已被并发专家认领或从未入队）。
	ErrNotWaiting = errors.New("没有待认领的排队记录")
	// ErrDuplicateSession 表示同一认领瞬间的会话记录已存在。
	ErrDuplicateSession = errors.New("会话记录已存在")
	// ErrUnknownConversation 表示消息指向的会话不存在。
	ErrUnknownConversation = errors.New("会话不存在")
)
