package log

import "testing"

func TestUsableBeforeInit(t *testing.T) {
	// 业务代码与测试会在 Init 之前记日志，这些调用必须安全落空
	Info("在线连接已注册")
	Infof("专家 %d 认领了用户 %d", 2, 1)
	Infow("会话已建立", "conversation", 9)
	Warnf("发布会话事件失败: %v", nil)
	Error("读取会话失败", nil)
	Errorf("索引会话 %d 的消息失败", 9)
	Sync()
}

func TestInitReplacesDefault(t *testing.T) {
	Init("debug", "json", "")
	Infof("初始化后可以正常记录: %s", "ok")
	Sync()
}
