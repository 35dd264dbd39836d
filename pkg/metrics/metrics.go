// Package metrics 定义了服务暴露的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LiveConnections 当前挂接在 Hub 上的 WebSocket 连接数。
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mindfulpath_live_connections",
		Help: "Number of websocket connections currently attached to the hub.",
	})

	// WaitingUsers 当前等待专家认领的用户数。
	WaitingUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mindfulpath_waiting_users",
		Help: "Number of users currently waiting in the queue.",
	})

	// RelayedMessages 经频道中继成功投递的消息总数。
	RelayedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindfulpath_relayed_messages_total",
		Help: "Total number of payloads delivered through channel broadcast.",
	})

	// ClaimRaces 因并发认领而失败的认领次数。
	ClaimRaces = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindfulpath_claim_races_total",
		Help: "Total number of claims lost to a concurrent expert.",
	})
)
