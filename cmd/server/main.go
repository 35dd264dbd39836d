// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindful-path-go/internal/config"
	"mindful-path-go/internal/handler"
	"mindful-path-go/internal/middleware"
	"mindful-path-go/internal/model"
	"mindful-path-go/internal/pipeline"
	"mindful-path-go/internal/realtime"
	"mindful-path-go/internal/repository"
	"mindful-path-go/internal/service"
	"mindful-path-go/pkg/database"
	"mindful-path-go/pkg/es"
	"mindful-path-go/pkg/kafka"
	"mindful-path-go/pkg/log"
	"mindful-path-go/pkg/storage"
	"mindful-path-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和外部依赖
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.Expert{},
		&model.QueueEntry{},
		&model.Conversation{},
		&model.Message{},
		&model.JournalEntry{},
		&model.CounsellorApplication{},
	); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	expertRepo := repository.NewExpertRepository(database.DB)
	queueRepo := repository.NewQueueRepository(database.DB)
	convRepo := repository.NewConversationRepository(database.DB)
	journalRepo := repository.NewJournalRepository(database.DB)
	applicationRepo := repository.NewApplicationRepository(database.DB)

	// 5. 初始化实时中继：单实例直接用 Hub，多实例经 Redis 桥接跨实例投递
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	hub := realtime.NewHub()
	var relay realtime.Relay = hub
	if cfg.Relay.RedisBridge {
		bridge := realtime.NewBridge(hub, database.RDB, cfg.Relay.Channel)
		bridge.Start(rootCtx)
		relay = bridge
	}

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	authService := service.NewAuthService(userRepo, expertRepo, jwtManager, cfg.Admin.Secret)
	matchService := service.NewMatchService(queueRepo, convRepo, relay, kafka.SessionEventPublisher{})
	adminService := service.NewAdminService(userRepo, expertRepo, convRepo)
	journalService := service.NewJournalService(journalRepo)
	applicationService := service.NewApplicationService(applicationRepo)
	searchService := service.NewSearchService(cfg.Elasticsearch.IndexName)

	// 7. 初始化会话事件流水线并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(convRepo, cfg.Elasticsearch, cfg.MinIO)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(authService)
	infoHandler := handler.NewInfoHandler(userRepo, expertRepo)
	queueHandler := handler.NewQueueHandler(matchService, convRepo)
	journalHandler := handler.NewJournalHandler(journalService)
	applicationHandler := handler.NewApplicationHandler(applicationService)
	adminHandler := handler.NewAdminHandler(adminService)
	searchHandler := handler.NewSearchHandler(searchService)
	wsHandler := handler.NewWSHandler(relay, matchService, authService, jwtManager)

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// 注册登录，公开访问
		apiV1.POST("/signup/user", authHandler.SignupUser)
		apiV1.POST("/signin/user", authHandler.SigninUser)
		apiV1.POST("/signin/expert", authHandler.SigninExpert)
		apiV1.GET("/admin/login", authHandler.AdminLogin)

		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", authHandler.RefreshToken)
			auth.POST("/logout", middleware.AuthMiddleware(jwtManager, authService), authHandler.Logout)
		}

		// 入驻申请由公开表单提交，无需认证
		apiV1.POST("/applications", applicationHandler.Submit)

		// 需要认证的路由
		authed := apiV1.Group("/")
		authed.Use(middleware.AuthMiddleware(jwtManager, authService))
		{
			info := authed.Group("/info")
			{
				info.GET("/me", infoHandler.Me)
				info.GET("/role", infoHandler.Role)
				info.GET("/users", middleware.RequireRole(model.RoleAdmin), adminHandler.ListUsers)
				info.GET("/experts", middleware.RequireRole(model.RoleAdmin), adminHandler.ListExperts)
			}

			// 排队与会话
			connect := authed.Group("/connect")
			{
				connect.POST("/queue", middleware.RequireRole(model.RoleUser), queueHandler.Enqueue)
				connect.GET("/queue", middleware.RequireRole(model.RoleExpert, model.RoleAdmin), queueHandler.Waiting)
				connect.POST("/claim/:user_id", middleware.RequireRole(model.RoleExpert), queueHandler.Claim)
				connect.GET("/sessions", queueHandler.Sessions)
				connect.PUT("/sessions/:id/close", queueHandler.CloseSession)
				connect.GET("/sessions/:id/messages", queueHandler.Messages)
			}

			// 用户日记
			journal := authed.Group("/journal")
			journal.Use(middleware.RequireRole(model.RoleUser))
			{
				journal.POST("", journalHandler.Create)
				journal.PUT("", journalHandler.Update)
				journal.GET("", journalHandler.Get)
			}

			// 会话消息检索，专家与管理端可用
			authed.GET("/sessions/search", middleware.RequireRole(model.RoleExpert, model.RoleAdmin), searchHandler.SearchMessages)

			// 管理端路由组
			admin := authed.Group("/admin")
			admin.Use(middleware.RequireRole(model.RoleAdmin))
			{
				admin.POST("/experts", adminHandler.CreateExpert)
				admin.GET("/conversations", adminHandler.ListConversations)
				admin.GET("/applications", applicationHandler.List)
			}
		}
	}

	// WebSocket 升级入口，凭证经路径参数携带
	r.GET("/ws/:token", wsHandler.Serve)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 先停止接收新连接，再关闭存量 WebSocket 连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	relay.Shutdown()

	// Kafka 消费者是一个循环，会在程序退出时自然结束。
	log.Info("服务已优雅关闭")
}
