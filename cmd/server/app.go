package main

import (
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/config"
	"github.com/nexothsav/hackportal/internal/announcements"
	"github.com/nexothsav/hackportal/internal/auth"
	"github.com/nexothsav/hackportal/internal/entitlement"
	"github.com/nexothsav/hackportal/internal/middleware"
	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/payments"
	"github.com/nexothsav/hackportal/internal/realtime"
	"github.com/nexothsav/hackportal/internal/redemption"
	"github.com/nexothsav/hackportal/internal/stats"
	"github.com/nexothsav/hackportal/internal/store"
	"github.com/nexothsav/hackportal/internal/teams"
	"github.com/nexothsav/hackportal/pkg/queue"
	"github.com/nexothsav/hackportal/pkg/response"
)

// app holds the wired HTTP surface.
type app struct {
	jwt           *auth.JWTService
	hub           *realtime.Hub
	auth          *auth.Handler
	meals         *redemption.Handler
	payments      *payments.Handler
	teams         *teams.Handler
	stats         *stats.Handler
	announcements *announcements.Handler
	cors          string
	logger        *zap.Logger
}

// newApp wires services over s. rdb may be nil, which keeps the guard, fan-out and job queue in process.
func newApp(cfg *config.Config, s store.Store, rdb *goredis.Client, logger *zap.Logger) *app {
	if logger == nil {
		logger = zap.NewNop()
	}
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	var (
		hub      *realtime.Hub
		guard    redemption.Guard = redemption.NewInFlight()
		receipts payments.ReceiptQueue
		notices  redemption.NoticeQueue
	)
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
		jobQueue := queue.NewQueue(rdb, logger)
		receipts, notices = jobQueue, jobQueue
		if cfg.Guard.Backend == config.GuardRedis {
			guard = redemption.NewRedisGuard(rdb, time.Duration(cfg.Guard.TTLSec)*time.Second, logger)
		}
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	engine := entitlement.NewEngine(s, logger)
	coordinator := redemption.NewCoordinator(engine, guard, logger)
	coordinator.AddResultHandler(redemption.BroadcastResults(hub, realtime.TopicScanner, realtime.EventMealRedemption))
	if notices != nil {
		coordinator.AddResultHandler(redemption.EmailApprovals(s, notices, logger))
	}

	announcementService := announcements.NewService(s, logger)
	announcementService.OnCreate(func(a *models.Announcement) {
		hub.Publish(realtime.TopicAnnouncements, realtime.EventAnnouncement, a)
	})

	return &app{
		jwt:           jwtService,
		hub:           hub,
		auth:          auth.NewHandler(auth.NewService(s, logger), jwtService, logger),
		meals:         redemption.NewHandler(coordinator, engine, logger),
		payments:      payments.NewHandler(payments.NewService(s, cfg.Event.EntryFee, cfg.Event.Currency, receipts, logger), logger),
		teams:         teams.NewHandler(teams.NewService(s, s, logger), logger),
		stats:         stats.NewHandler(stats.NewAggregator(s, cfg.Event.EntryFee, cfg.Event.Currency), logger),
		announcements: announcements.NewHandler(announcementService, logger),
		cors:          cfg.Server.CORSAllowedOrigins,
		logger:        logger,
	}
}

func (a *app) validateToken(token string) (string, models.Role, error) {
	claims, err := a.jwt.Validate(token)
	if err != nil {
		return "", "", err
	}
	return claims.UserID, claims.Role, nil
}

func (a *app) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(a.cors))
	router.Use(middleware.Logger(a.logger, "/health"))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.POST("/auth/login", a.auth.Login)

	// WebSocket (token in query; browsers cannot set Authorization on upgrade)
	router.GET("/ws/scanner", realtime.ServeWs(a.hub, realtime.TopicScanner, a.validateToken, models.Role.IsStaff, a.logger))
	router.GET("/ws/announcements", realtime.ServeWs(a.hub, realtime.TopicAnnouncements, a.validateToken, nil, a.logger))

	api := router.Group("")
	api.Use(middleware.JWT(a.jwt))
	{
		api.GET("/me", a.auth.Me)
		api.GET("/me/meals", a.meals.MyMeals)
		api.GET("/meals/current", a.meals.CurrentMeal)

		api.POST("/payments", a.payments.Pay)
		api.GET("/payments/status", a.payments.Status)

		api.POST("/teams", a.teams.CreateTeam)
		api.POST("/teams/join", a.teams.JoinTeam)
		api.GET("/teams/:id", a.teams.GetTeam)
		api.GET("/teams/:id/members", a.teams.ListMembers)
		api.POST("/teams/:id/submission", a.teams.SubmitProject)

		api.GET("/announcements", a.announcements.List)
	}

	staff := api.Group("")
	staff.Use(middleware.RequireStaff())
	{
		staff.POST("/meals/redeem", a.meals.Redeem)
		staff.POST("/announcements", a.announcements.Create)
		staff.GET("/admin/stats", a.stats.Get)
		staff.GET("/admin/users", a.auth.List)
		staff.GET("/admin/users/:id", a.auth.GetUser)
	}

	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
	return router
}
