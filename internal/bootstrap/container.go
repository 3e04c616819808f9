package bootstrap

import (
	"context"

	"tara-tutor-be/internal/config"
	"tara-tutor-be/internal/controller"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/internal/service"
	"tara-tutor-be/internal/websocket"
	"tara-tutor-be/pkg/feedback"
	pktNats "tara-tutor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	TutorController controller.ITutorController
	AdminController controller.IAdminController

	// Background Services (Exposed for main.go to run)
	FeedbackService service.IFeedbackService

	WebSocketHub *websocket.Hub

	closers []func()
}

func NewContainer(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{}

	// 1. Engine
	engine, closeIndex, err := NewEngine(ctx, cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeIndex)

	// 2. Infrastructure, all optional
	var publisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS, events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to Redis, websocket fanout stays local", map[string]interface{}{"error": err.Error()})
			rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, func() { rdb.Close() })
		}
	}

	// 3. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	hubCtx, stopHub := context.WithCancel(context.Background())
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	go c.WebSocketHub.Run(hubCtx)
	c.closers = append(c.closers, stopHub)

	// 4. Services
	tutorService := service.NewTutorService(engine, publisher, c.WebSocketHub, sysLogger)

	var sheet feedback.Logger = feedback.NoopLogger{}
	if cfg.Feedback.Enabled() {
		sheetsLogger, err := feedback.NewSheetsLogger(ctx, feedback.Credentials{
			ClientID:     cfg.Feedback.ClientID,
			ClientSecret: cfg.Feedback.ClientSecret,
			RefreshToken: cfg.Feedback.RefreshToken,
		})
		if err != nil {
			sysLogger.Warn("Bootstrap", "Feedback sheet unavailable, feedback is discarded", map[string]interface{}{"error": err.Error()})
		} else {
			sheet = sheetsLogger
		}
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { pubSub.Close() })
	c.FeedbackService = service.NewFeedbackService(pubSub, sheet, cfg.Feedback, tutorService, publisher, sysLogger)

	// 5. Controllers
	c.TutorController = controller.NewTutorController(tutorService, c.FeedbackService, c.WebSocketHub, cfg.Tutor.MaxUploadBytes, sysLogger)
	c.AdminController = controller.NewAdminController(sysLogger, cfg.App.JwtSecret)

	return c, nil
}

// Close releases infrastructure in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
