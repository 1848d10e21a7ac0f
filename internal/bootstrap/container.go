package bootstrap

import (
	"context"
	"time"

	"socialbot-be/internal/config"
	"socialbot-be/internal/controller"
	"socialbot-be/internal/pkg/logger"
	"socialbot-be/internal/repository/memory"
	"socialbot-be/internal/repository/redisrepo"
	"socialbot-be/internal/repository/unitofwork"
	"socialbot-be/internal/service"
	"socialbot-be/internal/websocket"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/events"
	pktNats "socialbot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"gorm.io/gorm"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Container struct {
	// Controllers
	ConversationController controller.IConversationController
	HealthController       controller.IHealthController
	// TranscriptController is nil unless sessions are kept in postgres.
	TranscriptController controller.ITranscriptController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer assembles every process-wide client once. db is only needed
// by the postgres state store and may be nil otherwise.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	// 1. State store
	store, err := c.newStore(db, cfg)
	if err != nil {
		return nil, err
	}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var publisher events.Publisher = service.NewChannelPublisher(pubSub, cfg.App.EventTopic)
	var natsSub *pktNats.Subscriber
	eventBus := "channel"
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err == nil {
			natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		}
		if err != nil {
			sysLogger.Warn("bootstrap", "NATS unavailable, using in-process events", map[string]interface{}{"error": err.Error()})
			if natsPub != nil {
				natsPub.Close()
			}
			natsSub = nil
		} else {
			publisher = natsPub
			eventBus = "nats"
			c.closers = append(c.closers, natsPub.Close, natsSub.Close)
		}
	}
	turnLogger := logger.NewIsolatedLogger(cfg.App.TurnLogFilePath)
	c.ConsumerService = service.NewConsumerService(pubSub, natsSub, cfg.App.EventTopic, turnLogger)

	// 3. Dialog pipeline
	d, err := NewDialog(cfg, store, sysLogger, dialog.WithObserver(service.NewTurnEventService(publisher, sysLogger)))
	if err != nil {
		c.Close()
		return nil, err
	}

	// 4. Services & transports
	conversationService := service.NewConversationService(d.Controller, sysLogger)
	c.WebSocketHub = websocket.NewHub(controller.NewMessageHandler(conversationService, sysLogger), sysLogger)

	c.ConversationController = controller.NewConversationController(conversationService, c.WebSocketHub, sysLogger)
	c.HealthController = controller.NewHealthController(cfg.Store.Backend, eventBus, len(d.Remote.Services()), c.WebSocketHub, c.ConsumerService)

	return c, nil
}

func (c *Container) newStore(db *gorm.DB, cfg *config.Config) (dialog.Store, error) {
	switch cfg.Store.Backend {
	case StorePostgres:
		if db == nil {
			return nil, oops.Errorf("state store %q needs DB_CONNECTION_STRING", StorePostgres)
		}
		uowFactory := unitofwork.NewRepositoryFactory(db)
		c.TranscriptController = controller.NewTranscriptController(service.NewTranscriptService(uowFactory))
		return service.NewStateStore(uowFactory, c.Logger), nil

	case StoreRedis:
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			return nil, oops.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, oops.Errorf("redis unreachable: %w", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		return redisrepo.NewStateRepository(rdb, cfg.Store.RedisTTL), nil

	case StoreMemory, "":
		return memory.NewStateRepository(cfg.Store.RedisTTL), nil
	}
	return nil, oops.Errorf("unknown state store %q", cfg.Store.Backend)
}

// Close releases the bus and store connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
