package controller

import (
	"socialbot-be/internal/dto"
	"socialbot-be/internal/pkg/serverutils"
	"socialbot-be/internal/service"
	internalWS "socialbot-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	stateStore     string
	eventBus       string
	remoteServices int
	hub            *internalWS.Hub
	consumer       service.IConsumerService
}

func NewHealthController(stateStore, eventBus string, remoteServices int, hub *internalWS.Hub, consumer service.IConsumerService) IHealthController {
	return &healthController{
		stateStore:     stateStore,
		eventBus:       eventBus,
		remoteServices: remoteServices,
		hub:            hub,
		consumer:       consumer,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := dto.HealthResponse{
		Status:       "ok",
		StateStore:   c.stateStore,
		EventBus:     c.eventBus,
		RemoteModels: c.remoteServices,
	}
	if c.hub != nil {
		res.WsClients = c.hub.Count()
	}
	if c.consumer != nil {
		res.TurnsByRG = c.consumer.Stats()
	}
	return ctx.JSON(serverutils.SuccessResponse("Service is healthy", res))
}
