package controller

import (
	"context"
	"encoding/json"
	"errors"

	"socialbot-be/internal/dto"
	"socialbot-be/internal/pkg/logger"
	"socialbot-be/internal/pkg/serverutils"
	"socialbot-be/internal/service"
	internalWS "socialbot-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	Converse(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type conversationController struct {
	conversationService service.IConversationService
	hub                 *internalWS.Hub
	logger              logger.ILogger
}

func NewConversationController(conversationService service.IConversationService, hub *internalWS.Hub, log logger.ILogger) IConversationController {
	return &conversationController{
		conversationService: conversationService,
		hub:                 hub,
		logger:              log,
	}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation")
	h.Post("", c.Converse)
	h.Get("ws", c.ServeWs)
}

// Converse answers one turn. The body is returned bare, without the usual
// response envelope, so existing voice clients can read it.
func (c *conversationController) Converse(ctx *fiber.Ctx) error {
	var req dto.ConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.conversationService.Converse(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

// ServeWs upgrades to a websocket that carries one request and one response
// per message.
func (c *conversationController) ServeWs(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	userID := ctx.Query("user_uuid")
	if userID == "" {
		userID = uuid.NewString()
	}
	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("conversation", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(c.hub, conn, userID)
		c.logger.Info("conversation", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(ctx)
}

// NewMessageHandler answers websocket messages with the conversation
// service. Failures are reported in the response envelope and keep the
// connection open.
func NewMessageHandler(conversationService service.IConversationService, log logger.ILogger) internalWS.MessageHandler {
	return func(ctx context.Context, payload []byte) ([]byte, bool) {
		var req dto.ConversationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return encodeReply(serverutils.ErrorResponse(fiber.StatusBadRequest, "invalid request body")), false
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return encodeReply(serverutils.ErrorResponse(statusOf(err), err.Error())), false
		}

		res, err := conversationService.Converse(ctx, &req)
		if err != nil {
			log.Error("conversation", "WebSocket turn failed", map[string]interface{}{
				"session_id": req.SessionUuid,
				"error":      err.Error(),
			})
			return encodeReply(serverutils.ErrorResponse(fiber.StatusInternalServerError, "internal server error")), false
		}
		return encodeReply(res), res.ShouldEndSession
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func encodeReply(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"success":false,"code":500,"message":"internal server error"}`)
	}
	return data
}
