package controller

import (
	"socialbot-be/internal/pkg/serverutils"
	"socialbot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITranscriptController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
}

type transcriptController struct {
	transcriptService service.ITranscriptService
}

func NewTranscriptController(transcriptService service.ITranscriptService) ITranscriptController {
	return &transcriptController{
		transcriptService: transcriptService,
	}
}

func (c *transcriptController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Get(":session_uuid/turns", c.Show)
}

func (c *transcriptController) Show(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_uuid")
	if sessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_uuid is required")
	}

	res, err := c.transcriptService.GetTranscript(ctx.UserContext(), sessionID, ctx.QueryInt("limit", 50), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get transcript", res))
}
