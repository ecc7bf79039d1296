package controller

import (
	"ai-recall-be/internal/dto"
	"ai-recall-be/internal/pkg/serverutils"
	"ai-recall-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	CancelRun(ctx *fiber.Ctx) error
	ResolveSelection(ctx *fiber.Ctx) error
	GetRun(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	runService  service.IRunService
}

func NewChatController(chatService service.IChatService, runService service.IRunService) IChatController {
	return &chatController{
		chatService: chatService,
		runService:  runService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.UserContextMiddleware)
	h.Post("/session", c.CreateSession)
	h.Get("/sessions", c.GetAllSessions)
	h.Get("/session/:id/history", c.GetChatHistory)
	h.Delete("/session/:id", c.DeleteSession)
	h.Post("/send", c.SendChat)
	h.Get("/runs/:runId", c.GetRun)
	h.Post("/runs/:runId/cancel", c.CancelRun)
	h.Post("/runs/:runId/selection", c.ResolveSelection)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.chatService.CreateSession(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.chatService.GetAllSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *chatController) GetChatHistory(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	idParam := ctx.Params("id")
	sessionId, _ := uuid.Parse(idParam)

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	idParam := ctx.Params("id")
	sessionId, _ := uuid.Parse(idParam)

	if err := c.chatService.DeleteSession(ctx.Context(), userId, sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

// SendChat accepts the message and returns immediately; tokens and status
// updates arrive over the websocket.
func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.runService.StartRun(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Run accepted", res))
}

func (c *chatController) GetRun(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	runIdParam := ctx.Params("runId")
	runId, _ := uuid.Parse(runIdParam)

	res, err := c.runService.GetRun(ctx.Context(), userId, runId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get run", res))
}

func (c *chatController) CancelRun(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	runIdParam := ctx.Params("runId")
	runId, _ := uuid.Parse(runIdParam)

	res, err := c.runService.CancelRun(ctx.Context(), userId, runId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Run cancel requested", res))
}

func (c *chatController) ResolveSelection(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	runIdParam := ctx.Params("runId")
	runId, _ := uuid.Parse(runIdParam)

	var req dto.ResolveSelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.runService.ResolveSelection(ctx.Context(), userId, runId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Selection resolved", res))
}
