package controller

import (
	"ai-recall-be/internal/dto"
	"ai-recall-be/internal/pkg/serverutils"
	"ai-recall-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IMediaController interface {
	RegisterRoutes(r fiber.Router)
	IngestRecording(ctx *fiber.Ctx) error
	GetPreview(ctx *fiber.Ctx) error
}

type mediaController struct {
	service service.IMediaService
}

func NewMediaController(service service.IMediaService) IMediaController {
	return &mediaController{service: service}
}

func (c *mediaController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/media/v1")
	h.Post("/recordings", serverutils.UserContextMiddleware, c.IngestRecording)
	// The preview handle is itself the credential: minted per run, revoked
	// when the run ends.
	h.Get("/preview/:handle", c.GetPreview)
}

func (c *mediaController) IngestRecording(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.IngestRecordingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.IngestRecording(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Recording ingested", res))
}

func (c *mediaController) GetPreview(ctx *fiber.Ctx) error {
	handle := ctx.Params("handle")

	image, err := c.service.ResolvePreview(ctx.Context(), handle)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "image/jpeg")
	ctx.Set(fiber.HeaderCacheControl, "no-store")
	return ctx.Send(image)
}
