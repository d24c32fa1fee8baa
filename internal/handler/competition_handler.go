package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/service"
	"github.com/pitcharena/pitcharena-api/internal/utils"
)

// CompetitionHandler wires the public competition catalogue endpoints.
type CompetitionHandler struct {
	service service.CompetitionService
	logger  zerolog.Logger
}

// NewCompetitionHandler constructs the handler.
func NewCompetitionHandler(service service.CompetitionService, logger zerolog.Logger) *CompetitionHandler {
	return &CompetitionHandler{
		service: service,
		logger:  logger.With().Str("component", "competition_handler").Logger(),
	}
}

// Register attaches the public read endpoints.
func (h *CompetitionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/slug/:slug", h.getBySlug)
	router.Get("/:id", h.get)
}

// RegisterAdmin attaches the admin mutation endpoints.
func (h *CompetitionHandler) RegisterAdmin(router fiber.Router) {
	router.Post("", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/cover", h.uploadCover)
}

func (h *CompetitionHandler) list(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	response, err := h.service.List(c.Context(), dto.CompetitionListRequest{
		Search:   c.Query("search"),
		Domain:   c.Query("domain"),
		Status:   c.Query("status"),
		Sort:     c.Query("sort"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "competitions retrieved", response)
}

func (h *CompetitionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	competition, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "competition retrieved", competition)
}

func (h *CompetitionHandler) getBySlug(c *fiber.Ctx) error {
	competition, err := h.service.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "competition retrieved", competition)
}

func (h *CompetitionHandler) create(c *fiber.Ctx) error {
	var payload dto.CompetitionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	competition, err := h.service.Create(c.Context(), payload, requestUserID(c))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "competition created", competition)
}

func (h *CompetitionHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CompetitionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	competition, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "competition updated", competition)
}

func (h *CompetitionHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "competition deleted", nil)
}

func (h *CompetitionHandler) uploadCover(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	fileHeader, err := c.FormFile("cover")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "cover file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "cover file could not be read")
	}
	defer file.Close()

	competition, err := h.service.UploadCover(c.Context(), id, fileHeader.Filename, file)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "cover uploaded", competition)
}
