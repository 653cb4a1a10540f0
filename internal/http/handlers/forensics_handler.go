package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tripplanner/backend/internal/forensics"
	"github.com/tripplanner/backend/internal/http/dto"
	"github.com/tripplanner/backend/internal/middleware"
	"github.com/tripplanner/backend/internal/models"
	"github.com/tripplanner/backend/internal/services"
	"github.com/tripplanner/backend/internal/validation"
	"go.uber.org/zap"
)

type ForensicsHandler struct {
	svc *services.ForensicsService
	log *zap.Logger
}

func NewForensicsHandler(svc *services.ForensicsService, log *zap.Logger) *ForensicsHandler {
	return &ForensicsHandler{svc: svc, log: log}
}

func actorFrom(c *fiber.Ctx) services.Actor {
	return services.Actor{UserID: middleware.GetUserID(c), Email: middleware.GetUserEmail(c)}
}

// Export builds a replay bundle. With ?download=1 the bundle is sent as an
// attachment instead of the usual envelope.
func (h *ForensicsHandler) Export(c *fiber.Ctx) error {
	var req dto.ExportRequest
	var raw map[string]any
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return badRequest(c, "invalid request")
		}
	}
	if err := validation.Validate(req); err != nil {
		return badRequest(c, validation.Describe(err))
	}
	filters, err := req.Filters()
	if err != nil {
		return badRequest(c, err.Error())
	}
	filters.Raw = raw

	bundle, err := h.svc.Export(c.UserContext(), actorFrom(c), filters)
	if err != nil {
		return respondError(c, h.log, err)
	}

	if c.QueryBool("download") {
		c.Attachment(forensics.BundleFilename(bundle))
		return forensics.WriteBundle(c, bundle)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: bundle})
}

func (h *ForensicsHandler) Timeline(c *fiber.Ctx) error {
	var req dto.TimelineRequest
	if err := c.QueryParser(&req); err != nil {
		return badRequest(c, "invalid query")
	}
	if err := validation.Validate(req); err != nil {
		return badRequest(c, validation.Describe(err))
	}
	q, err := req.Query()
	if err != nil {
		return badRequest(c, err.Error())
	}

	rows, err := h.svc.Timeline(c.UserContext(), q)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: rows})
}

func (h *ForensicsHandler) RecordDiff(c *fiber.Ctx) error {
	row, err := h.svc.RecordDiff(c.UserContext(), c.Params("source"), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: row})
}

func (h *ForensicsHandler) ListArchives(c *fiber.Ctx) error {
	limit, offset := 20, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	archives, err := h.svc.ListArchives(c.UserContext(), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]dto.ArchiveSummary, 0, len(archives))
	for _, a := range archives {
		out = append(out, archiveSummary(a))
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}

func (h *ForensicsHandler) GetArchive(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid archive id")
	}
	archive, err := h.svc.GetArchive(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: archive})
}

// CreateArchive archives a window on demand. Archiving an already stored
// window returns 200 with the request echoed back; a new archive returns 201.
func (h *ForensicsHandler) CreateArchive(c *fiber.Ctx) error {
	var req dto.ArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := validation.Validate(req); err != nil {
		return badRequest(c, validation.Describe(err))
	}
	start, end, err := req.Window()
	if err != nil {
		return badRequest(c, err.Error())
	}

	actor := actorFrom(c)
	archive, created, err := h.svc.Archive(c.UserContext(), &actor, start, end)
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.SuccessResponse{OK: true, Data: archiveSummary(*archive)})
}

func archiveSummary(a models.ForensicsArchive) dto.ArchiveSummary {
	s := dto.ArchiveSummary{
		WindowStart:      models.FormatTimestamp(a.WindowStart),
		WindowEnd:        models.FormatTimestamp(a.WindowEnd),
		EventCount:       a.EventCount,
		CorrelationCount: a.CorrelationCount,
	}
	if a.ID != uuid.Nil {
		s.ID = a.ID.String()
	}
	if !a.CreatedAt.IsZero() {
		s.CreatedAt = models.FormatTimestamp(a.CreatedAt)
	}
	return s
}
