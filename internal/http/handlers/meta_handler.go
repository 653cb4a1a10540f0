package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tripplanner/backend/internal/forensics"
	"github.com/tripplanner/backend/internal/http/dto"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

// GetAuditActions lists the action codes the console has dedicated labels
// for. Other codes render through the generic formatter.
func (h *MetaHandler) GetAuditActions(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: forensics.KnownActionLabels()})
}

// GetAuditSources lists the trails a record can come from.
func (h *MetaHandler) GetAuditSources(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: []forensics.Source{forensics.SourceAdmin, forensics.SourceUser}})
}
