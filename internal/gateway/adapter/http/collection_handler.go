package http

import (
	"github.com/gofiber/fiber/v2"

	"docbase/internal/gateway/usecase"
)

// CreateCollection adds one collection to an existing database.
func (h *Handler) CreateCollection(c *fiber.Ctx) error {
	var req usecase.CreateCollectionRequest
	if err := h.parseBody(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	col, err := h.Gateway.CreateCollection(c.UserContext(), tenantFromLocals(c), c.Params("databaseID"), req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusCreated, col)
}

// RenameCollection renames a collection within its database.
func (h *Handler) RenameCollection(c *fiber.Ctx) error {
	var req usecase.RenameCollectionRequest
	if err := h.parseBody(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	if err := h.Gateway.RenameCollection(c.UserContext(), tenantFromLocals(c), c.Params("databaseID"), req); err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"renamed": true})
}

// AlterCollectionFields adds and removes declared fields, backfilling every
// existing document before the change is recorded.
func (h *Handler) AlterCollectionFields(c *fiber.Ctx) error {
	var req usecase.AlterFieldsRequest
	if err := h.parseBody(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	col, err := h.Gateway.AlterCollectionFields(c.UserContext(), tenantFromLocals(c), c.Params("databaseID"), req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusOK, col)
}

// DropCollection removes one collection and its documents.
func (h *Handler) DropCollection(c *fiber.Ctx) error {
	err := h.Gateway.DropCollection(c.UserContext(), tenantFromLocals(c), c.Params("databaseID"), c.Params("collectionName"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
