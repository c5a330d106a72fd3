package http

import (
	"github.com/gofiber/fiber/v2"

	"docbase/internal/gateway/usecase"
)

// CreateDatabase provisions a logical database plus its initial collections.
func (h *Handler) CreateDatabase(c *fiber.Ctx) error {
	var req usecase.CreateDatabaseRequest
	if err := h.parseBody(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	db, err := h.Gateway.CreateDatabase(c.UserContext(), tenantFromLocals(c), req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusCreated, db)
}

// ListDatabases pages through the tenant's databases. Paging and an optional
// name filter come from query parameters.
func (h *Handler) ListDatabases(c *fiber.Ctx) error {
	req := usecase.ListDatabasesRequest{
		Page:       c.QueryInt("page"),
		PageSize:   c.QueryInt("pageSize"),
		NameFilter: c.Query("name"),
	}

	page, err := h.Gateway.ListDatabases(c.UserContext(), tenantFromLocals(c), req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondPage(c, page.Items, page.Pagination)
}

// GetDatabase returns one database with its collections and live document
// counts.
func (h *Handler) GetDatabase(c *fiber.Ctx) error {
	detail, err := h.Gateway.GetDatabase(c.UserContext(), tenantFromLocals(c), c.Params("databaseID"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusOK, detail)
}

// DropDatabase removes a database and everything under it.
func (h *Handler) DropDatabase(c *fiber.Ctx) error {
	if err := h.Gateway.DropDatabase(c.UserContext(), tenantFromLocals(c), c.Params("databaseID")); err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
