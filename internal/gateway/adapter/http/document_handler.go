package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/usecase"
)

// QueryDocuments pages through a collection. The equality filter arrives as a
// JSON object in the "filters" query parameter.
func (h *Handler) QueryDocuments(c *fiber.Ctx) error {
	req := usecase.QueryRequest{
		Page:       c.QueryInt("page"),
		PageSize:   c.QueryInt("pageSize"),
		FilterJSON: c.Query("filters"),
	}

	page, err := h.Gateway.QueryDocuments(c.UserContext(), tenantFromLocals(c),
		c.Params("databaseID"), c.Params("collectionName"), req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondPage(c, page.Data, page.Pagination)
}

// InsertDocuments stores documents posted either as a single JSON object or
// as an array of objects. The response carries the store-assigned IDs.
func (h *Handler) InsertDocuments(c *fiber.Ctx) error {
	docs, err := parseDocumentsBody(c.Body())
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ids, err := h.Gateway.InsertDocuments(c.UserContext(), tenantFromLocals(c),
		c.Params("databaseID"), c.Params("collectionName"), docs)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusCreated, fiber.Map{"ids": ids})
}

// UpdateDocument applies a field patch to one document.
func (h *Handler) UpdateDocument(c *fiber.Ctx) error {
	var patch model.Document
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return respondError(c, h.Log, errInvalidBody(err))
	}

	err := h.Gateway.UpdateDocument(c.UserContext(), tenantFromLocals(c),
		c.Params("databaseID"), c.Params("collectionName"), c.Params("documentID"), patch)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"updated": true})
}

// DeleteDocument removes one document.
func (h *Handler) DeleteDocument(c *fiber.Ctx) error {
	err := h.Gateway.DeleteDocument(c.UserContext(), tenantFromLocals(c),
		c.Params("databaseID"), c.Params("collectionName"), c.Params("documentID"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// parseDocumentsBody accepts `{...}` and `[{...}, ...]` bodies.
func parseDocumentsBody(body []byte) ([]model.Document, error) {
	var many []model.Document
	if err := json.Unmarshal(body, &many); err == nil {
		return many, nil
	}
	var one model.Document
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, errInvalidBody(err)
	}
	return []model.Document{one}, nil
}
