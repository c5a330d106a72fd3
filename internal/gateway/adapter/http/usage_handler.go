package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/usecase"
	"docbase/internal/shared/errors"
)

// Usage returns the tenant's document-traffic rollup for the window
// containing the reference time. "window" defaults to daily and "at" to now.
func (h *Handler) Usage(c *fiber.Ctx) error {
	req := usecase.UsageRequest{Window: model.RollupDaily}
	if window := c.Query("window"); window != "" {
		req.Window = model.RollupWindow(window)
	}
	if raw := c.Query("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return respondError(c, h.Log,
				errors.NewValidationError("at must be an RFC 3339 timestamp").WithCause(err))
		}
		req.At = at
	}

	rollup, err := h.Gateway.Usage(c.UserContext(), tenantFromLocals(c), req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return respondData(c, fiber.StatusOK, rollup)
}
