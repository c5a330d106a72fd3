package http

import (
	"github.com/gofiber/fiber/v2"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/shared/utils"
)

// TenantIDHeader carries the caller's tenant on every request.
const TenantIDHeader = "X-Tenant-ID"

const tenantLocalsKey = "tenantID"

// TenantMiddleware resolves the tenant from the request and stores it in both
// fiber locals and the request context. Requests without a valid tenant never
// reach a handler; an invalid tenant must not be distinguishable from a
// missing one beyond the validation message.
func TenantMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := c.Get(TenantIDHeader)
		if tenantID == "" {
			// Query fallback for tooling that cannot set headers.
			tenantID = c.Query("tenant_id")
		}
		if tenantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(APIResponse{
				Success: false,
				Error: &APIError{
					Type:    "VALIDATION_ERROR",
					Message: "tenant ID is required",
				},
			})
		}
		if err := model.ValidateTenantID(tenantID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(APIResponse{
				Success: false,
				Error: &APIError{
					Type:    "VALIDATION_ERROR",
					Message: err.Error(),
				},
			})
		}

		c.Locals(tenantLocalsKey, tenantID)
		c.SetUserContext(utils.WithTenantID(c.UserContext(), tenantID))

		if databaseID := c.Params("databaseID"); databaseID != "" {
			c.SetUserContext(utils.WithDatabaseID(c.UserContext(), databaseID))
		}
		return c.Next()
	}
}

func tenantFromLocals(c *fiber.Ctx) string {
	tenantID, _ := c.Locals(tenantLocalsKey).(string)
	return tenantID
}
