package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"docbase/internal/gateway/usecase"
	"docbase/internal/shared/logger"
)

// Handler exposes the gateway over a tenant-scoped REST API. Every route
// lives below the tenant middleware; handlers read the resolved tenant from
// locals and never trust identifiers in the body over those in the path.
type Handler struct {
	Gateway  usecase.Gateway
	Log      logger.Logger
	validate *validator.Validate
}

// NewHandler creates the HTTP handler.
func NewHandler(gw usecase.Gateway, log logger.Logger) *Handler {
	return &Handler{
		Gateway:  gw,
		Log:      log.WithComponent("http"),
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the API under /api/v1.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	api := router.Group("/api/v1", TenantMiddleware())

	api.Post("/databases", h.CreateDatabase)
	api.Get("/databases", h.ListDatabases)
	api.Get("/databases/:databaseID", h.GetDatabase)
	api.Delete("/databases/:databaseID", h.DropDatabase)

	api.Post("/databases/:databaseID/collections", h.CreateCollection)
	api.Put("/databases/:databaseID/collections/rename", h.RenameCollection)
	api.Put("/databases/:databaseID/collections/fields", h.AlterCollectionFields)
	api.Delete("/databases/:databaseID/collections/:collectionName", h.DropCollection)

	api.Get("/databases/:databaseID/collections/:collectionName/documents", h.QueryDocuments)
	api.Post("/databases/:databaseID/collections/:collectionName/documents", h.InsertDocuments)
	api.Put("/databases/:databaseID/collections/:collectionName/documents/:documentID", h.UpdateDocument)
	api.Delete("/databases/:databaseID/collections/:collectionName/documents/:documentID", h.DeleteDocument)

	api.Get("/usage", h.Usage)
}

// parseBody decodes and validates a JSON request body.
func (h *Handler) parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errInvalidBody(err)
	}
	if err := h.validate.Struct(out); err != nil {
		return errInvalidBody(err)
	}
	return nil
}
