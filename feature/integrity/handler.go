package integrity

import (
	"errors"

	"feed-merger/core/feed"
	"feed-merger/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/database", h.HandleDatabaseCheck)
	group.Get("/feed", h.HandleFeedCheck)
}

// HandleIntegrityCheck triggers the storage and database checks.
// @Summary Run All Integrity Checks
// @Description Performs the storage and database checks.
// @Security ApiKeyAuth
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report := make(map[string]interface{})

	if st, err := h.service.CheckStorage(c.UserContext()); err != nil {
		report["storage"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["storage"] = st
	}

	if db, err := h.service.CheckDatabase(); err != nil {
		report["database"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["database"] = db
	}

	return c.JSON(report)
}

// HandleStorageCheck checks and optionally fixes the bucket layout.
// @Summary Check Storage
// @Description Checks that the feed bucket and its folders exist. Optionally creates what is missing.
// @Security ApiKeyAuth
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Create the bucket and missing folders"
// @Success 200 {object} map[string]interface{} "Storage Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/storage [get]
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.QueryBool("fix")

	report, err := h.service.CheckStorage(c.UserContext())
	if err != nil {
		l.Error("Storage check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if fix && (!report.Exists || len(report.Missing) > 0) {
		l.Info("Attempting to fix storage", zap.Strings("missing", report.Missing))
		if err := h.service.FixStorage(c.UserContext(), report.Missing); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to fix storage",
				"details": err.Error(),
				"missing": report.Missing,
			})
		}
		return c.JSON(fiber.Map{
			"status": "fixed",
			"fixed":  report.Missing,
		})
	}

	if len(report.Missing) > 0 {
		l.Warn("Missing folders detected", zap.Strings("missing", report.Missing))
	}
	return c.JSON(fiber.Map{
		"status":  "checked",
		"exists":  report.Exists,
		"missing": report.Missing,
	})
}

// HandleDatabaseCheck checks the run tables.
// @Summary Check Database
// @Description Compares the run tables with the columns the store writes.
// @Security ApiKeyAuth
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.DatabaseReport "Database Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/database [get]
func (h *Handler) HandleDatabaseCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckDatabase()
	if err != nil {
		l.Error("Database check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleFeedCheck validates one feed archive.
// @Summary Check Feed
// @Description Loads a feed archive from the bucket and reports dangling references and out-of-order rows.
// @Security ApiKeyAuth
// @Tags integrity
// @Produce json
// @Param object query string true "Archive object name"
// @Success 200 {object} checks.FeedReport "Feed Report"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Feed Not Found"
// @Failure 422 {object} map[string]string "Unreadable Feed"
// @Router /integrity/feed [get]
func (h *Handler) HandleFeedCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	object := c.Query("object")
	if object == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "object is required"})
	}

	report, err := h.service.CheckFeed(c.UserContext(), object)
	if err != nil {
		l.Warn("Feed check failed", zap.String("object", object), zap.Error(err))
		code := fiber.StatusUnprocessableEntity
		if errors.Is(err, feed.ErrObjectNotFound) {
			code = fiber.StatusNotFound
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}
