package merge

import (
	"errors"

	"feed-merger/core/feed"
	"feed-merger/core/feedstore"
	"feed-merger/core/graph"
	"feed-merger/core/identity"
	"feed-merger/core/logger"
	engine "feed-merger/core/merge"
	"feed-merger/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultRunsLimit = 20

// Handler handles HTTP requests for merges.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the merge routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/merge")
	group.Post("/", h.HandleMerge)
	group.Get("/feeds", h.HandleFeeds)
	group.Get("/runs", h.HandleRuns)
	group.Get("/runs/:id", h.HandleRun)
	group.Get("/runs/:id/archive", h.HandleArchive)
	group.Get("/reconcile", h.HandleReconcilePlan)
	group.Post("/reconcile", h.HandleReconcileApply)
}

// status maps a service error to an HTTP status.
func status(err error) int {
	var tableErr *feed.TableError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, feed.ErrObjectNotFound), errors.Is(err, feedstore.ErrRunNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrNoDatabase):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, engine.ErrUnresolvedReference),
		errors.Is(err, engine.ErrRenameExhausted),
		errors.Is(err, identity.ErrMalformedIdentifier),
		errors.Is(err, graph.ErrDuplicateIdentifier),
		errors.As(err, &tableErr):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, l *zap.Logger, msg string, err error) error {
	code := status(err)
	if code >= fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Warn(msg, zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// HandleMerge merges archives from the bucket.
// @Summary Merge Feeds
// @Description Merges the listed feed archives in order, uploads the merged archive and returns the run report.
// @Security ApiKeyAuth
// @Tags merge
// @Accept json
// @Produce json
// @Param request body Request true "Sources and output object"
// @Success 200 {object} Response "Merge Result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Source Not Found"
// @Failure 422 {object} map[string]string "Unmergeable Feed"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /merge [post]
func (h *Handler) HandleMerge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	l.Info("Merge requested", zap.Strings("sources", req.Sources))
	resp, err := h.service.Merge(c.UserContext(), req)
	if err != nil {
		return fail(c, l, "Merge failed", err)
	}
	return c.JSON(resp)
}

// HandleFeeds lists the feed archives in the bucket.
// @Summary List Feeds
// @Description Lists the zip archives stored in the bucket.
// @Security ApiKeyAuth
// @Tags merge
// @Produce json
// @Param prefix query string false "Object prefix"
// @Success 200 {object} map[string]interface{} "Feed List"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /merge/feeds [get]
func (h *Handler) HandleFeeds(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	feeds, err := h.service.Feeds(c.UserContext(), c.Query("prefix"))
	if err != nil {
		return fail(c, l, "Listing feeds failed", err)
	}
	return c.JSON(fiber.Map{"feeds": feeds})
}

// HandleRuns lists persisted runs.
// @Summary List Runs
// @Description Lists persisted merge runs, newest first.
// @Security ApiKeyAuth
// @Tags merge
// @Produce json
// @Param limit query int false "Maximum number of runs"
// @Success 200 {object} map[string]interface{} "Run List"
// @Failure 503 {object} map[string]string "No Database"
// @Router /merge/runs [get]
func (h *Handler) HandleRuns(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	limit := c.QueryInt("limit", defaultRunsLimit)
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := h.service.Runs(c.UserContext(), limit)
	if err != nil {
		return fail(c, l, "Listing runs failed", err)
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// HandleRun returns the report of a run.
// @Summary Get Run Report
// @Description Returns the report of a persisted merge run.
// @Security ApiKeyAuth
// @Tags merge
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} engine.Report "Run Report"
// @Failure 404 {object} map[string]string "Run Not Found"
// @Failure 503 {object} map[string]string "No Database"
// @Router /merge/runs/{id} [get]
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.Report(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, l, "Loading run failed", err)
	}
	return c.JSON(report)
}

// HandleArchive downloads the merged feed of a run.
// @Summary Download Run Archive
// @Description Rebuilds the merged feed of a persisted run as a zip archive.
// @Security ApiKeyAuth
// @Tags merge
// @Produce application/zip
// @Param id path string true "Run ID"
// @Success 200 {file} file "Merged Feed"
// @Failure 404 {object} map[string]string "Run Not Found"
// @Failure 503 {object} map[string]string "No Database"
// @Router /merge/runs/{id}/archive [get]
func (h *Handler) HandleArchive(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id := c.Params("id")

	data, err := h.service.Archive(c.UserContext(), id)
	if err != nil {
		return fail(c, l, "Exporting run failed", err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+id+`.zip"`)
	return c.Send(data)
}

// HandleReconcilePlan reports runs and archives that disagree.
// @Summary Plan Reconciliation
// @Description Compares persisted runs with the merged archives of the bucket and plans repairs without applying them.
// @Security ApiKeyAuth
// @Tags merge
// @Produce json
// @Param purge query boolean false "Plan the deletion of runs whose archive is missing"
// @Param restore query boolean false "Plan the upload of missing archives from persisted runs"
// @Success 200 {object} reconcile.ReconcilePlan "Reconcile Plan"
// @Failure 503 {object} map[string]string "No Database"
// @Router /merge/reconcile [get]
func (h *Handler) HandleReconcilePlan(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	plan, _, err := h.service.Reconcile(c.UserContext(), reconcile.ReconcileOptions{
		DoPurge:   c.QueryBool("purge"),
		DoRestore: c.QueryBool("restore"),
		DryRun:    true,
	})
	if err != nil {
		return fail(c, l, "Reconcile failed", err)
	}
	return c.JSON(plan)
}

// HandleReconcileApply repairs runs and archives that disagree.
// @Summary Apply Reconciliation
// @Description Plans and applies repairs. Nothing is changed unless confirm=true.
// @Security ApiKeyAuth
// @Tags merge
// @Produce json
// @Param purge query boolean false "Delete runs whose archive is missing"
// @Param restore query boolean false "Upload missing archives from persisted runs"
// @Param confirm query boolean false "Confirm the mutations"
// @Success 200 {object} map[string]interface{} "Plan and executed actions"
// @Failure 500 {object} map[string]string "Reconcile Failed"
// @Failure 503 {object} map[string]string "No Database"
// @Router /merge/reconcile [post]
func (h *Handler) HandleReconcileApply(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	opts := reconcile.ReconcileOptions{
		DoPurge:   c.QueryBool("purge"),
		DoRestore: c.QueryBool("restore"),
		Confirmed: c.QueryBool("confirm"),
	}
	plan, executed, err := h.service.Reconcile(c.UserContext(), opts)
	if err != nil {
		return fail(c, l, "Reconcile failed", err)
	}
	if executed > 0 {
		l.Info("Reconcile applied", zap.Int("executed", executed))
	}
	return c.JSON(fiber.Map{
		"plan":     plan,
		"executed": executed,
	})
}
