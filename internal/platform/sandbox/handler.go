package sandbox

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/apperr"
)

// SeedHandler exposes data loading to administrators.
type SeedHandler struct {
	seeder *Seeder
	mu     sync.Mutex
	last   *Fixture
}

func NewSeedHandler(seeder *Seeder) *SeedHandler {
	return &SeedHandler{seeder: seeder}
}

// RegisterRoutes registers sandbox routes on the given Echo group. The group
// is expected to be restricted to admins.
func (h *SeedHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/seed", h.handleSeed)
	g.POST("/fixture", h.handleFixture)
	g.GET("/export", h.handleExport)
}

func (h *SeedHandler) handleSeed(c echo.Context) error {
	cfg := DefaultSeedConfig()
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	f := NewDataGenerator(cfg.Seed).Generate(cfg)
	result, err := h.seeder.Apply(f)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	h.last = f
	return c.JSON(http.StatusCreated, result)
}

func (h *SeedHandler) handleFixture(c echo.Context) error {
	f, err := LoadFixture(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	result, err := h.seeder.Apply(f)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}

// handleExport returns the last generated fixture as YAML so a synthetic data
// set can be replayed at startup through SEED_FILE.
func (h *SeedHandler) handleExport(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No generated data set")
	}
	out, err := h.last.Marshal()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/yaml", out)
}
