package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/cache"
)

// CacheHandler exposes cache statistics and manual invalidation to staff.
type CacheHandler struct {
	cache cache.Cache
}

func NewCacheHandler(c cache.Cache) *CacheHandler { return &CacheHandler{cache: c} }

// Stats handles GET /v1/cache/stats.
func (h *CacheHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cache.Stats())
}

// Clear handles DELETE /v1/cache: drops every entry and resets counters.
func (h *CacheHandler) Clear(c echo.Context) error {
	if err := h.cache.Clear(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	h.cache.ResetStats()
	return c.NoContent(http.StatusNoContent)
}

// ClearScope handles DELETE /v1/cache/:scope.
func (h *CacheHandler) ClearScope(c echo.Context) error {
	pattern, ok := cache.ScopePattern(c.Param("scope"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown cache scope"})
	}
	if err := h.cache.Invalidate(c.Request().Context(), pattern); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
