package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// ReservationService is the engine surface the HTTP layer calls.
type ReservationService interface {
	CreateReservation(ctx context.Context, in service.CreateReservationInput) (*model.Reservation, error)
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	GetReservationByToken(ctx context.Context, token string) (*model.Reservation, error)
	ListReservations(ctx context.Context) ([]model.Reservation, error)
	ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]model.Reservation, error)
	ConfirmReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	ConfirmReservationByToken(ctx context.Context, token string) (*model.Reservation, error)
	CheckInReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	CheckInReservationByToken(ctx context.Context, token string) (*model.Reservation, error)
	VerifyReservation(ctx context.Context, token string) (*model.Reservation, bool, error)
	CancelReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	CancelOwnReservation(ctx context.Context, id, userID uint64) (*model.Reservation, error)
	UpdateReservation(ctx context.Context, id uint64, patch service.ReservationPatch) (*model.Reservation, error)
	DeleteReservation(ctx context.Context, id uint64) error
	AvailableCapacity(ctx context.Context, restaurantID uint64, start, end time.Time) (int, error)
}

type ReservationHandler struct {
	svc ReservationService
}

func NewReservationHandler(svc ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

type createReservationReq struct {
	RestaurantID       uint64    `json:"restaurant_id"`
	CustomerName       string    `json:"customer_name"`
	CustomerEmail      string    `json:"customer_email"`
	CustomerPhone      string    `json:"customer_phone"`
	PartySize          int       `json:"party_size"`
	ReservationTime    time.Time `json:"reservation_time"`
	MealType           string    `json:"meal_type"`
	SpecialRequests    *string   `json:"special_requests"`
	IsGroupReservation *bool     `json:"is_group_reservation"`
	MenusRequired      *int      `json:"menus_required"`
}

type updateReservationReq struct {
	CustomerName       *string    `json:"customer_name"`
	CustomerEmail      *string    `json:"customer_email"`
	CustomerPhone      *string    `json:"customer_phone"`
	MealType           *string    `json:"meal_type"`
	SpecialRequests    *string    `json:"special_requests"`
	PartySize          *int       `json:"party_size"`
	ReservationTime    *time.Time `json:"reservation_time"`
	IsGroupReservation *bool      `json:"is_group_reservation"`
	MenusRequired      *int       `json:"menus_required"`
}

// Create handles POST /v1/reservations.  Anonymous bookings are allowed; a
// valid bearer token attaches the booking to the caller.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in := service.CreateReservationInput{
		RestaurantID:       req.RestaurantID,
		CustomerName:       req.CustomerName,
		CustomerEmail:      req.CustomerEmail,
		CustomerPhone:      req.CustomerPhone,
		PartySize:          req.PartySize,
		ReservationTime:    req.ReservationTime,
		MealType:           req.MealType,
		SpecialRequests:    req.SpecialRequests,
		IsGroupReservation: req.IsGroupReservation,
		MenusRequired:      req.MenusRequired,
	}
	if uid, ok := middleware.UserID(c); ok {
		in.UserID = &uid
	}
	r, err := h.svc.CreateReservation(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// ---- token endpoints (the token is the credential) ----

func (h *ReservationHandler) GetByToken(c echo.Context) error {
	r, err := h.svc.GetReservationByToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) ConfirmByToken(c echo.Context) error {
	return h.respond(c, func(ctx context.Context) (*model.Reservation, error) {
		return h.svc.ConfirmReservationByToken(ctx, c.Param("token"))
	})
}

func (h *ReservationHandler) CheckInByToken(c echo.Context) error {
	return h.respond(c, func(ctx context.Context) (*model.Reservation, error) {
		return h.svc.CheckInReservationByToken(ctx, c.Param("token"))
	})
}

// VerifyByToken completes a checked-in reservation.  A reservation in any
// other status comes back unchanged with 400.
func (h *ReservationHandler) VerifyByToken(c echo.Context) error {
	r, verified, err := h.svc.VerifyReservation(c.Request().Context(), c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	if !verified {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":       "reservation could not be verified",
			"reservation": r,
		})
	}
	return c.JSON(http.StatusOK, r)
}

// ---- staff endpoints ----

// List handles GET /v1/reservations.  restaurant_id narrows the listing to
// one restaurant; start and end narrow it to a reservation time range.
// Both filters may be combined.
func (h *ReservationHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	start, hasStart, ok1 := parseTimeParam(c, "start")
	end, hasEnd, ok2 := parseTimeParam(c, "end")
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC 3339 timestamps"})
	}
	if hasStart != hasEnd {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end are both required"})
	}
	var restaurantID uint64
	if raw := c.QueryParam("restaurant_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant_id"})
		}
		restaurantID = id
	}

	var (
		out []model.Reservation
		err error
	)
	switch {
	case restaurantID != 0:
		out, err = h.svc.ListByRestaurant(ctx, restaurantID)
		if err == nil && hasStart {
			if end.Before(start) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must not be before start"})
			}
			out = inRange(out, start, end)
		}
	case hasStart:
		out, err = h.svc.ListByDateRange(ctx, start, end)
	default:
		out, err = h.svc.ListReservations(ctx)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "total": len(out)})
}

func inRange(rs []model.Reservation, start, end time.Time) []model.Reservation {
	out := make([]model.Reservation, 0, len(rs))
	for _, r := range rs {
		if !r.ReservationTime.Before(start) && !r.ReservationTime.After(end) {
			out = append(out, r)
		}
	}
	return out
}

// ListByRestaurant handles GET /v1/restaurants/:id/reservations.
func (h *ReservationHandler) ListByRestaurant(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	out, err := h.svc.ListByRestaurant(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "total": len(out)})
}

func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.svc.GetReservation(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) Confirm(c echo.Context) error {
	return h.byID(c, h.svc.ConfirmReservation)
}

func (h *ReservationHandler) CheckIn(c echo.Context) error {
	return h.byID(c, h.svc.CheckInReservation)
}

func (h *ReservationHandler) Cancel(c echo.Context) error {
	return h.byID(c, h.svc.CancelReservation)
}

func (h *ReservationHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.svc.UpdateReservation(c.Request().Context(), id, service.ReservationPatch(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.svc.DeleteReservation(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- customer endpoints ----

// Mine handles GET /v1/me/reservations.
func (h *ReservationHandler) Mine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	out, err := h.svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "total": len(out)})
}

// CancelMine handles PUT /v1/me/reservations/:id/cancel.
func (h *ReservationHandler) CancelMine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.byID(c, func(ctx context.Context, id uint64) (*model.Reservation, error) {
		return h.svc.CancelOwnReservation(ctx, id, uid)
	})
}

// ---- availability ----

// Availability handles GET /v1/restaurants/:id/availability.  Either start
// and end, or at for the occupancy window around a time, must be given.
func (h *ReservationHandler) Availability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	start, hasStart, ok1 := parseTimeParam(c, "start")
	end, hasEnd, ok2 := parseTimeParam(c, "end")
	at, hasAt, ok3 := parseTimeParam(c, "at")
	if !ok1 || !ok2 || !ok3 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "times must be RFC 3339 timestamps"})
	}
	switch {
	case hasStart && hasEnd:
	case hasAt:
		start, end = service.OccupancyBounds(at)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide start and end, or at"})
	}

	free, err := h.svc.AvailableCapacity(c.Request().Context(), id, start, end)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"restaurant_id": id,
		"start":         start,
		"end":           end,
		"available":     free,
	})
}

func (h *ReservationHandler) byID(c echo.Context, op func(context.Context, uint64) (*model.Reservation, error)) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	return h.respond(c, func(ctx context.Context) (*model.Reservation, error) { return op(ctx, id) })
}

func (h *ReservationHandler) respond(c echo.Context, op func(context.Context) (*model.Reservation, error)) error {
	r, err := op(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}
