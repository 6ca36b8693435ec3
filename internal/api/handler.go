// Package api maps the clinic's role facades onto HTTP routes.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/roles"
)

type Handler struct {
	svc         *roles.Service
	issuer      *auth.Issuer
	revocations *auth.TokenRevocationStore
	logger      zerolog.Logger
}

func NewHandler(svc *roles.Service, issuer *auth.Issuer, revocations *auth.TokenRevocationStore, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, issuer: issuer, revocations: revocations, logger: logger}
}

const (
	roleAdmin        = "admin"
	roleDoctor       = "doctor"
	roleReceptionist = "receptionist"
	rolePharmacist   = "pharmacist"
	roleNurse        = "nurse"
	roleLab          = "lab_personnel"
)

var allRoles = []string{roleAdmin, roleDoctor, roleReceptionist, rolePharmacist, roleNurse, roleLab}

// RegisterRoutes mounts every clinic route on api, normally the /api group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/login", h.Login)

	authed := api.Group("", auth.RequireAuthenticated())
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/users/me", h.Me)
	authed.PUT("/users/me/password", h.ChangePassword)
	authed.GET("/staff/:role", h.StaffByRole, auth.RequireRole(allRoles...))

	h.registerUserRoutes(authed)
	h.registerPatientRoutes(authed)
	h.registerSchedulingRoutes(authed)
	h.registerSupplyRoutes(authed)
	h.registerCareRoutes(authed)
	h.registerFinanceRoutes(authed)
}

func (h *Handler) registerUserRoutes(g *echo.Group) {
	admin := g.Group("/users", auth.RequireRole(roleAdmin))
	admin.GET("", h.ListUsers)
	admin.POST("", h.CreateUser)
	admin.DELETE("/:id", h.DeleteUser)
}

// fail converts a core error to the HTTP error answered to the client. The
// message is forwarded verbatim.
func fail(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func intParam(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func currentUser(c echo.Context) int {
	return auth.UserIDFromContext(c.Request().Context())
}

func message(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"message": msg})
}

// parseDate accepts YYYY-MM-DD; empty yields the zero time.
func parseDate(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, field+" must be in YYYY-MM-DD format")
	}
	return t, nil
}

// parseDateTime combines a YYYY-MM-DD date with an optional HH:MM time.
func parseDateTime(date, clock string) (time.Time, error) {
	if date == "" {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	if clock == "" {
		return parseDate(date, "date")
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, date+" "+clock); err == nil {
			return t, nil
		}
	}
	return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "time must be in HH:MM format")
}

// ErrorHandler renders every failure as {"error": message} and logs server
// errors.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(code)
			}
		} else if k := apperr.KindOf(err); k != "" {
			code = apperr.HTTPStatus(err)
			msg = err.Error()
		}
		if code >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}
