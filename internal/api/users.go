package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/domain/identity"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/roles"
	"github.com/ehr/clinic/pkg/pagination"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	auth.Token
	User map[string]interface{} `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.Authenticate(req.Username, req.Password)
	if errors.Is(err, roles.ErrInvalidCredentials) {
		h.logger.Warn().Str("username", req.Username).Str("ip", c.RealIP()).Msg("failed login")
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	if err != nil {
		return fail(err)
	}
	tok, err := h.issuer.Issue(u.ID(), u.Username, string(u.Role()))
	if err != nil {
		return err
	}
	st, err := h.svc.Staff(u.ID())
	if err != nil {
		return fail(err)
	}
	profile, err := st.Profile()
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, loginResponse{Token: tok, User: profile})
}

// Logout revokes the presented token until it would have expired.
func (h *Handler) Logout(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil || claims.ID == "" {
		return message(c, http.StatusOK, "Logged out")
	}
	if h.revocations != nil && claims.ExpiresAt != nil {
		h.revocations.Revoke(claims.ID, claims.ExpiresAt.Time)
	}
	return message(c, http.StatusOK, "Logged out")
}

func (h *Handler) Me(c echo.Context) error {
	st, err := h.svc.Staff(currentUser(c))
	if err != nil {
		return fail(err)
	}
	profile, err := st.Profile()
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, profile)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	st, err := h.svc.Staff(currentUser(c))
	if err != nil {
		return fail(err)
	}
	if err := st.ChangePassword(req.OldPassword, req.NewPassword); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Password changed successfully")
}

// StaffByRole lists accounts of one role, for picking a doctor or lab member.
func (h *Handler) StaffByRole(c echo.Context) error {
	role := identity.Role(c.Param("role"))
	if _, err := identity.NewProfile(role); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, h.svc.Registry().UsersByRole(role))
}

func (h *Handler) ListUsers(c echo.Context) error {
	admin, err := h.svc.Admin(currentUser(c))
	if err != nil {
		return fail(err)
	}
	users := admin.Users(identity.Role(c.QueryParam("role")))
	return c.JSON(http.StatusOK, pagination.Page(users, pagination.FromContext(c)))
}

type createUserRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Role       string `json:"role"`
	Speciality string `json:"speciality"`
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	admin, err := h.svc.Admin(currentUser(c))
	if err != nil {
		return fail(err)
	}
	u, err := admin.CreateUser(roles.UserDetails{
		Username:   req.Username,
		Password:   req.Password,
		Name:       req.Name,
		Surname:    req.Surname,
		Role:       identity.Role(req.Role),
		Speciality: req.Speciality,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, u.ToMap())
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	admin, err := h.svc.Admin(currentUser(c))
	if err != nil {
		return fail(err)
	}
	if err := admin.DeleteUser(id); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "User deleted successfully")
}
