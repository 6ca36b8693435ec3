package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/roles"
	"github.com/ehr/clinic/pkg/pagination"
)

func (h *Handler) registerSchedulingRoutes(g *echo.Group) {
	desk := g.Group("/appointments", auth.RequireRole(roleReceptionist))
	desk.GET("", h.ListAppointments)
	desk.GET("/upcoming", h.UpcomingAppointments)
	desk.POST("", h.AddAppointment)
	desk.PUT("/:id", h.EditAppointment)
	desk.DELETE("/:id", h.DeleteAppointment)
	desk.POST("/:id/status", h.MarkAppointmentStatus)
	desk.POST("/:id/:action", h.TransitionAppointment)

	doc := g.Group("/appointments", auth.RequireRole(roleDoctor))
	doc.GET("/mine", h.MyAppointments)
	doc.POST("/schedule", h.ScheduleAppointment)

	adm := g.Group("/admissions", auth.RequireRole(roleReceptionist, roleDoctor))
	adm.GET("", h.ListAdmissions)
	adm.POST("", h.AdmitPatient)
	adm.POST("/discharge/:patient_id", h.DischargePatient)
}

type appointmentRequest struct {
	PatientID int    `json:"patient_id"`
	DoctorID  int    `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	About     string `json:"about"`
}

func (r appointmentRequest) details() (roles.AppointmentDetails, error) {
	at, err := parseDateTime(r.Date, r.Time)
	if err != nil {
		return roles.AppointmentDetails{}, err
	}
	return roles.AppointmentDetails{PatientID: r.PatientID, DoctorID: r.DoctorID, At: at, About: r.About}, nil
}

func (h *Handler) ListAppointments(c echo.Context) error {
	list := h.svc.Registry().Appointments(nil)
	return c.JSON(http.StatusOK, pagination.Page(list, pagination.FromContext(c)))
}

func (h *Handler) UpcomingAppointments(c echo.Context) error {
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, desk.UpcomingAppointments())
}

func (h *Handler) AddAppointment(c echo.Context) error {
	var req appointmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	d, err := req.details()
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	a, err := desk.AddAppointment(d)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, a.ToMap())
}

func (h *Handler) EditAppointment(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req appointmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	d, err := req.details()
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.EditAppointment(id, d); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Appointment updated successfully")
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.DeleteAppointment(id); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Appointment deleted successfully")
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) MarkAppointmentStatus(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.MarkAppointmentStatus(id, req.Status); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Appointment status updated")
}

// TransitionAppointment handles POST /appointments/:id/{cancel,complete,no-show}.
func (h *Handler) TransitionAppointment(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.TransitionAppointment(id, c.Param("action")); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Appointment status updated")
}

func (h *Handler) MyAppointments(c echo.Context) error {
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc.Appointments())
}

// ScheduleAppointment books a patient with the calling doctor; doctor_id in
// the body is ignored.
func (h *Handler) ScheduleAppointment(c echo.Context) error {
	var req appointmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	d, err := req.details()
	if err != nil {
		return err
	}
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	a, err := doc.ScheduleAppointment(d.PatientID, d.At, d.About)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, a.ToMap())
}

// -- Admissions --

type admissionRequest struct {
	PatientID int    `json:"patient_id"`
	DoctorID  int    `json:"doctor_id"`
	Date      string `json:"date"`
}

func (h *Handler) ListAdmissions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Registry().Admissions())
}

// AdmitPatient admits under doctor_id when called by a receptionist and under
// the caller when called by a doctor. The date defaults to today.
func (h *Handler) AdmitPatient(c echo.Context) error {
	var req admissionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	at, err := parseDate(req.Date, "date")
	if err != nil {
		return err
	}
	if at.IsZero() {
		at = h.svc.Registry().Now()
	}
	if auth.RoleFromContext(c.Request().Context()) == roleDoctor {
		doc, err := h.doctor(c)
		if err != nil {
			return err
		}
		a, err := doc.Admit(req.PatientID, at)
		if err != nil {
			return fail(err)
		}
		return c.JSON(http.StatusCreated, a.ToMap())
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	a, err := desk.AdmitPatient(req.PatientID, req.DoctorID, at)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, a.ToMap())
}

func (h *Handler) DischargePatient(c echo.Context) error {
	id, err := intParam(c, "patient_id")
	if err != nil {
		return err
	}
	if auth.RoleFromContext(c.Request().Context()) == roleDoctor {
		doc, err := h.doctor(c)
		if err != nil {
			return err
		}
		if err := doc.Discharge(id); err != nil {
			return fail(err)
		}
		return message(c, http.StatusOK, "Patient discharged successfully")
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.DischargePatient(id); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Patient discharged successfully")
}
