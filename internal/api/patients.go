package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/domain/billing"
	"github.com/ehr/clinic/internal/domain/clinical"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/roles"
	"github.com/ehr/clinic/pkg/pagination"
)

func (h *Handler) registerPatientRoutes(g *echo.Group) {
	read := g.Group("/patients", auth.RequireRole(roleAdmin, roleReceptionist, roleDoctor, roleNurse, rolePharmacist))
	read.GET("", h.ListPatients)
	read.GET("/:id", h.GetPatientRecord)

	desk := g.Group("/patients", auth.RequireRole(roleReceptionist))
	desk.POST("", h.RegisterPatient)
	desk.PUT("/:id", h.UpdatePatient)
	desk.DELETE("/:id", h.DeletePatient)
	desk.POST("/:id/fees", h.AddFee)
	desk.PUT("/:id/fees/:fee_id", h.EditFee)
	desk.DELETE("/:id/fees/:fee_id", h.DeleteFee)
	desk.POST("/:id/fees/:fee_id/pay", h.PayFee)

	doc := g.Group("/patients", auth.RequireRole(roleDoctor))
	doc.POST("/:id/history", h.AddHistory)
	doc.POST("/:id/medications", h.AddMedication)
	doc.POST("/:id/treatments", h.AddTreatment)
	doc.GET("/:id/lab-results", h.ViewLabResults)
}

// ListPatients answers patient summaries, filtered by ?q= on name or contact.
func (h *Handler) ListPatients(c echo.Context) error {
	patients := h.svc.Registry().SearchPatients(c.QueryParam("q"))
	return c.JSON(http.StatusOK, pagination.Page(patients, pagination.FromContext(c)))
}

func (h *Handler) GetPatientRecord(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	st, err := h.svc.Staff(currentUser(c))
	if err != nil {
		return fail(err)
	}
	record, err := st.ViewPatientRecord(id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, record)
}

type patientRequest struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Contact string `json:"contact"`
}

func (r patientRequest) details() roles.PatientDetails {
	return roles.PatientDetails{Name: r.Name, Age: r.Age, Gender: r.Gender, Contact: r.Contact}
}

func (h *Handler) receptionist(c echo.Context) (*roles.Receptionist, error) {
	r, err := h.svc.Receptionist(currentUser(c))
	if err != nil {
		return nil, fail(err)
	}
	return r, nil
}

func (h *Handler) doctor(c echo.Context) (*roles.Doctor, error) {
	d, err := h.svc.Doctor(currentUser(c))
	if err != nil {
		return nil, fail(err)
	}
	return d, nil
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req patientRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	p, err := desk.RegisterPatient(req.details())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, p.Summary())
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req patientRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.UpdatePatient(id, req.details()); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Patient updated successfully")
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.DeletePatient(id); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Patient deleted successfully")
}

// -- Fees --

type feeRequest struct {
	Amount      float64 `json:"amount"`
	FeeType     string  `json:"fee_type"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

func (r feeRequest) details() (roles.FeeDetails, error) {
	t, err := billing.ParseFeeType(r.FeeType)
	if err != nil {
		return roles.FeeDetails{}, fail(err)
	}
	date, err := parseDate(r.Date, "date")
	if err != nil {
		return roles.FeeDetails{}, err
	}
	return roles.FeeDetails{Amount: r.Amount, Type: t, Description: r.Description, Date: date}, nil
}

func (h *Handler) AddFee(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req feeRequest
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
	fee, err := desk.AddFee(id, d)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, fee.ToMap())
}

func (h *Handler) EditFee(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	feeID, err := intParam(c, "fee_id")
	if err != nil {
		return err
	}
	var req feeRequest
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
	if err := desk.EditFee(id, feeID, d); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Fee updated successfully")
}

func (h *Handler) DeleteFee(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	feeID, err := intParam(c, "fee_id")
	if err != nil {
		return err
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.DeleteFee(id, feeID); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Fee deleted successfully")
}

type payFeeRequest struct {
	MethodType string  `json:"method_type"`
	Details    string  `json:"details"`
	Balance    float64 `json:"balance"`
}

type payFeeResponse struct {
	Message          string  `json:"message"`
	RemainingBalance float64 `json:"remaining_balance"`
}

// PayFee settles a fee from a payment method described in the request. The
// method is not stored; its remaining balance is echoed back.
func (h *Handler) PayFee(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	feeID, err := intParam(c, "fee_id")
	if err != nil {
		return err
	}
	var req payFeeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	method, err := billing.NewPaymentMethod(req.MethodType, req.Details, req.Balance)
	if err != nil {
		return fail(err)
	}
	desk, err := h.receptionist(c)
	if err != nil {
		return err
	}
	if err := desk.PayFee(id, feeID, method); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, payFeeResponse{Message: "Payment successful", RemainingBalance: method.Balance()})
}

// -- Clinical records --

type historyRequest struct {
	Entry string `json:"entry"`
}

func (h *Handler) AddHistory(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req historyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	if err := doc.AddHistory(id, req.Entry); err != nil {
		return fail(err)
	}
	return message(c, http.StatusCreated, "History entry added")
}

type courseRequest struct {
	Symptoms  string `json:"symptoms"`
	Diagnosis string `json:"diagnosis"`
	Treatment string `json:"treatment"`
	Date      string `json:"date"`
	EndDate   string `json:"end_date"`
	Finished  bool   `json:"finished"`
}

func (r courseRequest) course() (clinical.Course, error) {
	date, err := parseDate(r.Date, "date")
	if err != nil {
		return clinical.Course{}, err
	}
	return clinical.Course{
		Symptoms:  r.Symptoms,
		Diagnosis: r.Diagnosis,
		Treatment: r.Treatment,
		Date:      date,
		Finished:  r.Finished,
	}, nil
}

func (h *Handler) AddMedication(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req courseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	course, err := req.course()
	if err != nil {
		return err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return err
	}
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	m, err := doc.AddMedication(id, course, end)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, m.ToMap())
}

func (h *Handler) AddTreatment(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req courseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	course, err := req.course()
	if err != nil {
		return err
	}
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	t, err := doc.AddTreatment(id, course)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, t.ToMap())
}

func (h *Handler) ViewLabResults(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	results, err := doc.ViewLabResults(id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, results)
}
