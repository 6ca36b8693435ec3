package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/roles"
)

func (h *Handler) registerCareRoutes(g *echo.Group) {
	doctorOnly := auth.RequireRole(roleDoctor)
	g.POST("/prescriptions", h.Prescribe, doctorOnly)
	g.GET("/prescriptions/invalid", h.InvalidPrescriptions, doctorOnly)
	g.POST("/lab/orders", h.OrderLabTest, doctorOnly)

	rx := g.Group("/prescriptions", auth.RequireRole(rolePharmacist))
	rx.GET("/pending", h.PendingPrescriptions)
	rx.GET("/dispense-queue", h.DispenseQueue)
	rx.POST("/:id/approve", h.ApprovePrescription)
	rx.POST("/:id/reject", h.RejectPrescription)
	rx.POST("/:id/dispense", h.DispensePrescription)

	lab := g.Group("/lab", auth.RequireRole(roleLab))
	lab.GET("/pending", h.PendingLabs)
	lab.POST("/orders/:id/result", h.ReturnLabResult)

	nurse := g.Group("/nurse", auth.RequireRole(roleNurse))
	nurse.POST("/treatments", h.AdministerTreatment)
	nurse.POST("/lab-assist/:id", h.AssistLabTest)
	nurse.POST("/lab-assist/finish", h.FinishLabAssist)
}

func (h *Handler) pharmacist(c echo.Context) (*roles.Pharmacist, error) {
	p, err := h.svc.Pharmacist(currentUser(c))
	if err != nil {
		return nil, fail(err)
	}
	return p, nil
}

// -- Prescriptions --

type prescribeRequest struct {
	PatientID  int     `json:"patient_id"`
	Medication string  `json:"medication"`
	Dosage     string  `json:"dosage"`
	Amount     float64 `json:"amount"`
}

type prescribeResponse struct {
	Prescription map[string]interface{} `json:"prescription"`
	PharmacistID int                    `json:"pharmacist_id"`
	Message      string                 `json:"message"`
}

func (h *Handler) Prescribe(c echo.Context) error {
	var req prescribeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	rx, pharmacistID, err := doc.Prescribe(req.PatientID, req.Medication, req.Dosage, req.Amount)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, prescribeResponse{
		Prescription: rx.ToMap(),
		PharmacistID: pharmacistID,
		Message:      "Prescription sent for verification",
	})
}

func (h *Handler) InvalidPrescriptions(c echo.Context) error {
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	list, err := doc.InvalidPrescriptions()
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) PendingPrescriptions(c echo.Context) error {
	ph, err := h.pharmacist(c)
	if err != nil {
		return err
	}
	list, err := ph.Pending()
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) DispenseQueue(c echo.Context) error {
	ph, err := h.pharmacist(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ph.DispenseQueue())
}

type feedbackRequest struct {
	Message string `json:"message"`
}

func (h *Handler) ApprovePrescription(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req feedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ph, err := h.pharmacist(c)
	if err != nil {
		return err
	}
	if err := ph.Approve(id, req.Message); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Prescription approved")
}

func (h *Handler) RejectPrescription(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req feedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ph, err := h.pharmacist(c)
	if err != nil {
		return err
	}
	if err := ph.Reject(id, req.Message); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Prescription rejected")
}

type dispenseResponse struct {
	Message string                 `json:"message"`
	Fee     map[string]interface{} `json:"fee,omitempty"`
}

func (h *Handler) DispensePrescription(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	ph, err := h.pharmacist(c)
	if err != nil {
		return err
	}
	fee, err := ph.Dispense(id)
	if err != nil {
		return fail(err)
	}
	resp := dispenseResponse{Message: "Prescription dispensed"}
	if fee != nil {
		resp.Fee = fee.ToMap()
	}
	return c.JSON(http.StatusOK, resp)
}

// -- Lab --

type labOrderRequest struct {
	PatientID      int    `json:"patient_id"`
	TestType       string `json:"test_type"`
	LabPersonnelID int    `json:"lab_personnel_id"`
}

func (h *Handler) OrderLabTest(c echo.Context) error {
	var req labOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	doc, err := h.doctor(c)
	if err != nil {
		return err
	}
	lr, err := doc.OrderLabTest(req.PatientID, req.TestType, req.LabPersonnelID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, lr.ToMap())
}

func (h *Handler) PendingLabs(c echo.Context) error {
	lab, err := h.svc.Lab(currentUser(c))
	if err != nil {
		return fail(err)
	}
	list, err := lab.PendingLabs()
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, list)
}

type labResultRequest struct {
	Result string `json:"result"`
}

func (h *Handler) ReturnLabResult(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req labResultRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	lab, err := h.svc.Lab(currentUser(c))
	if err != nil {
		return fail(err)
	}
	res, err := lab.ReturnResult(id, req.Result)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, res.ToMap())
}

// -- Nursing --

type administerRequest struct {
	PatientID int    `json:"patient_id"`
	Medicine  string `json:"medicine"`
}

func (h *Handler) nurse(c echo.Context) (*roles.Nurse, error) {
	n, err := h.svc.Nurse(currentUser(c))
	if err != nil {
		return nil, fail(err)
	}
	return n, nil
}

func (h *Handler) AdministerTreatment(c echo.Context) error {
	var req administerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	n, err := h.nurse(c)
	if err != nil {
		return err
	}
	if err := n.AdministerTreatment(req.PatientID, req.Medicine); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Treatment administered")
}

func (h *Handler) AssistLabTest(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	n, err := h.nurse(c)
	if err != nil {
		return err
	}
	if err := n.AssistLabTest(id); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Assisting lab test")
}

func (h *Handler) FinishLabAssist(c echo.Context) error {
	n, err := h.nurse(c)
	if err != nil {
		return err
	}
	if err := n.FinishLabAssist(); err != nil {
		return fail(err)
	}
	return message(c, http.StatusOK, "Lab assistance finished")
}
