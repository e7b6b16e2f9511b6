package handlers

import (
	"errors"
	"time"

	"medtracker/internal/models"
	"medtracker/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MedicationHandler exposes medication ingestion and the adherence queries
type MedicationHandler struct {
	medications *services.MedicationStore
	adherence   *services.AdherenceService
	matcher     *services.ResponseMatcher
	loc         *time.Location
}

// NewMedicationHandler creates a new medication handler
func NewMedicationHandler(
	medications *services.MedicationStore,
	adherence *services.AdherenceService,
	matcher *services.ResponseMatcher,
	loc *time.Location,
) *MedicationHandler {
	return &MedicationHandler{
		medications: medications,
		adherence:   adherence,
		matcher:     matcher,
		loc:         loc,
	}
}

// Create handles POST /api/medications
func (h *MedicationHandler) Create(c *fiber.Ctx) error {
	var req models.CreateMedicationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	med, err := req.ToMedication(h.loc)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if userID := c.Get("X-User-ID"); userID != "" {
		med.UserID = userID
	}

	if err := h.medications.Create(c.Context(), med); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create medication"})
	}

	return c.Status(fiber.StatusCreated).JSON(med.ToResponse())
}

// List handles GET /api/medications
func (h *MedicationHandler) List(c *fiber.Ctx) error {
	meds, err := h.medications.List(c.Context(), c.Get("X-User-ID"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list medications"})
	}

	responses := make([]*models.MedicationResponse, 0, len(meds))
	for i := range meds {
		responses = append(responses, meds[i].ToResponse())
	}
	return c.JSON(fiber.Map{"medications": responses})
}

// Delete handles DELETE /api/medications/:id
func (h *MedicationHandler) Delete(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid medication id"})
	}

	if err := h.medications.Delete(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "medication not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete medication"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// Adherence handles GET /api/medications/medication-adherence/:patient_name
func (h *MedicationHandler) Adherence(c *fiber.Ctx) error {
	patientName := c.Params("patient_name")
	days := c.QueryInt("days", 7)
	if days <= 0 {
		days = 7
	}

	report, err := h.adherence.Adherence(c.Context(), patientName, days, c.Get("X-User-ID"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute adherence"})
	}
	return c.JSON(report)
}

// Confirmations handles GET /api/medications/medication-confirmations/:patient_name
func (h *MedicationHandler) Confirmations(c *fiber.Ctx) error {
	patientName := c.Params("patient_name")
	limit := c.QueryInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	confirmations, err := h.adherence.RecentConfirmations(c.Context(), patientName, limit, c.Get("X-User-ID"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load confirmations"})
	}
	return c.JSON(fiber.Map{"confirmations": confirmations})
}

// TodayStatus handles GET /api/medications/medication-status/:patient_name
func (h *MedicationHandler) TodayStatus(c *fiber.Ctx) error {
	report, err := h.adherence.TodayStatus(c.Context(), c.Params("patient_name"), c.Get("X-User-ID"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load today's status"})
	}
	return c.JSON(report)
}

// HandleResponse handles POST /api/medications/medication-response. The same
// matching runs here as on the transport webhooks; this endpoint returns the
// raw result instead of TwiML.
func (h *MedicationHandler) HandleResponse(c *fiber.Ctx) error {
	contactNumber := c.FormValue("contact_number")
	message := c.FormValue("message")
	if contactNumber == "" || message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "contact_number and message are required"})
	}

	result, err := h.matcher.HandleInboundMessage(c.Context(), contactNumber, message, time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to process response"})
	}
	return c.JSON(result)
}
