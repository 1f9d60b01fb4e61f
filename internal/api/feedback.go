package api

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// FeedbackRequest is the body of /v2/feedback
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
	Email    string `json:"email,omitempty"`
}

// SendFeedback forwards user feedback to the feedback webhook
func (h *Handler) SendFeedback(c *fiber.Ctx) error {
	if h.Feedback == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Webhook URL not configured",
		})
	}

	var req FeedbackRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Feedback) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "feedback is required",
		})
	}

	if err := h.Feedback.Send(c.UserContext(), feedbackMessage(req)); err != nil {
		log.Printf("Failed to send feedback: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send feedback",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Feedback sent successfully",
	})
}

func feedbackMessage(req FeedbackRequest) string {
	if req.Email != "" {
		return "```Sähköposti: " + req.Email + "\nPalaute: " + req.Feedback + "```"
	}
	return "```Palaute: " + req.Feedback + "```"
}
