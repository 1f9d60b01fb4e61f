package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"golang.org/x/sync/errgroup"

	"github.com/Chicken/VenaaRauhassa/internal/middleware"
	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/notify"
	"github.com/Chicken/VenaaRauhassa/internal/quirks"
	"github.com/Chicken/VenaaRauhassa/internal/status"
	"github.com/Chicken/VenaaRauhassa/internal/train"
)

// maintenanceRetryAfter is sent with 503 responses while in maintenance mode
const maintenanceRetryAfter = "43200"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// TrainSource assembles a train on a date
type TrainSource interface {
	Assemble(ctx context.Context, date, trainNumber string) (*models.Train, error)
}

// Directory lists stations and the trains running on a date
type Directory interface {
	Stations(ctx context.Context) (map[string]string, error)
	TrainsOnDate(ctx context.Context, date string) ([]models.TrainOption, error)
}

// StatusChecker reports the health of the upstream services
type StatusChecker interface {
	Check(ctx context.Context) (status.Status, error)
}

// FeedbackSender delivers a feedback message to the maintainers
type FeedbackSender interface {
	Send(ctx context.Context, content string) error
}

// Handler serves the HTTP API
type Handler struct {
	Trains    TrainSource
	Directory Directory
	Status    StatusChecker
	Reporter  notify.Reporter
	// Feedback is nil when no feedback webhook is configured
	Feedback FeedbackSender

	// HealthChecks are run by /health, keyed by the name shown in the response
	HealthChecks map[string]func(ctx context.Context) error

	Metrics       http.Handler
	MetricsSecret string

	Policy        quirks.Policy
	WagonImageURL string
	Maintenance   bool
	Now           func() time.Time
}

// Register mounts every route on router
func (h *Handler) Register(router fiber.Router) {
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.Reporter == nil {
		h.Reporter = notify.LogReporter{}
	}

	router.Get("/health", h.Health)
	router.Get("/v2/trains", h.TrainList)
	router.Get("/v2/trains/:date/:train", h.TrainOnDate)
	router.Get("/v2/service-status", h.ServiceStatus)
	router.Post("/v2/feedback", h.SendFeedback)

	if h.Metrics != nil {
		router.Get("/metrics", middleware.MetricsAuth(h.MetricsSecret), adaptor.HTTPHandler(h.Metrics))
	}
}

// TrainResponse is the body of a successfully assembled train
type TrainResponse struct {
	State               string           `json:"state"`
	Date                string           `json:"date"`
	InitialRange        [2]int           `json:"initialRange"`
	InitialSelectedSeat *[2]int          `json:"initialSelectedSeat"`
	Train               *models.Train    `json:"train"`
	Stations            []models.Station `json:"stations"`
	Wagons              []models.Wagon   `json:"wagons"`
	Summary             train.Summary    `json:"summary"`
	Description         string           `json:"description"`
}

// TrainOnDate handles /v2/trains/:date/:train
func (h *Handler) TrainOnDate(c *fiber.Ctx) error {
	if h.Maintenance {
		c.Set("Retry-After", maintenanceRetryAfter)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"state":       "error",
			"maintenance": true,
		})
	}

	date := c.Params("date")
	trainNumber := c.Params("train")

	if err := train.ValidateDate(date, h.Now()); err != nil {
		if errors.Is(err, train.ErrTrainTooOld) {
			return c.Status(fiber.StatusGone).JSON(fiber.Map{
				"state": "train-too-old",
				"date":  date,
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"state": "error",
			"error": err.Error(),
		})
	}

	ctx := c.UserContext()

	var (
		t        *models.Train
		stations map[string]string
		trainErr error
		g        errgroup.Group
	)
	g.Go(func() error {
		t, trainErr = h.Trains.Assemble(ctx, date, trainNumber)
		return trainErr
	})
	g.Go(func() error {
		var err error
		stations, err = h.Directory.Stations(ctx)
		return err
	})

	err := g.Wait()
	if errors.Is(trainErr, train.ErrTrainNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"state": "train-not-found",
			"date":  date,
		})
	}
	if err != nil {
		log.Printf("Train request failed: date=%s train=%s: %v", date, trainNumber, err)
		h.Reporter.Report(ctx, map[string]string{
			"date":    date,
			"train":   trainNumber,
			"message": err.Error(),
			"url":     "<" + c.BaseURL() + c.OriginalURL() + ">",
		}, err)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"state": "error",
			"date":  date,
		})
	}

	timeline := train.ProcessStations(t, stations)
	wagons := train.ProcessWagons(t, h.WagonImageURL, h.Policy)
	summary := train.Summarize(wagons)

	resp := TrainResponse{
		State:        "success",
		Date:         date,
		InitialRange: train.ResolveRange(timeline, len(t.TimeTableRows), c.Query("from"), c.Query("to")),
		Train:        t,
		Stations:     timeline,
		Wagons:       wagons,
		Summary:      summary,
		Description:  train.Describe(t, timeline, summary),
	}
	if seat, ok := train.ResolveSeat(wagons, c.Query("seat")); ok {
		resp.InitialSelectedSeat = &seat
	}

	c.Set("Cache-Control", "public, s-maxage=300, stale-while-revalidate=600")
	return c.JSON(resp)
}

// TrainList handles /v2/trains?date=YYYY-MM-DD
func (h *Handler) TrainList(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Date query parameter is required",
		})
	}
	if !datePattern.MatchString(date) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Date must be in YYYY-MM-DD format",
		})
	}

	trains, err := h.Directory.TrainsOnDate(c.UserContext(), date)
	if err != nil {
		return err
	}

	return c.JSON(trains)
}

// ServiceStatus handles /v2/service-status
func (h *Handler) ServiceStatus(c *fiber.Ctx) error {
	s, err := h.Status.Check(c.UserContext())
	if err != nil {
		log.Printf("Status fetch error: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.JSON(s)
}

// Health handles the /health endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{}
	overall := "healthy"
	httpStatus := fiber.StatusOK

	for name, check := range h.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			overall = "unhealthy"
			httpStatus = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":      overall,
		"maintenance": h.Maintenance,
		"checks":      checks,
	})
}

// ErrorHandler handles errors returned from handlers
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	log.Printf("Error: %s %s: %v", c.Method(), c.OriginalURL(), err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
