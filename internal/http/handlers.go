package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hidrotek/water-dispenser-system/internal/config"
	"github.com/hidrotek/water-dispenser-system/internal/domain"
	"github.com/hidrotek/water-dispenser-system/internal/service"
)

type sensorReadingRequest struct {
	DeviceID    string   `json:"device_id"`
	Timestamp   string   `json:"timestamp"`
	FlowRate    float64  `json:"flow_rate"`
	PulseCount  *int64   `json:"pulse_count"`
	TotalVolume *float64 `json:"total_volume"`
	Unit        string   `json:"unit"`
	Temperature *float64 `json:"temperature"`
	Pressure    *float64 `json:"pressure"`
}

type levelRequest struct {
	CurrentLevel float64 `json:"current_level"`
}

type controlRequest struct {
	Action string `json:"action"`
}

type startFillingRequest struct {
	DeviceID      string  `json:"device_id"`
	TargetVolume  float64 `json:"target_volume"`
	InitialVolume float64 `json:"initial_volume"`
}

type finishFillingRequest struct {
	FinalVolume float64 `json:"final_volume"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

func Register(app *fiber.App, svcs *service.Services) {
	g := app.Group("/api/v1")

	g.Post("/sensor/readings", func(c *fiber.Ctx) error {
		var req sensorReadingRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, domain.Validationf("invalid request body: %v", err))
		}
		rd, err := svcs.Readings.Record(service.RecordReadingInput{
			DeviceID:    req.DeviceID,
			FlowRate:    req.FlowRate,
			TotalVolume: req.TotalVolume,
			PulseCount:  req.PulseCount,
			Unit:        req.Unit,
			Temperature: req.Temperature,
			Pressure:    req.Pressure,
			Timestamp:   parseTimestamp(req.Timestamp),
		})
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rd)
	})

	g.Get("/sensor/:device/latest", func(c *fiber.Ctx) error {
		rd, err := svcs.Readings.Latest(c.Params("device"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(rd)
	})

	g.Get("/sensor/:device/readings", func(c *fiber.Ctx) error {
		items, err := svcs.Readings.List(c.Params("device"), c.QueryInt("limit", 100))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	g.Get("/pumps/:device", func(c *fiber.Ctx) error {
		view, err := svcs.Pumps.Status(c.Params("device"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})

	g.Put("/pumps/:device/level", func(c *fiber.Ctx) error {
		var req levelRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, domain.Validationf("invalid request body: %v", err))
		}
		view, err := svcs.Pumps.UpdateLevel(c.Params("device"), req.CurrentLevel)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})

	g.Post("/pumps/:device/control", func(c *fiber.Ctx) error {
		var req controlRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, domain.Validationf("invalid request body: %v", err))
		}
		action, err := domain.ParsePumpAction(req.Action)
		if err != nil {
			return fail(c, err)
		}
		view, err := svcs.Pumps.Control(c.Params("device"), action)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})

	g.Post("/fillings", func(c *fiber.Ctx) error {
		var req startFillingRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, domain.Validationf("invalid request body: %v", err))
		}
		f, err := svcs.Fillings.Start(req.DeviceID, req.TargetVolume, req.InitialVolume)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(f)
	})

	g.Post("/fillings/:id/complete", func(c *fiber.Ctx) error {
		id, err := fillingID(c)
		if err != nil {
			return fail(c, err)
		}
		var req finishFillingRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, domain.Validationf("invalid request body: %v", err))
		}
		f, err := svcs.Fillings.Complete(id, req.FinalVolume)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(f)
	})

	g.Post("/fillings/:id/cancel", func(c *fiber.Ctx) error {
		id, err := fillingID(c)
		if err != nil {
			return fail(c, err)
		}
		f, err := svcs.Fillings.Cancel(id)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(f)
	})

	g.Get("/fillings/active/:device", func(c *fiber.Ctx) error {
		f, err := svcs.Fillings.Active(c.Params("device"))
		if err != nil {
			return fail(c, err)
		}
		if f == nil {
			return fail(c, domain.NotFoundf("no active filling for device %s", c.Params("device")))
		}
		return c.JSON(f)
	})

	g.Get("/fillings/:device", func(c *fiber.Ctx) error {
		items, err := svcs.Fillings.List(c.Params("device"), c.QueryInt("limit", 100))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	g.Get("/metrics/:device/flow", func(c *fiber.Ctx) error {
		start, end, err := parseRange(c)
		if err != nil {
			return fail(c, err)
		}
		m, err := svcs.Metrics.Flow(c.Params("device"), start, end)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(m)
	})

	g.Get("/metrics/:device/filling", func(c *fiber.Ctx) error {
		start, end, err := parseRange(c)
		if err != nil {
			return fail(c, err)
		}
		m, err := svcs.Metrics.Filling(c.Params("device"), start, end)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(m)
	})

	g.Get("/metrics/:device/business", func(c *fiber.Ctx) error {
		start, end, err := parseRange(c)
		if err != nil {
			return fail(c, err)
		}
		price := c.QueryFloat("price", config.PricePerLiter())
		m, err := svcs.Metrics.Business(c.Params("device"), start, end, price)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(m)
	})

	g.Get("/metrics/:device/report", func(c *fiber.Ctx) error {
		start, end, err := parseRange(c)
		if err != nil {
			return fail(c, err)
		}
		rep, url, err := svcs.Reports.Efficiency(c.Params("device"), start, end)
		if err != nil {
			return fail(c, err)
		}
		resp := fiber.Map{"report": rep}
		if url != "" {
			resp["download_url"] = url
		}
		return c.JSON(resp)
	})

	g.Get("/metrics/:device/reports", func(c *fiber.Ctx) error {
		keys, err := svcs.Reports.Archived(c.Params("device"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"reports": keys})
	})

	g.Get("/metrics/:device/anomalies", func(c *fiber.Ctx) error {
		rep, err := svcs.Metrics.Anomalies(c.Params("device"), c.QueryFloat("threshold", 0))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(rep)
	})

	g.Post("/devices/:device/tokens", func(c *fiber.Ctx) error {
		if svcs.Tokens == nil {
			return c.Status(fiber.StatusServiceUnavailable).
				JSON(fiber.Map{"error": "push token registry not configured"})
		}
		var req tokenRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, domain.Validationf("invalid request body: %v", err))
		}
		if req.Token == "" {
			return fail(c, domain.Validationf("token is required"))
		}
		if err := svcs.Tokens.RegisterToken(c.Params("device"), req.Token); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// fail maps a domain error kind to an HTTP status; unknown errors stay 500.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindValidation:
		status = fiber.StatusBadRequest
	case domain.KindNotFound:
		status = fiber.StatusNotFound
	case domain.KindConflict, domain.KindCapacity, domain.KindInvalidState:
		status = fiber.StatusConflict
	case domain.KindComputation:
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func fillingID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, domain.Validationf("invalid filling id %q", c.Params("id"))
	}
	return id, nil
}

// parseTimestamp accepts RFC3339 from the device; anything unparseable
// falls back to the server clock, matching firmware that occasionally
// boots without NTP.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return time.Time{}, time.Time{}, domain.Validationf("invalid or missing start date %q", c.Query("start"))
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return time.Time{}, time.Time{}, domain.Validationf("invalid or missing end date %q", c.Query("end"))
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.Validationf("end date precedes start date")
	}
	return start, end, nil
}
