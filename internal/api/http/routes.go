package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/i474232898/infonaytto/internal/calendar"
	"github.com/i474232898/infonaytto/internal/dashboard"
	"github.com/i474232898/infonaytto/internal/platform"
	"github.com/i474232898/infonaytto/internal/settings"
)

var validate = validator.New()

// Refresher triggers out-of-schedule fetches.
type Refresher interface {
	Refresh(kinds ...dashboard.Kind) bool
}

// SettingsStore is the read/write side of the user settings.
type SettingsStore interface {
	All() map[string]any
	Set(key string, value any) error
}

// Deps are the collaborators the HTTP handlers use. Inbox and Metrics are optional.
type Deps struct {
	Board     *Board
	Refresher Refresher
	Settings  SettingsStore
	NameDays  calendar.NameDays
	Inbox     *platform.Inbox
	Metrics   http.Handler
	Logger    zerolog.Logger
	Now       func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	log := d.Logger.With().Str("component", "http").Logger()

	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sources": d.Board.Views(),
		})
	})

	v1.Get("/dashboard/:kind", func(c *fiber.Ctx) error {
		kind, err := dashboard.ParseKind(c.Params("kind"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(d.Board.View(kind))
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		var kinds []dashboard.Kind
		if raw := c.Query("kind"); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				kind, err := dashboard.ParseKind(strings.TrimSpace(part))
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, err.Error())
				}
				kinds = append(kinds, kind)
			}
		}
		if !d.Refresher.Refresh(kinds...) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "refresh loop is not running")
		}
		if len(kinds) == 0 {
			kinds = dashboard.Kinds
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"refreshing": kinds,
		})
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(maskSettings(d.Settings.All()))
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var req settingsUpdate
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid settings body")
		}
		req.trim()
		if req.City != nil && *req.City == "" {
			return fiber.NewError(fiber.StatusBadRequest, "default_city must not be blank")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		changes := req.changes()
		if len(changes) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "no settings to update")
		}
		for key, value := range changes {
			if err := d.Settings.Set(key, value); err != nil {
				log.Error().Err(err).Str("key", key).Msg("failed to save setting")
				return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
			}
		}

		// New city or key invalidates what the weather cards show.
		if req.City != nil || req.APIKey != nil {
			d.Refresher.Refresh(dashboard.KindWeather, dashboard.KindForecast)
		}
		return c.JSON(maskSettings(d.Settings.All()))
	})

	v1.Get("/calendar/week", func(c *fiber.Ctx) error {
		return c.JSON(calendar.Week(d.Now(), d.NameDays))
	})

	v1.Get("/notifications", func(c *fiber.Ctx) error {
		if d.Inbox == nil {
			return c.JSON([]platform.Notification{})
		}
		return c.JSON(d.Inbox.Recent())
	})
}

// settingsUpdate is the body of PUT /settings. Absent fields are left unchanged.
type settingsUpdate struct {
	APIKey               *string `json:"api_key" validate:"omitempty,max=128"`
	City                 *string `json:"default_city" validate:"omitempty,min=1,max=80"`
	Theme                *string `json:"theme" validate:"omitempty,oneof=dark light"`
	NamedayNotifications *bool   `json:"nameday_notifications"`
	HolidayNotifications *bool   `json:"holiday_notifications"`
	WeatherAlerts        *bool   `json:"weather_alerts"`
	UpdateInterval       *int    `json:"update_interval" validate:"omitempty,gte=1,lte=1440"`
	WeatherInterval      *int    `json:"weather_interval" validate:"omitempty,gte=1,lte=1440"`
	ForecastInterval     *int    `json:"forecast_interval" validate:"omitempty,gte=1,lte=1440"`
	NewsInterval         *int    `json:"news_interval" validate:"omitempty,gte=1,lte=1440"`
	StocksInterval       *int    `json:"stocks_interval" validate:"omitempty,gte=1,lte=1440"`
}

// trim strips surrounding whitespace from the string fields before validation.
func (u *settingsUpdate) trim() {
	for _, v := range []*string{u.APIKey, u.City, u.Theme} {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
}

func (u settingsUpdate) changes() map[string]any {
	out := make(map[string]any)
	putString := func(key string, v *string) {
		if v != nil {
			out[key] = strings.TrimSpace(*v)
		}
	}
	putBool := func(key string, v *bool) {
		if v != nil {
			out[key] = *v
		}
	}
	putInt := func(key string, v *int) {
		if v != nil {
			out[key] = *v
		}
	}

	putString(settings.KeyAPIKey, u.APIKey)
	putString(settings.KeyCity, u.City)
	putString(settings.KeyTheme, u.Theme)
	putBool(settings.KeyNamedayNotify, u.NamedayNotifications)
	putBool(settings.KeyHolidayNotify, u.HolidayNotifications)
	putBool(settings.KeyWeatherAlerts, u.WeatherAlerts)
	putInt(settings.KeyUpdateInterval, u.UpdateInterval)
	putInt(settings.IntervalKey(string(dashboard.KindWeather)), u.WeatherInterval)
	putInt(settings.IntervalKey(string(dashboard.KindForecast)), u.ForecastInterval)
	putInt(settings.IntervalKey(string(dashboard.KindNews)), u.NewsInterval)
	putInt(settings.IntervalKey(string(dashboard.KindStocks)), u.StocksInterval)
	return out
}

// maskSettings hides the API key from responses.
func maskSettings(all map[string]any) map[string]any {
	if key, ok := all[settings.KeyAPIKey].(string); ok && key != "" {
		all[settings.KeyAPIKey] = "********"
		all["api_key_set"] = true
	} else {
		all["api_key_set"] = false
	}
	return all
}
