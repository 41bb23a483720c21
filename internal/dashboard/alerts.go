package dashboard

import (
	"fmt"

	"github.com/i474232898/infonaytto/internal/common"
)

// AlertKind names the rule that produced an alert.
type AlertKind string

const (
	AlertCold  AlertKind = "cold"
	AlertHeat  AlertKind = "heat"
	AlertStorm AlertKind = "storm"
)

// AlertEvent is a notification produced from fresh weather data.
type AlertEvent struct {
	Kind    AlertKind `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// AlertRule matches a weather record and renders the resulting event.
type AlertRule struct {
	Kind   AlertKind
	Match  func(WeatherRecord) bool
	Render func(WeatherRecord) AlertEvent
}

// StormWords are matched case-insensitively against the weather description.
var StormWords = []string{"storm", "thunder", "myrsky", "ukkonen", "ukkos"}

// DefaultRules returns the cold, heat and storm rules.
func DefaultRules(coldBelow, heatAbove float64) []AlertRule {
	return []AlertRule{
		{
			Kind:  AlertCold,
			Match: func(r WeatherRecord) bool { return r.Temperature < coldBelow },
			Render: func(r WeatherRecord) AlertEvent {
				return AlertEvent{
					Kind:    AlertCold,
					Title:   "Kylmyysvaroitus",
					Message: fmt.Sprintf("Ulkona on %.1f°C - pukeudu lämpimästi!", r.Temperature),
				}
			},
		},
		{
			Kind:  AlertHeat,
			Match: func(r WeatherRecord) bool { return r.Temperature > heatAbove },
			Render: func(r WeatherRecord) AlertEvent {
				return AlertEvent{
					Kind:    AlertHeat,
					Title:   "Kuumuusvaroitus",
					Message: fmt.Sprintf("Ulkona on %.1f°C - muista juoda vettä!", r.Temperature),
				}
			},
		},
		{
			Kind:  AlertStorm,
			Match: func(r WeatherRecord) bool { return common.HasAnyFold(r.Description, StormWords...) },
			Render: func(r WeatherRecord) AlertEvent {
				return AlertEvent{
					Kind:    AlertStorm,
					Title:   "Säävaroitus",
					Message: fmt.Sprintf("Sääennuste: %s", r.Description),
				}
			},
		},
	}
}

// Evaluate applies every rule independently; all that match fire.
func Evaluate(rec WeatherRecord, rules []AlertRule) []AlertEvent {
	var events []AlertEvent
	for _, rule := range rules {
		if rule.Match(rec) {
			events = append(events, rule.Render(rec))
		}
	}
	return events
}
