package dashboard

import (
	"testing"
)

func TestEvaluate(t *testing.T) {
	rules := DefaultRules(-20, 30)

	tests := []struct {
		name string
		rec  WeatherRecord
		want []AlertKind
	}{
		{"cold", WeatherRecord{Temperature: -25, Description: "pakkasta"}, []AlertKind{AlertCold}},
		{"cold threshold is exclusive", WeatherRecord{Temperature: -20, Description: "pilvistä"}, nil},
		{"heat", WeatherRecord{Temperature: 31, Description: "aurinkoista"}, []AlertKind{AlertHeat}},
		{"heat threshold is exclusive", WeatherRecord{Temperature: 30}, nil},
		{"storm finnish", WeatherRecord{Temperature: 15, Description: "Ukkoskuuroja"}, []AlertKind{AlertStorm}},
		{"storm english", WeatherRecord{Temperature: 15, Description: "thunderstorm with rain"}, []AlertKind{AlertStorm}},
		{"heat and storm", WeatherRecord{Temperature: 32, Description: "myrsky"}, []AlertKind{AlertHeat, AlertStorm}},
		{"calm", WeatherRecord{Temperature: 12, Description: "selkeää"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.rec, rules)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d alerts %+v, want %v", len(got), got, tt.want)
			}
			for i, ev := range got {
				if ev.Kind != tt.want[i] {
					t.Errorf("alert %d = %s, want %s", i, ev.Kind, tt.want[i])
				}
			}
		})
	}
}

func TestColdAlertMessage(t *testing.T) {
	got := Evaluate(WeatherRecord{Temperature: -25}, DefaultRules(-20, 30))
	if len(got) != 1 {
		t.Fatalf("expected one alert, got %d", len(got))
	}
	if got[0].Title != "Kylmyysvaroitus" {
		t.Errorf("title = %q", got[0].Title)
	}
	if want := "Ulkona on -25.0°C - pukeudu lämpimästi!"; got[0].Message != want {
		t.Errorf("message = %q, want %q", got[0].Message, want)
	}
}
