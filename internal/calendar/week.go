package calendar

import "time"

var weekdaysFI = [7]string{"Ma", "Ti", "Ke", "To", "Pe", "La", "Su"}

// Day is one day of the week view.
type Day struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Holiday string `json:"holiday,omitempty"`
	NameDay string `json:"nameday,omitempty"`
	Today   bool   `json:"today"`
	Weekend bool   `json:"weekend"`
}

// WeekView is the Monday-to-Sunday week containing a date.
type WeekView struct {
	Year   int   `json:"year"`
	Number int   `json:"number"`
	Days   []Day `json:"days"`
}

// Week builds the ISO week containing now.
func Week(now time.Time, names NameDays) WeekView {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(today.Weekday()) + 6) % 7 // Monday = 0
	monday := today.AddDate(0, 0, -offset)

	year, number := monday.ISOWeek()
	view := WeekView{Year: year, Number: number, Days: make([]Day, 0, 7)}
	for i := 0; i < 7; i++ {
		date := monday.AddDate(0, 0, i)
		holiday, _ := HolidayOn(date)
		view.Days = append(view.Days, Day{
			Date:    date.Format("2006-01-02"),
			Weekday: weekdaysFI[i],
			Holiday: holiday,
			NameDay: names.On(date),
			Today:   date.Equal(today),
			Weekend: i >= 5,
		})
	}
	return view
}
