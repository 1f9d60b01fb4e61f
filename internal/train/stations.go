package train

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Chicken/VenaaRauhassa/internal/digitraffic"
	"github.com/Chicken/VenaaRauhassa/internal/models"
)

// MaxTrainAge is how far in the past a departure date may be
const MaxTrainAge = 3 * 24 * time.Hour

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateDate checks that date is YYYY-MM-DD and not older than MaxTrainAge
func ValidateDate(date string, now time.Time) error {
	if !datePattern.MatchString(date) {
		return ErrInvalidDate
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if day.Before(now.Add(-MaxTrainAge)) {
		return ErrTrainTooOld
	}
	return nil
}

// ProcessStations returns the stops of the journey in order. The first stop
// has no arrival time and the last no departure time. Names come from
// stations, falling back to the short code.
func ProcessStations(train *models.Train, stations map[string]string) []models.Station {
	legs := train.TimeTableRows
	if len(legs) == 0 {
		return []models.Station{}
	}

	out := make([]models.Station, 0, len(legs)+1)
	for i, leg := range legs {
		s := models.Station{
			DepartureTime:    millis(leg.Dep.ScheduledTime),
			StationShortCode: leg.Dep.StationShortCode,
			Station:          digitraffic.StationName(stations, leg.Dep.StationShortCode),
		}
		if i > 0 {
			s.ArrivalTime = millis(legs[i-1].Arr.ScheduledTime)
		}
		out = append(out, s)
	}

	last := legs[len(legs)-1].Arr
	out = append(out, models.Station{
		ArrivalTime:      millis(last.ScheduledTime),
		StationShortCode: last.StationShortCode,
		Station:          digitraffic.StationName(stations, last.StationShortCode),
	})
	return out
}

// ResolveRange maps from and to station codes onto a [start, end] range of
// station indexes. The whole journey [0, legs] is returned unless both codes
// are found in order.
func ResolveRange(stations []models.Station, legs int, from, to string) [2]int {
	full := [2]int{0, legs}
	if from == "" || to == "" {
		return full
	}

	start, end := indexOf(stations, from), indexOf(stations, to)
	if start >= 0 && end > 0 && start < end {
		return [2]int{start, end}
	}
	return full
}

// ResolveSeat parses a "wagon-seat" selector and reports whether that seat
// exists in wagons
func ResolveSeat(wagons []models.Wagon, selector string) ([2]int, bool) {
	parts := strings.Split(selector, "-")
	if len(parts) != 2 {
		return [2]int{}, false
	}
	wagonNumber, err := strconv.Atoi(parts[0])
	if err != nil {
		return [2]int{}, false
	}
	seatNumber, err := strconv.Atoi(parts[1])
	if err != nil {
		return [2]int{}, false
	}

	for _, w := range wagons {
		if w.Number != wagonNumber {
			continue
		}
		for _, f := range w.Floors {
			for _, s := range f.Seats {
				if s.Number == seatNumber {
					return [2]int{wagonNumber, seatNumber}, true
				}
			}
		}
	}
	return [2]int{}, false
}

func indexOf(stations []models.Station, code string) int {
	for i, s := range stations {
		if s.StationShortCode == code {
			return i
		}
	}
	return -1
}

func millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}
