package train

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Chicken/VenaaRauhassa/internal/digitraffic"
	"github.com/Chicken/VenaaRauhassa/internal/models"
)

const (
	placeTypeVehicle = "VEHICLE"
	productEcoSeat   = "ECO_CLASS_SEAT"
)

// Summary counts seats over the whole journey
type Summary struct {
	// TotalSeats excludes vehicle places
	TotalSeats int `json:"totalSeats"`
	// EcoSeats are plain economy seats without extra services
	EcoSeats int `json:"ecoSeats"`
	// BookedEcoSeats are economy seats reserved on at least one leg
	BookedEcoSeats int `json:"bookedEcoSeats"`
	// ReservedShare is the share of known economy seat legs that are reserved
	ReservedShare float64 `json:"reservedShare"`
}

func Summarize(wagons []models.Wagon) Summary {
	var (
		s        Summary
		reserved int
		known    int
	)

	for _, w := range wagons {
		for _, f := range w.Floors {
			for _, seat := range f.Seats {
				if seat.Type == placeTypeVehicle {
					continue
				}
				s.TotalSeats++

				if seat.ProductType != productEcoSeat || len(seat.Services) > 0 {
					continue
				}
				s.EcoSeats++

				booked := false
				for _, status := range seat.Status {
					switch status {
					case models.SeatReserved:
						reserved++
						known++
						booked = true
					case models.SeatMissing:
					default:
						known++
					}
				}
				if booked {
					s.BookedEcoSeats++
				}
			}
		}
	}

	if known > 0 {
		s.ReservedShare = float64(reserved) / float64(known)
	}
	return s
}

// Describe renders the one paragraph Finnish summary used for page descriptions
func Describe(train *models.Train, stations []models.Station, s Summary) string {
	if train == nil || len(stations) == 0 {
		return ""
	}
	first, last := stations[0], stations[len(stations)-1]

	return fmt.Sprintf(
		"Juna %s%d lähtee asemalta %s klo %s ja saapuu asemalle %s klo %s. "+
			"Välillä on %d paikkaa, joista %d on normaaleja. "+
			"Normaaleista välillä on varattuna %d paikkaa. "+
			"Mutta todellisuudessa paikat ovat ajallisesti varattuna vain %d%% ajasta.",
		train.TrainType, train.TrainNumber,
		strings.Replace(first.Station, " asema", "", 1), clock(first.DepartureTime),
		strings.Replace(last.Station, " asema", "", 1), clock(last.ArrivalTime),
		s.TotalSeats, s.EcoSeats, s.BookedEcoSeats,
		int(math.Round(s.ReservedShare*100)),
	)
}

func clock(ms *int64) string {
	if ms == nil {
		return ""
	}
	return time.UnixMilli(*ms).In(digitraffic.Helsinki).Format("15:04")
}
