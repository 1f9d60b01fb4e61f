package train

import (
	"sort"

	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/quirks"
)

// DefaultWagonImageURL is the base URL of the wagon floor plan images
const DefaultWagonImageURL = "https://prod.wagonmap.prodvrfi.vrpublic.fi/images/v1.6.0/"

// ProcessWagons merges the per-leg coach snapshots into one wagon list with a
// per-leg status for every seat.
//
// Wagons are deduplicated by number, the first snapshot seen providing the
// static attributes, and sorted by descending number. Per leg a seat is
// missing when the leg has no seat map, unavailable when the wagon is not in
// it, reserved when the seat is not in the wagon's place list, and otherwise
// open or reserved by its bookable flag.
func ProcessWagons(train *models.Train, imageBaseURL string, policy quirks.Policy) []models.Wagon {
	if imageBaseURL == "" {
		imageBaseURL = DefaultWagonImageURL
	}

	perLeg := make([]map[int]models.Coach, len(train.TimeTableRows))
	var coaches []models.Coach
	seen := make(map[int]bool)

	for i, leg := range train.TimeTableRows {
		if leg.Wagons == nil {
			continue
		}
		perLeg[i] = make(map[int]models.Coach, len(leg.Wagons))
		for _, coach := range sortedCoaches(leg.Wagons) {
			if _, ok := perLeg[i][coach.Number]; !ok {
				perLeg[i][coach.Number] = coach
			}
			if !seen[coach.Number] {
				seen[coach.Number] = true
				coaches = append(coaches, coach)
			}
		}
	}

	sort.SliceStable(coaches, func(i, j int) bool {
		return coaches[i].Number > coaches[j].Number
	})

	wagons := make([]models.Wagon, 0, len(coaches))
	for _, coach := range coaches {
		wagon := models.Wagon{
			Number:    coach.Number,
			Type:      coach.Type,
			PlaceType: coach.PlaceType,
			Floors:    make([]models.Floor, 0, coach.FloorCount),
		}

		for floor := 1; floor <= coach.FloorCount; floor++ {
			seats := make([]models.Seat, 0)
			for _, place := range coach.PlaceList {
				if place.Floor != floor {
					continue
				}
				seats = append(seats, models.Seat{
					Number:      place.Number,
					Section:     place.LogicalSection,
					Status:      seatStatus(train, perLeg, coach.Number, place.Number),
					ProductType: place.ProductType,
					Type:        place.Type,
					Services:    place.Services,
					Position:    place.Position,
				})
			}

			wagon.Floors = append(wagon.Floors, models.Floor{
				Number: floor,
				Image:  floorImage(imageBaseURL, coach, floor),
				Seats:  seats,
			})
		}

		wagons = append(wagons, wagon)
	}

	if len(wagons) > 0 && policy.ReverseWagons(wagons[0].Type) {
		for i, j := 0, len(wagons)-1; i < j; i, j = i+1, j-1 {
			wagons[i], wagons[j] = wagons[j], wagons[i]
		}
	}
	return wagons
}

func seatStatus(train *models.Train, perLeg []map[int]models.Coach, wagon, seat int) []models.SeatStatus {
	status := make([]models.SeatStatus, len(train.TimeTableRows))
	for i := range train.TimeTableRows {
		if perLeg[i] == nil {
			status[i] = models.SeatMissing
			continue
		}
		coach, ok := perLeg[i][wagon]
		if !ok {
			status[i] = models.SeatUnavailable
			continue
		}

		// a seat absent from its wagon's place list is an upstream omission
		status[i] = models.SeatReserved
		for _, place := range coach.PlaceList {
			if place.Number == seat {
				if place.Bookable {
					status[i] = models.SeatOpen
				}
				break
			}
		}
	}
	return status
}

func floorImage(base string, coach models.Coach, floor int) string {
	suffix := ""
	if coach.FloorCount != 1 {
		suffix = "_down"
		if floor > 1 {
			suffix = "_up"
		}
	}
	return base + coach.Type + suffix + ".svg"
}

// sortedCoaches orders a leg's coaches by number for deterministic first-seen picks
func sortedCoaches(byNumber models.CoachesByNumber) []models.Coach {
	coaches := make([]models.Coach, 0, len(byNumber))
	for _, c := range byNumber {
		coaches = append(coaches, c)
	}
	sort.Slice(coaches, func(i, j int) bool {
		return coaches[i].Number < coaches[j].Number
	})
	return coaches
}
