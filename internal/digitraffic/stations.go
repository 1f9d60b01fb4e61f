package digitraffic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
)

// ListedTrainTypes are the long distance train types that carry seat maps
var ListedTrainTypes = []string{"IC", "S", "PYO"}

// Helsinki is the time zone timetable dates and clock times are given in
var Helsinki = mustLoadLocation("Europe/Helsinki")

type rawStation struct {
	PassengerTraffic *bool   `json:"passengerTraffic"`
	StationShortCode *string `json:"stationShortCode"`
	StationName      *string `json:"stationName"`
}

type rawListedTrain struct {
	TrainNumber   *int    `json:"trainNumber"`
	TrainType     *string `json:"trainType"`
	TimeTableRows *[]struct {
		StationShortCode *string `json:"stationShortCode"`
		ScheduledTime    *string `json:"scheduledTime"`
	} `json:"timeTableRows"`
}

// Stations returns the names of passenger stations keyed by short code
func (c *Client) Stations(ctx context.Context) (map[string]string, error) {
	body, err := c.http.GetJSON(ctx, vendor, c.config.BaseURL+"/metadata/stations", c.headers())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stations: %w", err)
	}

	var raw []rawStation
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &upstream.SchemaError{Resource: "stations", Payload: body, Err: err}
	}

	stations := make(map[string]string, len(raw))
	for i, s := range raw {
		if s.PassengerTraffic == nil || s.StationShortCode == nil || s.StationName == nil {
			return nil, &upstream.SchemaError{Resource: "stations", Payload: body, Err: fmt.Errorf("[%d]: missing field", i)}
		}
		if *s.PassengerTraffic {
			stations[*s.StationShortCode] = *s.StationName
		}
	}
	return stations, nil
}

// TrainsOnDate lists the trains of ListedTrainTypes running on date, in upstream order
func (c *Client) TrainsOnDate(ctx context.Context, date string) ([]models.TrainOption, error) {
	var (
		trains   []rawListedTrain
		body     []byte
		stations map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		body, err = c.http.GetJSON(gctx, vendor, c.config.BaseURL+"/trains/"+url.PathEscape(date), c.headers())
		if err != nil {
			return fmt.Errorf("failed to fetch trains: %w", err)
		}
		if err := json.Unmarshal(body, &trains); err != nil {
			return &upstream.SchemaError{Resource: "trains", Payload: body, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stations, err = c.Stations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	options := make([]models.TrainOption, 0, len(trains))
	for i, t := range trains {
		if t.TrainNumber == nil || t.TrainType == nil || t.TimeTableRows == nil {
			return nil, &upstream.SchemaError{Resource: "trains", Payload: body, Err: fmt.Errorf("[%d]: missing field", i)}
		}
		if !listed(*t.TrainType) {
			continue
		}

		option := models.TrainOption{
			Value: strconv.Itoa(*t.TrainNumber),
			Label: *t.TrainType + strconv.Itoa(*t.TrainNumber),
		}

		rows := *t.TimeTableRows
		if len(rows) == 0 {
			options = append(options, option)
			continue
		}
		first, last := rows[0], rows[len(rows)-1]
		if first.StationShortCode == nil || first.ScheduledTime == nil || last.StationShortCode == nil || last.ScheduledTime == nil {
			return nil, &upstream.SchemaError{Resource: "trains", Payload: body, Err: fmt.Errorf("[%d].timeTableRows: missing field", i)}
		}

		dep, arr := *first.StationShortCode, *last.StationShortCode
		depTime, arrTime := shortFinnishTime(*first.ScheduledTime), shortFinnishTime(*last.ScheduledTime)

		option.Label = fmt.Sprintf("%s (%s %s -> %s %s)", option.Label, dep, depTime, arr, arrTime)
		option.Title = fmt.Sprintf("%s%d (%s %s -> %s %s)", *t.TrainType, *t.TrainNumber,
			shortStationName(stations, dep), depTime, shortStationName(stations, arr), arrTime)
		option.DepartureStationShortCode = dep
		option.ArrivalStationShortCode = arr
		option.DepartureStationName = StationName(stations, dep)
		option.ArrivalStationName = StationName(stations, arr)

		options = append(options, option)
	}
	return options, nil
}

// StationName returns the station name for code, or the code itself when unknown
func StationName(stations map[string]string, code string) string {
	if name, ok := stations[code]; ok {
		return name
	}
	return code
}

func shortStationName(stations map[string]string, code string) string {
	if name, ok := stations[code]; ok {
		return strings.TrimSpace(strings.Replace(name, " asema", "", 1))
	}
	return code
}

func listed(trainType string) bool {
	for _, t := range ListedTrainTypes {
		if t == trainType {
			return true
		}
	}
	return false
}

// shortFinnishTime formats a timestamp the way Finnish clocks show it: 8.04, 17.30
func shortFinnishTime(value string) string {
	t, err := upstream.ParseTime(value)
	if err != nil {
		return value
	}
	t = t.In(Helsinki)
	return fmt.Sprintf("%d.%02d", t.Hour(), t.Minute())
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
