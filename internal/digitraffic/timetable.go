package digitraffic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
)

type rawTrain struct {
	TrainNumber   *int          `json:"trainNumber"`
	TrainType     *string       `json:"trainType"`
	DepartureDate *string       `json:"departureDate"`
	TimeTableRows *[]rawTimeRow `json:"timeTableRows"`
}

type rawTimeRow struct {
	TrainStopping    *bool   `json:"trainStopping"`
	CommercialStop   *bool   `json:"commercialStop"`
	StationShortCode *string `json:"stationShortCode"`
	ScheduledTime    *string `json:"scheduledTime"`
	Cancelled        *bool   `json:"cancelled"`
	Type             *string `json:"type"`
}

// FetchTimetable returns the stopping rows of a train, ready to be paired into legs.
//
// Cancelled, non-stopping and non-commercial rows are dropped, then a leading
// arrival and a trailing departure row, then the edge pairs listed in the
// quirks policy. Returns ErrTrainNotFound when the train has no record on date.
func (c *Client) FetchTimetable(ctx context.Context, date, trainNumber string) (*models.Timetable, error) {
	endpoint := fmt.Sprintf("%s/trains/%s/%s", c.config.BaseURL, url.PathEscape(date), url.PathEscape(trainNumber))
	body, err := c.http.GetJSON(ctx, vendor, endpoint, c.headers())
	if err != nil {
		if upstream.StatusCode(err) == http.StatusNotFound {
			return nil, ErrTrainNotFound
		}
		return nil, fmt.Errorf("failed to fetch timetable: %w", err)
	}

	var trains []rawTrain
	if err := json.Unmarshal(body, &trains); err != nil {
		return nil, &upstream.SchemaError{Resource: "timetable", Payload: body, Err: err}
	}
	if len(trains) == 0 {
		return nil, ErrTrainNotFound
	}

	timetable, err := trains[0].validate()
	if err != nil {
		return nil, &upstream.SchemaError{Resource: "timetable", Payload: body, Err: err}
	}

	timetable.Rows = c.policy.TrimEdges(trimBoundaries(filterStops(timetable.Rows)))
	return timetable, nil
}

func filterStops(rows []models.TimetableRow) []models.TimetableRow {
	out := make([]models.TimetableRow, 0, len(rows))
	for _, r := range rows {
		if !r.Cancelled && r.TrainStopping && r.CommercialStop {
			out = append(out, r)
		}
	}
	return out
}

// trimBoundaries drops rows that cannot start or end a journey. Cancellations
// sometimes leave a lone arrival first or a lone departure last.
func trimBoundaries(rows []models.TimetableRow) []models.TimetableRow {
	if len(rows) > 0 && rows[0].Type == models.StopArrival {
		rows = rows[1:]
	}
	if n := len(rows); n > 0 && rows[n-1].Type == models.StopDeparture {
		rows = rows[:n-1]
	}
	return rows
}

func (t rawTrain) validate() (*models.Timetable, error) {
	switch {
	case t.TrainNumber == nil:
		return nil, errors.New("[0].trainNumber: required")
	case t.TrainType == nil:
		return nil, errors.New("[0].trainType: required")
	case t.DepartureDate == nil:
		return nil, errors.New("[0].departureDate: required")
	case t.TimeTableRows == nil:
		return nil, errors.New("[0].timeTableRows: required")
	}

	rows := make([]models.TimetableRow, 0, len(*t.TimeTableRows))
	for i, r := range *t.TimeTableRows {
		row, err := r.validate()
		if err != nil {
			return nil, fmt.Errorf("[0].timeTableRows[%d].%w", i, err)
		}
		rows = append(rows, row)
	}

	return &models.Timetable{
		TrainNumber:   *t.TrainNumber,
		TrainType:     *t.TrainType,
		DepartureDate: *t.DepartureDate,
		Rows:          rows,
	}, nil
}

func (r rawTimeRow) validate() (models.TimetableRow, error) {
	switch {
	case r.TrainStopping == nil:
		return models.TimetableRow{}, errors.New("trainStopping: required")
	case r.StationShortCode == nil:
		return models.TimetableRow{}, errors.New("stationShortCode: required")
	case r.ScheduledTime == nil:
		return models.TimetableRow{}, errors.New("scheduledTime: required")
	case r.Cancelled == nil:
		return models.TimetableRow{}, errors.New("cancelled: required")
	case r.Type == nil:
		return models.TimetableRow{}, errors.New("type: required")
	}

	stopType := models.StopType(*r.Type)
	if stopType != models.StopArrival && stopType != models.StopDeparture {
		return models.TimetableRow{}, fmt.Errorf("type: unexpected value %q", *r.Type)
	}

	scheduled, err := upstream.ParseTime(*r.ScheduledTime)
	if err != nil {
		return models.TimetableRow{}, fmt.Errorf("scheduledTime: %w", err)
	}

	// optional upstream; absent means not a commercial stop
	commercial := r.CommercialStop != nil && *r.CommercialStop

	return models.TimetableRow{
		StationShortCode: *r.StationShortCode,
		ScheduledTime:    scheduled,
		Type:             stopType,
		Cancelled:        *r.Cancelled,
		TrainStopping:    *r.TrainStopping,
		CommercialStop:   commercial,
	}, nil
}
