package models

import "time"

// StopType represents whether a timetable row is an arrival or a departure
type StopType string

const (
	StopArrival   StopType = "ARRIVAL"
	StopDeparture StopType = "DEPARTURE"
)

// SeatStatus represents the availability of a seat on a single leg
type SeatStatus string

const (
	SeatOpen        SeatStatus = "open"
	SeatReserved    SeatStatus = "reserved"
	SeatUnavailable SeatStatus = "unavailable"
	SeatMissing     SeatStatus = "missing"
)

// Session is the persisted upstream credential
type Session struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresOn time.Time `json:"expiresOn"`
}

// TimetableRow represents one stop event from the timetable provider
type TimetableRow struct {
	StationShortCode string    `json:"stationShortCode"`
	ScheduledTime    time.Time `json:"scheduledTime"`
	Type             StopType  `json:"type"`
	Cancelled        bool      `json:"cancelled"`
	TrainStopping    bool      `json:"trainStopping"`
	CommercialStop   bool      `json:"commercialStop"`
}

// Timetable is the filtered and trimmed schedule of a train on a date.
// Rows alternate departure and arrival and pair into legs.
type Timetable struct {
	TrainNumber   int            `json:"trainNumber"`
	TrainType     string         `json:"trainType"`
	DepartureDate string         `json:"departureDate"`
	Rows          []TimetableRow `json:"timeTableRows"`
}

// Place represents one seat (or bed, or vehicle slot) in an upstream coach snapshot
type Place struct {
	Floor          int      `json:"floor"`
	LogicalSection int      `json:"logicalSection"`
	Number         int      `json:"number"`
	Bookable       bool     `json:"bookable"`
	Type           string   `json:"type"`
	ProductType    string   `json:"productType"`
	Services       []string `json:"services"`
	Position       *string  `json:"position"`
}

// Coach is the upstream wagon snapshot for a single leg
type Coach struct {
	Number     int     `json:"number"`
	PlaceType  *string `json:"placeType"`
	Type       string  `json:"type"`
	FloorCount int     `json:"floorCount"`
	Order      int     `json:"order"`
	PlaceList  []Place `json:"placeList"`
}

// CoachesByNumber maps the upstream coach key to its snapshot
type CoachesByNumber map[string]Coach

// Leg is one departure/arrival pair of the journey.
// Wagons is nil when the seat map for the leg could not be fetched.
type Leg struct {
	Dep    TimetableRow    `json:"dep"`
	Arr    TimetableRow    `json:"arr"`
	Wagons CoachesByNumber `json:"wagons"`
	Err    error           `json:"-"`
}

// Train is the assembled aggregate of a train on a date
type Train struct {
	TrainNumber   int    `json:"trainNumber"`
	TrainType     string `json:"trainType"`
	DepartureDate string `json:"departureDate"`
	TimeTableRows []Leg  `json:"timeTableRows"`
}

// Seat is a normalized seat with one status entry per leg
type Seat struct {
	Number      int          `json:"number"`
	Section     int          `json:"section"`
	Status      []SeatStatus `json:"status"`
	ProductType string       `json:"productType"`
	Type        string       `json:"type"`
	Services    []string     `json:"services"`
	Position    *string      `json:"position"`
}

// Floor is one physical floor of a wagon
type Floor struct {
	Number int    `json:"number"`
	Image  string `json:"image"`
	Seats  []Seat `json:"seats"`
}

// Wagon is a normalized wagon, deduplicated across legs
type Wagon struct {
	Number    int     `json:"number"`
	Type      string  `json:"type"`
	PlaceType *string `json:"placeType"`
	Floors    []Floor `json:"floors"`
}

// Station is a stop on the journey timeline. Times are unix milliseconds.
type Station struct {
	ArrivalTime      *int64 `json:"arrivalTime"`
	DepartureTime    *int64 `json:"departureTime"`
	StationShortCode string `json:"stationShortCode"`
	Station          string `json:"station"`
}

// TrainOption is an entry of the train list for a date
type TrainOption struct {
	Value                     string `json:"value"`
	Label                     string `json:"label"`
	Title                     string `json:"title,omitempty"`
	DepartureStationShortCode string `json:"departureStationShortCode"`
	ArrivalStationShortCode   string `json:"arrivalStationShortCode"`
	DepartureStationName      string `json:"departureStationName"`
	ArrivalStationName        string `json:"arrivalStationName"`
}
