package train

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chicken/VenaaRauhassa/internal/cache"
	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/quirks"
)

var departure = time.Date(2026, 10, 15, 5, 0, 0, 0, time.UTC)

type fakeTimetables struct {
	timetable *models.Timetable
	err       error
	calls     int32
}

func (f *fakeTimetables) FetchTimetable(ctx context.Context, date, trainNumber string) (*models.Timetable, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.timetable, f.err
}

type fakeSessions struct {
	err error
}

func (f *fakeSessions) Get(ctx context.Context) (models.Session, error) {
	if f.err != nil {
		return models.Session{}, f.err
	}
	return models.Session{SessionID: "session-1", Token: "token-1", ExpiresOn: departure.Add(time.Hour)}, nil
}

type seatMapResult struct {
	coaches models.CoachesByNumber
	err     error
}

// fakeSeatMaps answers by "DEP-ARR"; unknown legs fail
type fakeSeatMaps struct {
	legs  map[string]seatMapResult
	calls int32
}

func (f *fakeSeatMaps) FetchSeatMap(ctx context.Context, dep, arr string, at time.Time, trainNumber, sessionID, token string) (models.CoachesByNumber, error) {
	atomic.AddInt32(&f.calls, 1)
	if sessionID != "session-1" || token != "token-1" || trainNumber != "45" {
		return nil, errors.New("unexpected credentials or train")
	}
	res, ok := f.legs[dep+"-"+arr]
	if !ok {
		return nil, errors.New("seat map unavailable")
	}
	return res.coaches, res.err
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []map[string]string
}

func (r *recordingReporter) Report(_ context.Context, fields map[string]string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, fields)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func timetableOf(codes ...string) *models.Timetable {
	rows := make([]models.TimetableRow, 0, len(codes)*2)
	for i := 0; i+1 < len(codes); i++ {
		at := departure.Add(time.Duration(i) * time.Hour)
		rows = append(rows,
			models.TimetableRow{StationShortCode: codes[i], ScheduledTime: at, Type: models.StopDeparture, TrainStopping: true, CommercialStop: true},
			models.TimetableRow{StationShortCode: codes[i+1], ScheduledTime: at.Add(50 * time.Minute), Type: models.StopArrival, TrainStopping: true, CommercialStop: true},
		)
	}
	return &models.Timetable{TrainNumber: 45, TrainType: "IC", DepartureDate: "2026-10-15", Rows: rows}
}

func coachWithSeat(number, seat int, bookable bool) models.CoachesByNumber {
	return models.CoachesByNumber{
		"1": {
			Number: number, Type: "EDK", FloorCount: 1, Order: 1,
			PlaceList: []models.Place{
				{Floor: 1, LogicalSection: 1, Number: seat, Bookable: bookable, Type: "SEAT", ProductType: "ECO_CLASS_SEAT", Services: []string{}},
			},
		},
	}
}

func newTestAssembler(timetable *models.Timetable, seatMaps *fakeSeatMaps, reporter *recordingReporter) *Assembler {
	return NewAssembler(&fakeTimetables{timetable: timetable}, &fakeSessions{}, seatMaps, Options{
		Policy:   quirks.Default,
		Reporter: reporter,
	})
}

func seatStatusOf(t *testing.T, train *models.Train, wagon, seat int) []models.SeatStatus {
	for _, w := range ProcessWagons(train, "", quirks.Default) {
		if w.Number != wagon {
			continue
		}
		for _, f := range w.Floors {
			for _, s := range f.Seats {
				if s.Number == seat {
					return s.Status
				}
			}
		}
	}
	t.Fatalf("seat %d-%d not found", wagon, seat)
	return nil
}

func TestAssembleAllLegsSucceed(t *testing.T) {
	seatMaps := &fakeSeatMaps{legs: map[string]seatMapResult{
		"HKI-PSL": {coaches: coachWithSeat(2, 12, true)},
		"PSL-TPE": {coaches: coachWithSeat(2, 12, false)},
	}}
	reporter := &recordingReporter{}

	train, err := newTestAssembler(timetableOf("HKI", "PSL", "TPE"), seatMaps, reporter).
		Assemble(context.Background(), "2026-10-15", "45")
	require.NoError(t, err)

	assert.Equal(t, 45, train.TrainNumber)
	assert.Equal(t, "IC", train.TrainType)
	require.Len(t, train.TimeTableRows, 2)
	assert.Equal(t, "HKI", train.TimeTableRows[0].Dep.StationShortCode)
	assert.Equal(t, "TPE", train.TimeTableRows[1].Arr.StationShortCode)

	assert.Equal(t, []models.SeatStatus{models.SeatOpen, models.SeatReserved}, seatStatusOf(t, train, 2, 12))
	assert.Zero(t, reporter.count())
}

func TestAssemblePartialFailure(t *testing.T) {
	seatMaps := &fakeSeatMaps{legs: map[string]seatMapResult{
		"HKI-PSL": {coaches: coachWithSeat(2, 12, true)},
	}}
	reporter := &recordingReporter{}

	train, err := newTestAssembler(timetableOf("HKI", "PSL", "TPE"), seatMaps, reporter).
		Assemble(context.Background(), "2026-10-15", "45")
	require.NoError(t, err)

	require.Len(t, train.TimeTableRows, 2)
	assert.Nil(t, train.TimeTableRows[1].Wagons)

	var legErr *LegError
	require.ErrorAs(t, train.TimeTableRows[1].Err, &legErr)
	assert.Equal(t, "PSL", legErr.Dep)
	assert.Equal(t, "TPE", legErr.Arr)

	for _, w := range ProcessWagons(train, "", quirks.Default) {
		for _, f := range w.Floors {
			for _, s := range f.Seats {
				assert.Equal(t, models.SeatMissing, s.Status[1])
			}
		}
	}

	require.Equal(t, 1, reporter.count())
	assert.Equal(t, "Wagon map data fetching failed", reporter.reports[0]["message"])
	assert.Equal(t, "45", reporter.reports[0]["train"])
}

func TestAssembleTooManyFailedLegs(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		ok    []string
	}{
		{name: "Three of four legs", codes: []string{"HKI", "PSL", "TKL", "RI", "TPE"}, ok: []string{"HKI-PSL"}},
		{name: "Every leg of one", codes: []string{"HKI", "PSL"}},
		{name: "Both of two legs", codes: []string{"HKI", "PSL", "TPE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			legs := map[string]seatMapResult{}
			for _, key := range tt.ok {
				legs[key] = seatMapResult{coaches: coachWithSeat(2, 12, true)}
			}

			_, err := newTestAssembler(timetableOf(tt.codes...), &fakeSeatMaps{legs: legs}, &recordingReporter{}).
				Assemble(context.Background(), "2026-10-15", "45")

			var tooMany *TooManyMissingLegsError
			require.ErrorAs(t, err, &tooMany)
			assert.Equal(t, len(tt.codes)-1, tooMany.Total)
			assert.Equal(t, tooMany.Missing, len(tooMany.Errs))

			var legErr *LegError
			assert.ErrorAs(t, err, &legErr, "constituent leg errors are reachable")
		})
	}
}

func TestAssembleConfigurableThreshold(t *testing.T) {
	seatMaps := &fakeSeatMaps{legs: map[string]seatMapResult{
		"HKI-PSL": {coaches: coachWithSeat(2, 12, true)},
		"PSL-TKL": {coaches: coachWithSeat(2, 12, true)},
	}}
	assembler := NewAssembler(&fakeTimetables{timetable: timetableOf("HKI", "PSL", "TKL", "RI", "TPE")}, &fakeSessions{}, seatMaps, Options{
		Policy:        quirks.Default,
		MaxFailedLegs: 2,
		Reporter:      &recordingReporter{},
	})

	_, err := assembler.Assemble(context.Background(), "2026-10-15", "45")
	var tooMany *TooManyMissingLegsError
	assert.ErrorAs(t, err, &tooMany)
}

func TestAssembleUnsupportedLastLeg(t *testing.T) {
	seatMaps := &fakeSeatMaps{legs: map[string]seatMapResult{
		"TPE-PSL": {coaches: coachWithSeat(2, 12, false)},
	}}
	reporter := &recordingReporter{}

	train, err := newTestAssembler(timetableOf("TPE", "PSL", "HKI"), seatMaps, reporter).
		Assemble(context.Background(), "2026-10-15", "45")
	require.NoError(t, err)

	assert.Zero(t, reporter.count(), "known unsupported leg is not reported")
	assert.Equal(t, train.TimeTableRows[0].Wagons, train.TimeTableRows[1].Wagons, "previous leg is copied")
	assert.NoError(t, train.TimeTableRows[1].Err)
	assert.Equal(t, []models.SeatStatus{models.SeatReserved, models.SeatReserved}, seatStatusOf(t, train, 2, 12))
}

func TestAssembleTrainNotFound(t *testing.T) {
	timetables := &fakeTimetables{err: ErrTrainNotFound}
	assembler := NewAssembler(timetables, &fakeSessions{err: errors.New("login down")}, &fakeSeatMaps{}, Options{})

	_, err := assembler.Assemble(context.Background(), "2026-10-15", "99999")
	assert.ErrorIs(t, err, ErrTrainNotFound, "missing train wins over a session failure")
}

func TestAssembleSessionFailure(t *testing.T) {
	loginErr := errors.New("login down")
	seatMaps := &fakeSeatMaps{}
	assembler := NewAssembler(&fakeTimetables{timetable: timetableOf("HKI", "TPE")}, &fakeSessions{err: loginErr}, seatMaps, Options{})

	_, err := assembler.Assemble(context.Background(), "2026-10-15", "45")
	assert.ErrorIs(t, err, loginErr)
	assert.Zero(t, atomic.LoadInt32(&seatMaps.calls))
}

func TestAssembleIgnoresUnpairedRow(t *testing.T) {
	timetable := timetableOf("HKI", "TPE")
	timetable.Rows = append(timetable.Rows, models.TimetableRow{StationShortCode: "OL", Type: models.StopDeparture})
	seatMaps := &fakeSeatMaps{legs: map[string]seatMapResult{"HKI-TPE": {coaches: coachWithSeat(2, 12, true)}}}

	train, err := newTestAssembler(timetable, seatMaps, &recordingReporter{}).Assemble(context.Background(), "2026-10-15", "45")
	require.NoError(t, err)
	assert.Len(t, train.TimeTableRows, 1)
}

func TestCachedAssembler(t *testing.T) {
	timetables := &fakeTimetables{timetable: timetableOf("HKI", "PSL", "TPE")}
	seatMaps := &fakeSeatMaps{legs: map[string]seatMapResult{
		"HKI-PSL": {coaches: coachWithSeat(2, 12, true)},
		"PSL-TPE": {coaches: coachWithSeat(2, 12, false)},
	}}
	assembler := NewAssembler(timetables, &fakeSessions{}, seatMaps, Options{Policy: quirks.Default})

	now := departure
	cached := NewCachedAssembler(assembler, 10*time.Minute, 2*time.Hour, cache.Options{
		Reporter: &recordingReporter{},
		Now:      func() time.Time { return now },
	})
	t.Cleanup(cached.Purge)

	first, err := cached.Assemble(context.Background(), "2026-10-15", "45")
	require.NoError(t, err)
	second, err := cached.Assemble(context.Background(), "2026-10-15", "45")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&timetables.calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&seatMaps.calls))

	// every leg fails now; the previous result is served while stale
	seatMaps.legs = map[string]seatMapResult{}
	now = now.Add(30 * time.Minute)

	third, err := cached.Assemble(context.Background(), "2026-10-15", "45")
	require.NoError(t, err)
	assert.Same(t, first, third)
	assert.Equal(t, int32(2), atomic.LoadInt32(&timetables.calls))
}

func TestCachedAssemblerPropagatesWithoutStale(t *testing.T) {
	assembler := newTestAssembler(timetableOf("HKI", "PSL", "TPE"), &fakeSeatMaps{}, &recordingReporter{})
	cached := NewCachedAssembler(assembler, 10*time.Minute, 2*time.Hour, cache.Options{})
	t.Cleanup(cached.Purge)

	_, err := cached.Assemble(context.Background(), "2026-10-15", "45")
	var tooMany *TooManyMissingLegsError
	assert.ErrorAs(t, err, &tooMany)
}

func TestCachedAssemblerCachesNotFound(t *testing.T) {
	timetables := &fakeTimetables{err: ErrTrainNotFound}
	cached := NewCachedAssembler(NewAssembler(timetables, &fakeSessions{}, &fakeSeatMaps{}, Options{}), 10*time.Minute, 2*time.Hour, cache.Options{})
	t.Cleanup(cached.Purge)

	for i := 0; i < 2; i++ {
		_, err := cached.Assemble(context.Background(), "2026-10-15", "99999")
		assert.ErrorIs(t, err, ErrTrainNotFound)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&timetables.calls))
}
