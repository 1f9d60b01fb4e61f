package train

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/notify"
	"github.com/Chicken/VenaaRauhassa/internal/quirks"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
	"github.com/Chicken/VenaaRauhassa/internal/vr"
)

// DefaultMaxFailedLegs is the number of failed legs that aborts an assembly
const DefaultMaxFailedLegs = 3

// TimetableFetcher returns the trimmed timetable of a train
type TimetableFetcher interface {
	FetchTimetable(ctx context.Context, date, trainNumber string) (*models.Timetable, error)
}

// SessionProvider returns a currently valid upstream session
type SessionProvider interface {
	Get(ctx context.Context) (models.Session, error)
}

// SeatMapFetcher returns the coaches of one leg
type SeatMapFetcher interface {
	FetchSeatMap(ctx context.Context, dep, arr string, departure time.Time, trainNumber, sessionID, token string) (models.CoachesByNumber, error)
}

// Options configures an Assembler
type Options struct {
	Policy quirks.Policy
	// MaxFailedLegs aborts the assembly once this many legs have no seat map
	MaxFailedLegs int
	Reporter      notify.Reporter
}

// Assembler builds a Train from the timetable and the per-leg seat maps
type Assembler struct {
	timetables TimetableFetcher
	sessions   SessionProvider
	seatMaps   SeatMapFetcher
	opts       Options
}

func NewAssembler(timetables TimetableFetcher, sessions SessionProvider, seatMaps SeatMapFetcher, opts Options) *Assembler {
	if opts.MaxFailedLegs <= 0 {
		opts.MaxFailedLegs = DefaultMaxFailedLegs
	}
	if opts.Reporter == nil {
		opts.Reporter = notify.LogReporter{}
	}
	return &Assembler{timetables: timetables, sessions: sessions, seatMaps: seatMaps, opts: opts}
}

// Assemble fetches the timetable and seat maps of a train on date.
//
// Legs whose seat map fails keep nil wagons and their error. The assembly
// fails with *TooManyMissingLegsError when every leg or MaxFailedLegs legs
// failed, and with ErrTrainNotFound when the train has no timetable.
func (a *Assembler) Assemble(ctx context.Context, date, trainNumber string) (*models.Train, error) {
	var (
		timetable    *models.Timetable
		auth         models.Session
		timetableErr error
		authErr      error
		g            errgroup.Group
	)
	g.Go(func() error {
		timetable, timetableErr = a.timetables.FetchTimetable(ctx, date, trainNumber)
		return timetableErr
	})
	g.Go(func() error {
		auth, authErr = a.sessions.Get(ctx)
		return authErr
	})
	_ = g.Wait()

	if timetableErr != nil {
		if errors.Is(timetableErr, ErrTrainNotFound) {
			return nil, ErrTrainNotFound
		}
		return nil, timetableErr
	}
	if authErr != nil {
		return nil, fmt.Errorf("failed to get session: %w", authErr)
	}

	legs := a.fetchLegs(ctx, date, timetable, auth)
	a.backfillUnsupportedLeg(legs)

	var errs []error
	for _, leg := range legs {
		if leg.Wagons == nil {
			errs = append(errs, leg.Err)
		}
	}
	if len(errs) == len(legs) || len(errs) >= a.opts.MaxFailedLegs {
		return nil, &TooManyMissingLegsError{Missing: len(errs), Total: len(legs), Errs: errs}
	}

	return &models.Train{
		TrainNumber:   timetable.TrainNumber,
		TrainType:     timetable.TrainType,
		DepartureDate: timetable.DepartureDate,
		TimeTableRows: legs,
	}, nil
}

// fetchLegs pairs the timetable rows into legs and fetches every seat map concurrently.
// A trailing unpaired row is ignored.
func (a *Assembler) fetchLegs(ctx context.Context, date string, timetable *models.Timetable, auth models.Session) []models.Leg {
	number := strconv.Itoa(timetable.TrainNumber)
	legs := make([]models.Leg, len(timetable.Rows)/2)

	var wg sync.WaitGroup
	for i := range legs {
		dep, arr := timetable.Rows[i*2], timetable.Rows[i*2+1]
		legs[i] = models.Leg{Dep: dep, Arr: arr}

		wg.Add(1)
		go func(leg *models.Leg) {
			defer wg.Done()

			wagons, err := a.seatMaps.FetchSeatMap(ctx, dep.StationShortCode, arr.StationShortCode,
				dep.ScheduledTime, number, auth.SessionID, auth.Token)
			if err == nil {
				leg.Wagons = wagons
				return
			}

			leg.Err = &LegError{Dep: dep.StationShortCode, Arr: arr.StationShortCode, Err: err}
			if a.opts.Policy.IsUnsupportedLeg(dep.StationShortCode, arr.StationShortCode) {
				return
			}

			log.Printf("Wagon map fetch failed for %s %s %s-%s: %v", date, number, dep.StationShortCode, arr.StationShortCode, err)
			a.opts.Reporter.Report(ctx, map[string]string{
				"date":    date,
				"train":   number,
				"error":   describeLegError(err),
				"message": "Wagon map data fetching failed",
			}, err)
		}(&legs[i])
	}
	wg.Wait()

	return legs
}

// backfillUnsupportedLeg copies the previous leg's wagons into a failed last
// leg the seat-map provider is known not to serve
func (a *Assembler) backfillUnsupportedLeg(legs []models.Leg) {
	n := len(legs)
	if n < 2 {
		return
	}
	last, prev := &legs[n-1], &legs[n-2]
	if last.Wagons == nil && prev.Wagons != nil &&
		a.opts.Policy.IsUnsupportedLeg(last.Dep.StationShortCode, last.Arr.StationShortCode) {
		last.Wagons = prev.Wagons
		last.Err = nil
	}
}

func describeLegError(err error) string {
	var schemaErr *upstream.SchemaError
	if errors.As(err, &schemaErr) {
		return "Schema validation error"
	}
	if vr.IsAuthExpired(err) {
		return "Upstream session expired"
	}
	return err.Error()
}
