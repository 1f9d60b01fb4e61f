package status

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/Chicken/VenaaRauhassa/internal/cache"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
)

const (
	trainSystemName = "rail/api/v1/trains"
	vrAPIMonitor    = "99"
	vrIDMonitor     = "102"
)

// Config holds the status page endpoints
type Config struct {
	DigitrafficURL string
	HeartbeatURL   string
}

// DefaultConfig points at the public status pages
var DefaultConfig = Config{
	DigitrafficURL: "https://status.digitraffic.fi/index.json",
	HeartbeatURL:   "https://status.antti.codes/api/status-page/heartbeat/vr",
}

// Status is the health of the upstream services
type Status struct {
	Digitraffic bool `json:"digitraffic"`
	VRAPI       bool `json:"vrApi"`
	VRID        bool `json:"vrId"`
}

type digitrafficStatus struct {
	Systems []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"systems"`
}

type heartbeats struct {
	HeartbeatList map[string][]struct {
		Status int `json:"status"`
	} `json:"heartbeatList"`
}

// Checker polls the status pages, caching the answer for a minute
type Checker struct {
	http   *upstream.Client
	config Config
	cache  *cache.SWR[Status]
}

func NewChecker(client *upstream.Client, config Config, opts cache.Options) *Checker {
	return &Checker{
		http:   client,
		config: config,
		cache:  cache.NewSWR[Status]("getAPIStatus", time.Minute, time.Minute, opts),
	}
}

// Check returns the current status. An unreachable status page reports its
// services as down rather than failing.
func (c *Checker) Check(ctx context.Context) (Status, error) {
	return c.cache.Get(ctx, cache.Key(), c.load)
}

func (c *Checker) load(ctx context.Context) (Status, error) {
	var (
		s  Status
		wg sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Digitraffic = c.digitrafficOK(ctx)
	}()
	go func() {
		defer wg.Done()
		s.VRAPI, s.VRID = c.vrOK(ctx)
	}()
	wg.Wait()

	return s, nil
}

func (c *Checker) digitrafficOK(ctx context.Context) bool {
	body, err := c.http.GetJSON(ctx, "digitraffic-status", c.config.DigitrafficURL, nil)
	if err != nil {
		log.Printf("Digitraffic status unavailable: %v", err)
		return false
	}

	var res digitrafficStatus
	if err := json.Unmarshal(body, &res); err != nil {
		log.Printf("Invalid digitraffic status: %v", err)
		return false
	}
	for _, system := range res.Systems {
		if system.Name == trainSystemName {
			return system.Status == "ok"
		}
	}
	return false
}

func (c *Checker) vrOK(ctx context.Context) (api, id bool) {
	body, err := c.http.GetJSON(ctx, "vr-status", c.config.HeartbeatURL, nil)
	if err != nil {
		log.Printf("VR status unavailable: %v", err)
		return false, false
	}

	var res heartbeats
	if err := json.Unmarshal(body, &res); err != nil {
		log.Printf("Invalid VR status: %v", err)
		return false, false
	}
	return latestUp(res, vrAPIMonitor), latestUp(res, vrIDMonitor)
}

func latestUp(res heartbeats, monitor string) bool {
	beats := res.HeartbeatList[monitor]
	if len(beats) == 0 {
		return false
	}
	return beats[len(beats)-1].Status == 1
}
