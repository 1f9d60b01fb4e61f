package vr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
)

// Relogin replaces the stored session after the upstream rejected it
type Relogin interface {
	ForceLogin(ctx context.Context, reason string) error
}

// SeatMapClient fetches per-leg wagon maps from the VR API
type SeatMapClient struct {
	http    *upstream.Client
	apiURL  string
	apiKey  string
	relogin Relogin
}

func NewSeatMapClient(client *upstream.Client, config Config, relogin Relogin) *SeatMapClient {
	return &SeatMapClient{
		http:    client,
		apiURL:  config.APIURL,
		apiKey:  config.APIKey,
		relogin: relogin,
	}
}

// FetchSeatMap returns the coaches of trainNumber between dep and arr.
// A 401 or 403 triggers a fresh login before the error is returned as
// *UpstreamAuthExpiredError; the call itself is not retried.
func (c *SeatMapClient) FetchSeatMap(ctx context.Context, dep, arr string, departure time.Time, trainNumber, sessionID, token string) (models.CoachesByNumber, error) {
	query := url.Values{
		"departureStation": {dep},
		"arrivalStation":   {arr},
		"departureTime":    {departure.UTC().Format("2006-01-02T15:04:05.000Z")},
	}
	endpoint := fmt.Sprintf("%s/trains/%s/wagonmap/v3?%s", c.apiURL, url.PathEscape(trainNumber), query.Encode())

	body, err := c.http.GetJSON(ctx, vendorVR, endpoint, map[string]string{
		"x-vr-requestid": uuid.NewString(),
		"x-vr-sessionid": sessionID,
		"aste-apikey":    c.apiKey,
		"x-jwt-token":    token,
	})
	if err != nil {
		status := upstream.StatusCode(err)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			if c.relogin != nil {
				if loginErr := c.relogin.ForceLogin(ctx, "wagon-error"); loginErr != nil {
					log.Printf("Relogin after rejected session failed: %v", loginErr)
				}
			}
			return nil, &UpstreamAuthExpiredError{StatusCode: status, Err: err}
		}
		return nil, err
	}

	return parseWagonMap(body)
}

// IsAuthExpired reports whether err came from a rejected session
func IsAuthExpired(err error) bool {
	var target *UpstreamAuthExpiredError
	return errors.As(err, &target)
}
