package vr

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/upstream"
)

type wagonMapResponse struct {
	Coaches *map[string]rawCoach `json:"coaches"`
}

type rawCoach struct {
	Number     *int        `json:"number"`
	PlaceType  *string     `json:"placeType"`
	Type       *string     `json:"type"`
	FloorCount *int        `json:"floorCount"`
	Order      *int        `json:"order"`
	PlaceList  *[]rawPlace `json:"placeList"`
}

type rawPlace struct {
	Floor          *int      `json:"floor"`
	LogicalSection *int      `json:"logicalSection"`
	Number         *int      `json:"number"`
	Bookable       *bool     `json:"bookable"`
	Type           *string   `json:"type"`
	ProductType    *string   `json:"productType"`
	Services       *[]string `json:"services"`
	Position       *string   `json:"position"`
}

type tokenResponse struct {
	BffToken  *string `json:"bffToken"`
	ExpiresOn *string `json:"expiresOn"`
}

type missingField string

func (f missingField) Error() string {
	return fmt.Sprintf("%s: required", string(f))
}

// parseWagonMap decodes and validates a wagon map payload
func parseWagonMap(body []byte) (models.CoachesByNumber, error) {
	var res wagonMapResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &upstream.SchemaError{Resource: "wagonmap", Payload: body, Err: err}
	}
	if res.Coaches == nil {
		return nil, &upstream.SchemaError{Resource: "wagonmap", Payload: body, Err: missingField("coaches")}
	}

	keys := make([]string, 0, len(*res.Coaches))
	for k := range *res.Coaches {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	coaches := make(models.CoachesByNumber, len(keys))
	for _, key := range keys {
		coach, err := (*res.Coaches)[key].validate("coaches." + key)
		if err != nil {
			return nil, &upstream.SchemaError{Resource: "wagonmap", Payload: body, Err: err}
		}
		coaches[key] = coach
	}
	return coaches, nil
}

func (c rawCoach) validate(path string) (models.Coach, error) {
	switch {
	case c.Number == nil:
		return models.Coach{}, missingField(path + ".number")
	case c.Type == nil:
		return models.Coach{}, missingField(path + ".type")
	case c.FloorCount == nil:
		return models.Coach{}, missingField(path + ".floorCount")
	case c.Order == nil:
		return models.Coach{}, missingField(path + ".order")
	case c.PlaceList == nil:
		return models.Coach{}, missingField(path + ".placeList")
	}

	places := make([]models.Place, 0, len(*c.PlaceList))
	for i, p := range *c.PlaceList {
		place, err := p.validate(fmt.Sprintf("%s.placeList[%d]", path, i))
		if err != nil {
			return models.Coach{}, err
		}
		places = append(places, place)
	}

	return models.Coach{
		Number:     *c.Number,
		PlaceType:  c.PlaceType,
		Type:       *c.Type,
		FloorCount: *c.FloorCount,
		Order:      *c.Order,
		PlaceList:  places,
	}, nil
}

func (p rawPlace) validate(path string) (models.Place, error) {
	switch {
	case p.Floor == nil:
		return models.Place{}, missingField(path + ".floor")
	case p.LogicalSection == nil:
		return models.Place{}, missingField(path + ".logicalSection")
	case p.Number == nil:
		return models.Place{}, missingField(path + ".number")
	case p.Bookable == nil:
		return models.Place{}, missingField(path + ".bookable")
	case p.Type == nil:
		return models.Place{}, missingField(path + ".type")
	case p.ProductType == nil:
		return models.Place{}, missingField(path + ".productType")
	case p.Services == nil:
		return models.Place{}, missingField(path + ".services")
	}

	return models.Place{
		Floor:          *p.Floor,
		LogicalSection: *p.LogicalSection,
		Number:         *p.Number,
		Bookable:       *p.Bookable,
		Type:           *p.Type,
		ProductType:    *p.ProductType,
		Services:       *p.Services,
		Position:       p.Position,
	}, nil
}

// parseToken decodes a token endpoint payload into the token and its expiry
func parseToken(body []byte) (string, time.Time, error) {
	var res tokenResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", time.Time{}, &upstream.SchemaError{Resource: "token", Payload: body, Err: err}
	}
	if res.BffToken == nil {
		return "", time.Time{}, &upstream.SchemaError{Resource: "token", Payload: body, Err: missingField("bffToken")}
	}
	if res.ExpiresOn == nil {
		return "", time.Time{}, &upstream.SchemaError{Resource: "token", Payload: body, Err: missingField("expiresOn")}
	}

	expires, err := upstream.ParseTime(*res.ExpiresOn)
	if err != nil {
		return "", time.Time{}, &upstream.SchemaError{Resource: "token", Payload: body, Err: err}
	}
	return *res.BffToken, expires, nil
}
