package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geoIPTimeout = 8 * time.Second

// UserLocation is the detected current location, at state granularity.
type UserLocation struct {
	City        string
	Region      string
	RegionCode  string
	Country     string
	CountryCode string
	Source      string
}

// InBrazil reports whether the location resolved to Brazil.
func (l UserLocation) InBrazil() bool {
	code := strings.ToUpper(strings.TrimSpace(l.CountryCode))
	if code != "" {
		return code == "BR"
	}
	country := strings.ToLower(strings.TrimSpace(l.Country))
	return country == "brazil" || country == "brasil"
}

// geoPayload is the union of the fields the supported providers return.
// The error member is a bool on ipapi and an object on ipinfo.
type geoPayload struct {
	City        string          `json:"city"`
	Region      string          `json:"region"`
	RegionCode  string          `json:"region_code"`
	Country     string          `json:"country"`
	CountryName string          `json:"country_name"`
	CountryCode string          `json:"country_code"`
	Error       json.RawMessage `json:"error"`
	Reason      string          `json:"reason"`
	Success     *bool           `json:"success"`
	Message     string          `json:"message"`
	Bogon       bool            `json:"bogon"`
}

type geoProvider struct {
	name   string
	url    string
	decode func(geoPayload) (UserLocation, error)
}

var geoProviders = []geoProvider{
	{name: "ipapi", url: "https://ipapi.co/json/", decode: fromIPAPI},
	{name: "ipwhois", url: "https://ipwho.is/", decode: fromIPWhoIs},
	{name: "ipinfo", url: "https://ipinfo.io/json", decode: fromIPInfo},
}

// GeoIP resolves the caller's location from its public address, falling back
// through several free providers.
type GeoIP struct {
	httpClient *http.Client
	providers  []geoProvider
}

func NewGeoIP(httpClient *http.Client) *GeoIP {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: geoIPTimeout}
	}
	return &GeoIP{httpClient: httpClient, providers: geoProviders}
}

// Locate asks each provider in order and returns the first usable answer.
// Cancellation stops the walk immediately.
func (g *GeoIP) Locate(ctx context.Context) (UserLocation, error) {
	if len(g.providers) == 0 {
		return UserLocation{}, errors.New("geoip: no providers")
	}

	var errs []error
	for _, p := range g.providers {
		loc, err := g.query(ctx, p)
		if err == nil {
			return loc, nil
		}
		if ctx.Err() != nil {
			return UserLocation{}, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
	}
	return UserLocation{}, fmt.Errorf("geoip: every provider failed: %w", errors.Join(errs...))
}

func (g *GeoIP) query(ctx context.Context, p geoProvider) (UserLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return UserLocation{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)

	res, err := g.httpClient.Do(req)
	if err != nil {
		return UserLocation{}, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return UserLocation{}, &APIError{StatusCode: res.StatusCode, Status: res.Status, Endpoint: p.url, Body: compactErrorSnippet(string(snippet))}
	}

	var payload geoPayload
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&payload); err != nil {
		return UserLocation{}, fmt.Errorf("decode: %w", err)
	}
	loc, err := p.decode(payload)
	if err != nil {
		return UserLocation{}, err
	}
	if strings.TrimSpace(loc.Region) == "" && strings.TrimSpace(loc.RegionCode) == "" {
		return UserLocation{}, errors.New("no region in answer")
	}
	loc.Source = p.name
	return loc, nil
}

func fromIPAPI(p geoPayload) (UserLocation, error) {
	if string(p.Error) == "true" {
		return UserLocation{}, providerFailure(p.Reason)
	}
	return UserLocation{
		City:        p.City,
		Region:      p.Region,
		RegionCode:  p.RegionCode,
		Country:     p.CountryName,
		CountryCode: p.CountryCode,
	}, nil
}

func fromIPWhoIs(p geoPayload) (UserLocation, error) {
	if p.Success != nil && !*p.Success {
		return UserLocation{}, providerFailure(p.Message)
	}
	return UserLocation{
		City:        p.City,
		Region:      p.Region,
		RegionCode:  p.RegionCode,
		Country:     p.Country,
		CountryCode: p.CountryCode,
	}, nil
}

// ipinfo reports the region by name only and puts the ISO code in "country".
func fromIPInfo(p geoPayload) (UserLocation, error) {
	if p.Bogon {
		return UserLocation{}, errors.New("private or reserved address")
	}
	if len(p.Error) > 0 && p.Error[0] == '{' {
		var detail struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(p.Error, &detail)
		return UserLocation{}, providerFailure(detail.Message)
	}
	return UserLocation{
		City:        p.City,
		Region:      p.Region,
		CountryCode: p.Country,
	}, nil
}

func providerFailure(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "lookup refused"
	}
	return errors.New(reason)
}
