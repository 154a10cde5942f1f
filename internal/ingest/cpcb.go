package ingest

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lox/co2twin/internal/httputil"
	"github.com/lox/co2twin/internal/models"
)

const (
	DefaultCPCBURL      = "https://airquality.cpcb.gov.in/caaqms/iit_rss_feed_with_coordinates"
	DefaultMatchRadiusM = 20000
)

// Archiver keeps raw upstream payloads.
type Archiver interface {
	ArchivePayload(ctx context.Context, source, endpoint, key string, payload []byte) (bool, error)
}

type CPCBClient struct {
	url        string
	client     *http.Client
	archive    Archiver
	maxElapsed time.Duration
}

func NewCPCBClient(url string) *CPCBClient {
	if url == "" {
		url = DefaultCPCBURL
	}
	return &CPCBClient{url: url, client: httputil.NewClient()}
}

func (c *CPCBClient) SetArchiver(a Archiver) {
	c.archive = a
}

// FeedStation is one monitoring site in the CPCB feed.
type FeedStation struct {
	Name       string
	City       string
	State      string
	Lat        float64
	Lon        float64
	PM25       sql.NullFloat64
	PM10       sql.NullFloat64
	NO2        sql.NullFloat64
	CO         sql.NullFloat64
	LastUpdate string
}

// LiveReading is a CO2 estimate mapped onto one of our stations.
type LiveReading struct {
	CO2       float64
	Timestamp string
	FeedName  string
	DistanceM float64
}

func (c *CPCBClient) Fetch(ctx context.Context) ([]FeedStation, error) {
	body, err := httputil.GetWithRetry(ctx, c.client, "cpcb", c.url, c.maxElapsed)
	if err != nil {
		return nil, fmt.Errorf("fetch cpcb feed: %w", err)
	}
	if c.archive != nil {
		if _, err := c.archive.ArchivePayload(ctx, "cpcb", c.url, "", body); err != nil {
			log.Printf("ingest: archive cpcb payload: %v", err)
		}
	}
	return ParseCPCBFeed(body)
}

// feedNumber accepts numbers, numeric strings and "NA".
type feedNumber sql.NullFloat64

func (n *feedNumber) UnmarshalJSON(b []byte) error {
	*n = feedNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = feedNumber{Float64: f, Valid: true}
	return nil
}

type feedPollutant struct {
	IndexID string     `json:"indexId"`
	Avg     feedNumber `json:"avg"`
}

type feedSite struct {
	StationName string          `json:"stationName"`
	Latitude    feedNumber      `json:"latitude"`
	Longitude   feedNumber      `json:"longitude"`
	LastUpdate  string          `json:"lastUpdate"`
	Pollutants  []feedPollutant `json:"pollutants"`
}

type feedCity struct {
	CityID         string     `json:"cityId"`
	StationsInCity []feedSite `json:"stationsInCity"`
	Stations       []feedSite `json:"stations"`
}

type feedState struct {
	StateID       string     `json:"stateId"`
	CitiesInState []feedCity `json:"citiesInState"`
	Cities        []feedCity `json:"cities"`
}

// ParseCPCBFeed walks the state, city, station hierarchy. The state list is
// either the top-level value or sits under a data, results, stations or
// feeds key. Sites without parseable coordinates are skipped.
func ParseCPCBFeed(body []byte) ([]FeedStation, error) {
	states, err := locateStates(body)
	if err != nil {
		return nil, err
	}

	var out []FeedStation
	for _, state := range states {
		cities := state.CitiesInState
		if len(cities) == 0 {
			cities = state.Cities
		}
		for _, city := range cities {
			sites := city.StationsInCity
			if len(sites) == 0 {
				sites = city.Stations
			}
			for _, site := range sites {
				if !site.Latitude.Valid || !site.Longitude.Valid {
					continue
				}
				fs := FeedStation{
					Name:       site.StationName,
					City:       city.CityID,
					State:      state.StateID,
					Lat:        site.Latitude.Float64,
					Lon:        site.Longitude.Float64,
					LastUpdate: site.LastUpdate,
				}
				for _, p := range site.Pollutants {
					assignPollutant(&fs, p)
				}
				out = append(out, fs)
			}
		}
	}
	return out, nil
}

func locateStates(body []byte) ([]feedState, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty cpcb payload")
	}
	if body[0] == '[' {
		var states []feedState
		if err := json.Unmarshal(body, &states); err != nil {
			return nil, fmt.Errorf("unmarshal cpcb states: %w", err)
		}
		return states, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("unmarshal cpcb payload: %w", err)
	}
	for _, key := range []string{"data", "results", "stations", "feeds"} {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		var states []feedState
		if err := json.Unmarshal(raw, &states); err == nil {
			return states, nil
		}
	}
	return nil, fmt.Errorf("cpcb payload has no state list")
}

func assignPollutant(fs *FeedStation, p feedPollutant) {
	v := sql.NullFloat64(p.Avg)
	if !v.Valid {
		return
	}
	idx := strings.ToLower(strings.TrimSpace(p.IndexID))
	var dst *sql.NullFloat64
	switch {
	case strings.Contains(idx, "pm2"):
		dst = &fs.PM25
	case strings.Contains(idx, "pm10"):
		dst = &fs.PM10
	case strings.Contains(idx, "no2"):
		dst = &fs.NO2
	case strings.Contains(idx, "co"):
		dst = &fs.CO
	default:
		return
	}
	if !dst.Valid {
		*dst = v
	}
}

// MatchLive maps each feed site to the nearest located station within
// radiusM and estimates its CO2. When several sites map to one station the
// nearest wins.
func MatchLive(feed []FeedStation, stations []models.Station, radiusM float64, now time.Time) map[string]LiveReading {
	if radiusM <= 0 {
		radiusM = DefaultMatchRadiusM
	}
	out := make(map[string]LiveReading)
	for _, fs := range feed {
		nearest := ""
		best := math.Inf(1)
		for i := range stations {
			st := &stations[i]
			if !st.HasLocation() {
				continue
			}
			d := HaversineM(fs.Lat, fs.Lon, st.Latitude.Float64, st.Longitude.Float64)
			if d < best {
				best = d
				nearest = st.Name
			}
		}
		if nearest == "" || best > radiusM {
			continue
		}
		if prev, ok := out[nearest]; ok && prev.DistanceM <= best {
			continue
		}
		ts := fs.LastUpdate
		if ts == "" {
			ts = now.UTC().Format(time.RFC3339)
		}
		out[nearest] = LiveReading{
			CO2:       EstimateCO2(fs.PM25, fs.PM10, fs.NO2, fs.CO),
			Timestamp: ts,
			FeedName:  fs.Name,
			DistanceM: best,
		}
	}
	return out
}
