package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/lox/co2twin/internal/httputil"
	"github.com/lox/co2twin/internal/models"
)

const DefaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

// CityLocation is the point weather is fetched for.
type CityLocation struct {
	Name string
	Lat  float64
	Lon  float64
}

// CityLocations returns the centroid of each city's located stations,
// sorted by city name.
func CityLocations(stations []models.Station) []CityLocation {
	type acc struct {
		lat, lon float64
		n        int
	}
	sums := make(map[string]*acc)
	for i := range stations {
		st := &stations[i]
		if st.City == "" || !st.HasLocation() {
			continue
		}
		a := sums[st.City]
		if a == nil {
			a = &acc{}
			sums[st.City] = a
		}
		a.lat += st.Latitude.Float64
		a.lon += st.Longitude.Float64
		a.n++
	}

	out := make([]CityLocation, 0, len(sums))
	for city, a := range sums {
		out = append(out, CityLocation{Name: city, Lat: a.lat / float64(a.n), Lon: a.lon / float64(a.n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type WeatherClient struct {
	baseURL    string
	client     *http.Client
	archive    Archiver
	maxElapsed time.Duration
}

func NewWeatherClient(baseURL string) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	return &WeatherClient{baseURL: baseURL, client: httputil.NewClient()}
}

func (w *WeatherClient) SetArchiver(a Archiver) {
	w.archive = a
}

type currentResponse struct {
	Current struct {
		Time          string   `json:"time"`
		Temperature   *float64 `json:"temperature_2m"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
		WindDirection *float64 `json:"wind_direction_10m"`
	} `json:"current"`
}

// Current fetches the latest observation for a city. Wind speed is in km/h.
func (w *WeatherClient) Current(ctx context.Context, city CityLocation) (models.WeatherObservation, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(city.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(city.Lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,wind_speed_10m,wind_direction_10m")
	q.Set("wind_speed_unit", "kmh")
	q.Set("timezone", "GMT")
	u := w.baseURL + "?" + q.Encode()

	body, err := httputil.GetWithRetry(ctx, w.client, "open-meteo", u, w.maxElapsed)
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("fetch weather for %s: %w", city.Name, err)
	}
	if w.archive != nil {
		if _, err := w.archive.ArchivePayload(ctx, "open-meteo", w.baseURL, city.Name, body); err != nil {
			log.Printf("ingest: archive weather payload for %s: %v", city.Name, err)
		}
	}

	var data currentResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.WeatherObservation{}, fmt.Errorf("unmarshal weather: %w", err)
	}

	obs := models.WeatherObservation{City: city.Name, ObservedAt: time.Now().UTC()}
	if t, err := time.Parse("2006-01-02T15:04", data.Current.Time); err == nil {
		obs.ObservedAt = t
	}
	if data.Current.Temperature != nil {
		obs.Temperature = models.Float(*data.Current.Temperature)
	}
	if data.Current.WindSpeed != nil {
		obs.WindSpeed = models.Float(*data.Current.WindSpeed)
	}
	if data.Current.WindDirection != nil {
		obs.WindDirection = sql.NullInt64{Int64: int64(*data.Current.WindDirection), Valid: true}
	}
	return obs, nil
}
