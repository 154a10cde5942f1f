package ingest

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lox/co2twin/internal/metrics"
	"github.com/lox/co2twin/internal/models"
)

// WeatherCache holds the latest observation per city.
type WeatherCache struct {
	mu  sync.RWMutex
	obs map[string]models.WeatherObservation
}

func NewWeatherCache() *WeatherCache {
	return &WeatherCache{obs: make(map[string]models.WeatherObservation)}
}

func (c *WeatherCache) Set(obs models.WeatherObservation) {
	c.mu.Lock()
	c.obs[obs.City] = obs
	c.mu.Unlock()
}

func (c *WeatherCache) Get(city string) (models.WeatherObservation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obs, ok := c.obs[city]
	return obs, ok
}

// WeatherFetcher returns the current observation for a city.
type WeatherFetcher interface {
	Current(ctx context.Context, city CityLocation) (models.WeatherObservation, error)
}

// WeatherRecorder persists observations. Optional.
type WeatherRecorder interface {
	InsertWeather(ctx context.Context, obs models.WeatherObservation) error
}

// PayloadJanitor prunes archived upstream payloads. Optional.
type PayloadJanitor interface {
	CleanupOldPayloads(ctx context.Context, retention time.Duration) (int64, error)
}

// Scheduler refreshes city weather on an interval. It only writes the
// weather cache; station readings are never touched after load.
type Scheduler struct {
	weather   WeatherFetcher
	cache     *WeatherCache
	cities    []CityLocation
	interval  time.Duration
	recorder  WeatherRecorder
	janitor   PayloadJanitor
	retention time.Duration
}

func NewScheduler(weather WeatherFetcher, cache *WeatherCache, cities []CityLocation) *Scheduler {
	return &Scheduler{
		weather:   weather,
		cache:     cache,
		cities:    cities,
		interval:  30 * time.Minute,
		retention: 7 * 24 * time.Hour,
	}
}

func (s *Scheduler) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *Scheduler) SetRecorder(r WeatherRecorder) {
	s.recorder = r
}

func (s *Scheduler) SetJanitor(j PayloadJanitor, retention time.Duration) {
	s.janitor = j
	if retention > 0 {
		s.retention = retention
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.RefreshWeather(ctx)
	s.cleanupPayloads(ctx)

	weatherTicker := time.NewTicker(s.interval)
	cleanupTicker := time.NewTicker(24 * time.Hour)
	defer weatherTicker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-weatherTicker.C:
			s.RefreshWeather(ctx)
		case <-cleanupTicker.C:
			s.cleanupPayloads(ctx)
		}
	}
}

// RefreshWeather fetches every city once. Failures leave the previous
// cached observation in place.
func (s *Scheduler) RefreshWeather(ctx context.Context) int {
	refreshed := 0
	for _, city := range s.cities {
		if ctx.Err() != nil {
			return refreshed
		}
		obs, err := s.weather.Current(ctx, city)
		if err != nil {
			log.Printf("scheduler: weather for %s: %v", city.Name, err)
			metrics.WeatherRefreshes.WithLabelValues(city.Name, "error").Inc()
			continue
		}

		if flags := ValidateWeather(&obs); len(flags) > 0 {
			log.Printf("scheduler: weather for %s flagged: %s", city.Name, strings.Join(flags, ","))
			obs = Sanitize(obs, flags)
		}

		s.cache.Set(obs)
		if s.recorder != nil {
			if err := s.recorder.InsertWeather(ctx, obs); err != nil {
				log.Printf("scheduler: store weather for %s: %v", city.Name, err)
			}
		}
		metrics.WeatherRefreshes.WithLabelValues(city.Name, "ok").Inc()
		refreshed++
	}
	log.Printf("scheduler: refreshed weather for %d of %d cities", refreshed, len(s.cities))
	return refreshed
}

func (s *Scheduler) cleanupPayloads(ctx context.Context) {
	if s.janitor == nil {
		return
	}
	n, err := s.janitor.CleanupOldPayloads(ctx, s.retention)
	if err != nil {
		log.Printf("scheduler: cleanup payloads: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler: removed %d archived payloads", n)
	}
}
