package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lox/co2twin/internal/api"
	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/efficiency"
	"github.com/lox/co2twin/internal/ingest"
	"github.com/lox/co2twin/internal/intervention"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/queue"
	"github.com/lox/co2twin/internal/report"
	"github.com/lox/co2twin/internal/seasonal"
	"github.com/lox/co2twin/internal/session"
)

type ServeCmd struct {
	Port            string        `help:"HTTP port." default:"8080" env:"PORT"`
	Mode            string        `help:"Initial display mode." enum:"baseline,live,both" default:"baseline" env:"CO2TWIN_MODE"`
	CPCBURL         string        `help:"CPCB live feed URL." name:"cpcb-url" env:"CO2TWIN_CPCB_URL"`
	MatchRadiusM    float64       `help:"Maximum distance between a feed site and a station, in metres." default:"20000" env:"CO2TWIN_MATCH_RADIUS_M"`
	WeatherURL      string        `help:"Open-Meteo forecast endpoint." default:"https://api.open-meteo.com/v1/forecast" env:"CO2TWIN_WEATHER_URL"`
	WeatherInterval time.Duration `help:"Weather refresh interval." default:"30m" env:"CO2TWIN_WEATHER_INTERVAL"`
	Retention       time.Duration `help:"How long raw upstream payloads are kept." default:"168h" env:"CO2TWIN_RETENTION"`
	NoPoll          bool          `help:"Skip the live feed and weather polling." env:"CO2TWIN_NO_POLL"`
	KafkaBrokers    []string      `help:"Kafka brokers for report entries." env:"KAFKA_BROKERS"`
	KafkaTopic      string        `help:"Kafka topic for report entries." default:"co2twin.interventions" env:"KAFKA_TOPIC"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(ctx, g)
	if err != nil {
		return err
	}
	defer d.Close()

	stations, err := loadStations(g)
	if err != nil {
		return err
	}

	var live map[string]ingest.LiveReading
	if !c.NoPoll {
		cpcb := ingest.NewCPCBClient(c.CPCBURL)
		cpcb.SetArchiver(d.sqlite)
		feed, err := cpcb.Fetch(ctx)
		if err != nil {
			log.Printf("cpcb: live feed unavailable, continuing with baseline only: %v", err)
		} else {
			live = ingest.MatchLive(feed, stations, c.MatchRadiusM, time.Now())
		}
	}

	loaded, err := ingest.LoadSession(ctx, d.repo, stations, live)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	sinks := []report.Sink{d.sqlite}
	if len(c.KafkaBrokers) > 0 {
		producer := queue.NewProducer(c.KafkaBrokers, c.KafkaTopic)
		defer producer.Close()
		sinks = append(sinks, producer)
		log.Printf("kafka: publishing report entries to %s", c.KafkaTopic)
	}

	sess := &session.Session{
		DisplayMode: display.Mode(c.Mode),
		ColorMode:   session.ColorByCO2,
		Report:      report.NewLog(sinks...),
	}

	cache := ingest.NewWeatherCache()
	for _, city := range ingest.CityLocations(loaded) {
		obs, err := d.sqlite.LatestWeather(ctx, city.Name)
		if err != nil {
			log.Printf("weather: load history for %s: %v", city.Name, err)
			continue
		}
		if obs != nil {
			cache.Set(*obs)
		}
	}

	if !c.NoPoll {
		weather := ingest.NewWeatherClient(c.WeatherURL)
		weather.SetArchiver(d.sqlite)
		sched := ingest.NewScheduler(weather, cache, ingest.CityLocations(loaded))
		sched.SetInterval(c.WeatherInterval)
		sched.SetRecorder(d.sqlite)
		sched.SetJanitor(d.sqlite, c.Retention)
		go sched.Run(ctx)
	}

	server := api.NewServer(d.repo, sess, cache, c.Port)
	return server.Run(ctx)
}

type SuggestCmd struct {
	Station string  `arg:"" help:"Station name."`
	Method  string  `help:"Intervention method." default:"Roadside Capture Unit"`
	Month   string  `help:"Month 1-12 or auto. Empty ignores weather." default:""`
	City    string  `help:"City for the weather scenario. Defaults to the station's city."`
	Temp    string  `help:"Observed temperature in °C for the scenario."`
	Wind    string  `help:"Observed wind speed in km/h for the scenario."`
	LULC    string  `help:"Override the station's land use." name:"lulc"`
	NDVI    *string `help:"Override the station's NDVI." name:"ndvi"`
	Albedo  *string `help:"Override the station's albedo."`
}

func (c *SuggestCmd) Run(g *Globals) error {
	ctx := context.Background()
	d, err := openDeps(ctx, g)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := ensureSeeded(ctx, g, d.repo); err != nil {
		return err
	}

	st, err := d.repo.GetStation(ctx, c.Station)
	if err != nil {
		return fmt.Errorf("station %s: %w", c.Station, err)
	}

	var scenario *seasonal.Scenario
	if c.Month != "" {
		city := c.City
		if city == "" {
			city = st.City
		}
		sc, err := buildScenario(city, c.Month, c.Temp, c.Wind)
		if err != nil {
			return err
		}
		scenario = &sc
	}

	var overrides *efficiency.Overrides
	if c.LULC != "" || c.NDVI != nil || c.Albedo != nil {
		overrides = &efficiency.Overrides{}
		if c.LULC != "" {
			overrides.LULC = &c.LULC
		}
		if overrides.NDVI, err = optionalFloat("ndvi", c.NDVI); err != nil {
			return err
		}
		if overrides.Albedo, err = optionalFloat("albedo", c.Albedo); err != nil {
			return err
		}
	}

	return printJSON(efficiency.Explain(st, efficiency.Method(c.Method), scenario, overrides))
}

type ScenarioCmd struct {
	City  string `arg:"" help:"City name."`
	Month string `help:"Month 1-12 or auto." default:"auto"`
	Temp  string `help:"Observed temperature in °C."`
	Wind  string `help:"Observed wind speed in km/h."`
}

type scenarioOutput struct {
	seasonal.Scenario
	DisplayTemp *float64 `json:"display_temp,omitempty"`
	WindMs      *float64 `json:"wind_ms,omitempty"`
}

func (c *ScenarioCmd) Run(g *Globals) error {
	sc, err := buildScenario(c.City, c.Month, c.Temp, c.Wind)
	if err != nil {
		return err
	}
	out := scenarioOutput{Scenario: sc}
	if sc.DisplayTemp.Valid {
		out.DisplayTemp = &sc.DisplayTemp.Float64
	}
	if sc.WindMs.Valid {
		out.WindMs = &sc.WindMs.Float64
	}
	return printJSON(out)
}

type ApplyCmd struct {
	Station    string  `arg:"" help:"Station name."`
	Method     string  `help:"Intervention method." default:"Roadside Capture Unit"`
	Efficiency float64 `help:"Reduction percentage, 0-100." required:""`
	Target     string  `help:"Reading to reduce." enum:"baseline,live" default:"baseline"`
	Token      string  `help:"Integrity token read with the station. Defaults to the current token."`
	Retry      int     `help:"Attempts when the token goes stale. 1 disables retry." default:"1"`
}

func (c *ApplyCmd) Run(g *Globals) error {
	ctx := context.Background()
	d, err := openDeps(ctx, g)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := ensureSeeded(ctx, g, d.repo); err != nil {
		return err
	}

	req := intervention.Request{
		Station:    c.Station,
		Method:     c.Method,
		Efficiency: c.Efficiency,
		Target:     models.Target(c.Target),
		Token:      c.Token,
	}
	if req.Token == "" {
		st, err := d.repo.GetStation(ctx, c.Station)
		if err != nil {
			return fmt.Errorf("station %s: %w", c.Station, err)
		}
		req.Token = st.IntegrityToken
	}

	sess := &session.Session{Report: report.NewLog(d.sqlite)}
	sess.Report.Start(time.Now())
	engine := intervention.NewEngine(d.repo)

	var res *intervention.Result
	if c.Retry > 1 {
		res, err = engine.ApplyWithRetry(ctx, sess, req, c.Retry)
	} else {
		res, err = engine.Apply(ctx, sess, req)
	}
	if err != nil {
		return err
	}
	return printJSON(res)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	d, err := openDeps(context.Background(), g)
	if err != nil {
		return err
	}
	defer d.Close()
	v, err := d.sqlite.MigrationVersion()
	if err != nil {
		return err
	}
	log.Printf("database %s at schema version %d", g.DB, v)
	return nil
}

func buildScenario(city, month, temp, wind string) (seasonal.Scenario, error) {
	sel, err := seasonal.ParseMonthSelector(month)
	if err != nil {
		return seasonal.Scenario{}, err
	}
	obs := models.WeatherObservation{City: city, ObservedAt: time.Now()}
	if temp != "" {
		t, err := strconv.ParseFloat(temp, 64)
		if err != nil {
			return seasonal.Scenario{}, fmt.Errorf("invalid temp %q", temp)
		}
		obs.Temperature = models.Float(t)
	}
	if wind != "" {
		w, err := strconv.ParseFloat(wind, 64)
		if err != nil {
			return seasonal.Scenario{}, fmt.Errorf("invalid wind %q", wind)
		}
		obs.WindSpeed = models.Float(w)
	}
	return seasonal.BuildScenario(obs, sel, time.Now())
}

func optionalFloat(name string, s *string) (*float64, error) {
	if s == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, *s)
	}
	return &f, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
