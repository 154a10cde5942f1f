package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/co2twin/internal/ingest"
	"github.com/lox/co2twin/internal/intervention"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/redisstore"
	"github.com/lox/co2twin/internal/store"
)

// Globals are shared by every command.
type Globals struct {
	DB          string `help:"Path to SQLite database." default:"data/co2twin.db" env:"CO2TWIN_DB"`
	Store       string `help:"Station repository: memory, sqlite or redis." enum:"memory,sqlite,redis" default:"sqlite" env:"CO2TWIN_STORE"`
	RedisAddr   string `help:"Redis address for --store=redis." default:"localhost:6379" env:"REDIS_ADDR"`
	RedisPrefix string `help:"Key prefix for Redis station records." default:"co2twin" env:"CO2TWIN_REDIS_PREFIX"`
	StationsCSV string `help:"Station CSV used to seed a session." name:"stations-csv" default:"data/stations.csv" env:"CO2TWIN_STATIONS_CSV"`
	Seed        string `help:"Seed for synthetic land-use factors." env:"CO2TWIN_SEED"`
}

type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" help:"Load a session and serve the dashboard API."`
	Suggest  SuggestCmd  `cmd:"" help:"Score a recommended efficiency for a station."`
	Scenario ScenarioCmd `cmd:"" help:"Build a seasonal weather scenario for a city."`
	Apply    ApplyCmd    `cmd:"" help:"Apply an intervention to a station."`
	Migrate  MigrateCmd  `cmd:"" help:"Apply database migrations and exit."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("co2twin"),
		kong.Description("CO2 station estimation and intervention engine."),
		kong.UsageOnError(),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

// repository is what every backend offers.
type repository interface {
	intervention.Repository
	ingest.Seeder
	ListStations(ctx context.Context) ([]models.Station, error)
}

// deps holds opened resources for one command.
type deps struct {
	sqlite *store.Store
	repo   repository
	close  []func() error
}

func (d *deps) Close() {
	for i := len(d.close) - 1; i >= 0; i-- {
		if err := d.close[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
}

func openDeps(ctx context.Context, g *Globals) (*deps, error) {
	d := &deps{}

	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d.close = append(d.close, db.Close)
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	d.sqlite = store.New(db)
	if err := d.sqlite.Migrate(); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	switch g.Store {
	case "memory":
		d.repo = store.NewMemory()
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: g.RedisAddr})
		d.close = append(d.close, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			d.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		d.repo = redisstore.New(rdb, g.RedisPrefix)
	default:
		d.repo = d.sqlite
	}
	return d, nil
}

func loadStations(g *Globals) ([]models.Station, error) {
	f, err := os.Open(g.StationsCSV)
	if err != nil {
		return nil, fmt.Errorf("open stations: %w", err)
	}
	defer f.Close()
	return ingest.LoadStationsCSV(f, g.Seed)
}

// ensureSeeded loads the CSV into an empty repository, without live data.
func ensureSeeded(ctx context.Context, g *Globals, repo repository) error {
	existing, err := repo.ListStations(ctx)
	if err != nil {
		return fmt.Errorf("list stations: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	stations, err := loadStations(g)
	if err != nil {
		return err
	}
	_, err = ingest.LoadSession(ctx, repo, stations, nil)
	return err
}
