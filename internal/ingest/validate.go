package ingest

import (
	"github.com/lox/co2twin/internal/models"
)

const (
	FlagTempOutOfRange    = "temp_out_of_range"
	FlagWindDirInvalid    = "wind_dir_invalid"
	FlagWindSpeedNegative = "wind_speed_negative"
	FlagWindSpeedUnlikely = "wind_speed_unlikely"
)

func ValidateWeather(obs *models.WeatherObservation) []string {
	var flags []string

	if obs.Temperature.Valid {
		if obs.Temperature.Float64 < -30 || obs.Temperature.Float64 > 55 {
			flags = append(flags, FlagTempOutOfRange)
		}
	}

	if obs.WindDirection.Valid {
		if obs.WindDirection.Int64 < 0 || obs.WindDirection.Int64 > 360 {
			flags = append(flags, FlagWindDirInvalid)
		}
	}

	if obs.WindSpeed.Valid {
		switch {
		case obs.WindSpeed.Float64 < 0:
			flags = append(flags, FlagWindSpeedNegative)
		case obs.WindSpeed.Float64 > 200:
			flags = append(flags, FlagWindSpeedUnlikely)
		}
	}

	return flags
}

// Sanitize clears fields that failed validation so downstream scenario
// building sees them as missing.
func Sanitize(obs models.WeatherObservation, flags []string) models.WeatherObservation {
	for _, f := range flags {
		switch f {
		case FlagTempOutOfRange:
			obs.Temperature.Valid = false
		case FlagWindDirInvalid:
			obs.WindDirection.Valid = false
		case FlagWindSpeedNegative, FlagWindSpeedUnlikely:
			obs.WindSpeed.Valid = false
		}
	}
	return obs
}
