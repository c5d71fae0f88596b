package cmd

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"lastmile/internal/core/domain/services"
	"lastmile/internal/jobs"
	"lastmile/internal/pkg/errs"
)

type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	KafkaBrokers             []string
	KafkaDeliveryStatusTopic string

	RedisAddr     string
	RouteCacheTTL time.Duration

	AverageSpeedKmh       float64
	DefaultServiceMinutes float64
	MaxRouteStops         int
	MaxDeliveryAttempts   int
	RouteRefreshSchedule  string
}

// LoadConfig reads the configuration through lookup (usually os.Getenv).
// Unset tuning values fall back to the service defaults.
func LoadConfig(lookup func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:                 withDefault(lookup("HTTP_PORT"), "8080"),
		DBHost:                   lookup("DB_HOST"),
		DBPort:                   withDefault(lookup("DB_PORT"), "5432"),
		DBUser:                   lookup("DB_USER"),
		DBPassword:               lookup("DB_PASSWORD"),
		DBName:                   lookup("DB_NAME"),
		DBSslMode:                withDefault(lookup("DB_SSLMODE"), "disable"),
		KafkaBrokers:             splitList(lookup("KAFKA_BROKERS")),
		KafkaDeliveryStatusTopic: withDefault(lookup("KAFKA_DELIVERY_STATUS_TOPIC"), "delivery.status.changed"),
		RedisAddr:                lookup("REDIS_ADDR"),
		RouteRefreshSchedule:     withDefault(lookup("ROUTE_REFRESH_SCHEDULE"), jobs.DefaultRouteRefreshSchedule),
	}

	var err error
	errList := make([]error, 0)
	if cfg.RouteCacheTTL, err = parseDuration("ROUTE_CACHE_TTL", lookup("ROUTE_CACHE_TTL"), 5*time.Minute); err != nil {
		errList = append(errList, err)
	}
	if cfg.AverageSpeedKmh, err = parseFloat("AVERAGE_SPEED_KMH", lookup("AVERAGE_SPEED_KMH"), services.DefaultAverageSpeedKmh); err != nil {
		errList = append(errList, err)
	}
	if cfg.DefaultServiceMinutes, err = parseMinutes("DEFAULT_SERVICE_MINUTES", lookup("DEFAULT_SERVICE_MINUTES"), 5); err != nil {
		errList = append(errList, err)
	}
	if cfg.MaxRouteStops, err = parseInt("MAX_ROUTE_STOPS", lookup("MAX_ROUTE_STOPS"), 25); err != nil {
		errList = append(errList, err)
	}
	if cfg.MaxDeliveryAttempts, err = parseInt("MAX_DELIVERY_ATTEMPTS", lookup("MAX_DELIVERY_ATTEMPTS"), services.DefaultMaxDeliveryAttempts); err != nil {
		errList = append(errList, err)
	}
	if cfg.DBHost == "" {
		errList = append(errList, errs.NewValueIsRequiredError("DB_HOST"))
	}

	return cfg, errors.Join(errList...)
}

// DSN is the PostgreSQL connection string for gorm.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(name, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, errs.NewValueIsInvalidErrorWithCause(name, err)
	}
	return d, nil
}

func parseFloat(name, v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, errs.NewValueIsInvalidErrorWithCause(name, err)
	}
	if f <= 0 {
		return def, errs.NewValueIsOutOfRangeError(name, f, "> 0", "+Inf")
	}
	return f, nil
}

// parseMinutes accepts zero, unlike parseFloat.
func parseMinutes(name, v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, errs.NewValueIsInvalidErrorWithCause(name, err)
	}
	if !(f >= 0) || math.IsInf(f, 1) {
		return def, errs.NewValueIsOutOfRangeError(name, f, 0, "+Inf")
	}
	return f, nil
}

func parseInt(name, v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, errs.NewValueIsInvalidErrorWithCause(name, err)
	}
	return n, nil
}
