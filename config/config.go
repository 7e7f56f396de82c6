package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Booking   BookingConfig   `yaml:"booking"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers                  []string `yaml:"brokers"`
	BookingTopic             string   `yaml:"booking_topic"`
	FareTopic                string   `yaml:"fare_topic"`
	NotificationsTopic       string   `yaml:"notifications_topic"`
	GroupID                  string   `yaml:"group_id"`
	HeartbeatIntervalSeconds int      `yaml:"heartbeat_interval_seconds"`
	SessionTimeoutSeconds    int      `yaml:"session_timeout_seconds"`
}

type BookingConfig struct {
	HoldTTLMinutes     int `yaml:"hold_ttl_minutes"`
	FlightsCacheTTL    int `yaml:"flights_cache_ttl_seconds"`
	SeatLockTTLMinutes int `yaml:"seat_lock_ttl_minutes"`
	ExpirySweepMinutes int `yaml:"expiry_sweep_minutes"`
}

// PricingConfig holds the fare formula coefficients. Zero values are
// replaced with defaults by Normalize, so a config file may set only
// the knobs it cares about.
type PricingConfig struct {
	LowTierCents    int64   `yaml:"low_tier_cents"`
	HighTierCents   int64   `yaml:"high_tier_cents"`
	MediumTierBonus float64 `yaml:"medium_tier_bonus"`
	HighTierBonus   float64 `yaml:"high_tier_bonus"`
	FloorCents      int64   `yaml:"floor_cents"`
	CeilingMultiple float64 `yaml:"ceiling_multiple"`
	HorizonHours    float64 `yaml:"horizon_hours"`
}

type SimulatorConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	MinSeatDelta    int     `yaml:"min_seat_delta"`
	MaxSeatDelta    int     `yaml:"max_seat_delta"`
	MinDemand       float64 `yaml:"min_demand"`
	MaxDemand       float64 `yaml:"max_demand"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Normalize()
	return &cfg, nil
}

// Normalize fills in defaults for unset fields.
func (c *Config) Normalize() {
	if c.Booking.HoldTTLMinutes == 0 {
		c.Booking.HoldTTLMinutes = 15
	}
	if c.Booking.SeatLockTTLMinutes == 0 {
		c.Booking.SeatLockTTLMinutes = c.Booking.HoldTTLMinutes
	}
	if c.Booking.ExpirySweepMinutes == 0 {
		c.Booking.ExpirySweepMinutes = 1
	}
	if c.Pricing.LowTierCents == 0 {
		c.Pricing.LowTierCents = 200000
	}
	if c.Pricing.HighTierCents == 0 {
		c.Pricing.HighTierCents = 500000
	}
	if c.Pricing.MediumTierBonus == 0 {
		c.Pricing.MediumTierBonus = 0.05
	}
	if c.Pricing.HighTierBonus == 0 {
		c.Pricing.HighTierBonus = 0.10
	}
	if c.Pricing.FloorCents == 0 {
		c.Pricing.FloorCents = 5000
	}
	if c.Pricing.CeilingMultiple == 0 {
		c.Pricing.CeilingMultiple = 3.0
	}
	if c.Pricing.HorizonHours == 0 {
		c.Pricing.HorizonHours = 168
	}
	if c.Simulator.IntervalSeconds == 0 {
		c.Simulator.IntervalSeconds = 60
	}
	if c.Simulator.MinSeatDelta == 0 && c.Simulator.MaxSeatDelta == 0 {
		c.Simulator.MinSeatDelta = -3
		c.Simulator.MaxSeatDelta = 2
	}
	if c.Simulator.MinDemand == 0 && c.Simulator.MaxDemand == 0 {
		c.Simulator.MinDemand = -0.5
		c.Simulator.MaxDemand = 1.0
	}
}
