package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mlukyanov/skyfare/config"
	"github.com/mlukyanov/skyfare/internal/bootstrap"
	"github.com/mlukyanov/skyfare/internal/cache"
	"github.com/mlukyanov/skyfare/internal/kafka"
	"github.com/mlukyanov/skyfare/internal/pricing"
	"github.com/mlukyanov/skyfare/internal/repository"
	"github.com/mlukyanov/skyfare/internal/service/booking"
	"github.com/mlukyanov/skyfare/internal/service/flights"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	fareRepo := repository.NewFareHistoryRepository(pool)

	calc := pricing.NewCalculator(cfg.Pricing)
	demand := pricing.NewRandDemand(rand.New(rand.NewSource(time.Now().UnixNano())), cfg.Simulator)

	flightService := flights.NewFlightService(flightRepo, fareRepo, redisCache, calc, demand)
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		fareRepo,
		redisCache,
		producer,
		calc,
		demand,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithSeatLockTTL(time.Duration(cfg.Booking.SeatLockTTLMinutes)*time.Minute),
	)

	if err := bootstrap.Run(ctx, cfg, flightService, bookingService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
