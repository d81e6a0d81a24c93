package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChartCore/internal/app"
	"ChartCore/internal/di"
	"ChartCore/internal/domain/models"
	"ChartCore/pkg/config"
	"ChartCore/pkg/util"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "config file path (defaults only when empty)")
	date := flag.String("date", "", "chart instant: RFC3339, 'YYYY-MM-DD HH:MM' (UTC) or unix seconds")
	lat := flag.Float64("lat", 0, "latitude in degrees, north positive")
	lon := flag.Float64("lon", 0, "longitude in degrees, east positive")
	hsys := flag.String("hsys", "", "house system code (P K O R C E W B M)")
	compare := flag.String("compare", "", "second chart instant for a synastry comparison at the same place")
	transitFrom := flag.String("transit-from", "", "start of a transit scan")
	transitTo := flag.String("transit-to", "", "end of a transit scan")
	transitStep := flag.Duration("transit-step", 24*time.Hour, "transit scan step")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	cmd, err := buildCommand(*date, *lat, *lon, *hsys, *compare, *transitFrom, *transitTo, *transitStep)
	if err != nil {
		log.Fatalf("invalid arguments: %v", err)
	}

	// Wire DI: Initialize all dependencies
	a, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = a.Run(ctx, cmd, os.Stdout)
	stop()
	a.Shutdown()
	cleanup()

	if err != nil {
		log.Printf("run error: %v", err)
		os.Exit(1)
	}
}

func buildCommand(date string, lat, lon float64, hsys, compare, from, to string, step time.Duration) (app.Command, error) {
	instant, ok := util.ParseTime(date)
	if !ok {
		return app.Command{}, errBadTime("date", date)
	}
	cmd := app.Command{Chart: models.ChartRequest{
		Instant:     instant,
		Latitude:    lat,
		Longitude:   lon,
		HouseSystem: hsys,
	}}

	if compare != "" && (from != "" || to != "") {
		return app.Command{}, errors.New("-compare cannot be combined with -transit-from/-transit-to")
	}

	if compare != "" {
		other, ok := util.ParseTime(compare)
		if !ok {
			return app.Command{}, errBadTime("compare", compare)
		}
		req := cmd.Chart
		req.Instant = other
		cmd.Compare = &req
	}

	if from != "" || to != "" {
		start, ok := util.ParseTime(from)
		if !ok {
			return app.Command{}, errBadTime("transit-from", from)
		}
		end, ok := util.ParseTime(to)
		if !ok {
			return app.Command{}, errBadTime("transit-to", to)
		}
		steps, err := util.Steps(start, end, step)
		if err != nil {
			return app.Command{}, err
		}
		cmd.Transits = steps
	}
	return cmd, nil
}

func errBadTime(flag, value string) error {
	return fmt.Errorf("-%s: cannot parse time %q", flag, value)
}
