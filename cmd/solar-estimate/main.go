package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/b0d/solar-estimate/internal/adapters"
	"github.com/b0d/solar-estimate/internal/config"
	"github.com/b0d/solar-estimate/internal/domain"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config/solar-estimate.yaml", "Path to configuration file")
	chartPath := flag.String("chart", "", "Write a PNG chart of today's estimate to this path")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := adapters.NewSlogLogger(*debug)
	logger.Info("Solar production estimate started", "version", version)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err.Error())
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Configuration loaded successfully",
		"arrays", len(cfg.Plant.Arrays),
		"ac_kwp", cfg.Plant.AcKwp,
		"wind_required", cfg.Plant.TempModel.RequiresWind(),
	)

	weather := adapters.NewOpenMeteoAdapter(adapters.OpenMeteoOptions{
		BaseURL:        cfg.Weather.BaseURL,
		APIKey:         cfg.Weather.APIKey,
		PastDays:       cfg.Weather.PastDays,
		ForecastDays:   cfg.Weather.ForecastDays,
		TimeoutSeconds: cfg.Weather.TimeoutSeconds,
		RetryAttempts:  cfg.Weather.RetryAttempts,
		RetryDelay:     cfg.Weather.RetryDelay(),
	}, logger)

	estimator, err := domain.NewEstimator(cfg.Plant, domain.NewNOAASunProvider(), logger)
	if err != nil {
		logger.Error("Invalid plant configuration", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	bundle, err := estimator.Estimate(ctx, weather)
	if err != nil {
		logger.Error("Estimation failed", "error", err.Error())
		os.Exit(1)
	}

	printSummary(bundle)

	if *chartPath != "" {
		renderer := adapters.NewChartRenderer(logger)
		image, err := renderer.RenderPowerChart(bundle, bundle.Now())
		if err != nil {
			logger.Error("Failed to render chart", "error", err.Error())
			os.Exit(1)
		}
		if err := os.WriteFile(*chartPath, image, 0o644); err != nil {
			logger.Error("Failed to write chart", "path", *chartPath, "error", err.Error())
			os.Exit(1)
		}
		logger.Info("Chart written", "path", *chartPath, "size_kb", len(image)/1024)
	}

	logger.Info("Estimate completed successfully")
}

// printSummary prints the derived production figures for today and tomorrow.
func printSummary(bundle *domain.EstimateBundle) {
	now := bundle.Now()

	fmt.Printf("Estimated power now:            %d W\n", bundle.PowerProductionNow())
	fmt.Printf("Energy this hour:               %d Wh\n", bundle.EnergyCurrentHour())
	fmt.Printf("Energy today:                   %d Wh\n", bundle.EnergyProductionToday())
	fmt.Printf("Energy today remaining:         %d Wh\n", bundle.EnergyProductionTodayRemaining())
	fmt.Printf("Energy tomorrow:                %d Wh\n", bundle.EnergyProductionTomorrow())
	fmt.Printf("Energy next 6 hours:            %d Wh\n", bundle.SumEnergyProduction(6))

	if peak, err := bundle.PeakProductionTime(now); err == nil {
		fmt.Printf("Peak power today:               %d W at %s\n", bundle.PowerAt(peak), peak.Format("15:04"))
	} else if !errors.Is(err, domain.ErrNoPeak) {
		fmt.Printf("Peak power today:               unavailable (%v)\n", err)
	}
}
