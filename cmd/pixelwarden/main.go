// Package main is the entry point for Pixelwarden.
package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"pixelwarden-go/application"
	"pixelwarden-go/application/watch"
	"pixelwarden-go/core/eventbus"
	"pixelwarden-go/domain/detect"
	domainrule "pixelwarden-go/domain/rule"
	"pixelwarden-go/infrastructure/hotkey"
	"pixelwarden-go/infrastructure/logging"
	"pixelwarden-go/infrastructure/ocr"
	"pixelwarden-go/infrastructure/pointer"
	"pixelwarden-go/infrastructure/repository"
	"pixelwarden-go/infrastructure/screen"
	"pixelwarden-go/presentation"
	"pixelwarden-go/resources"

	"fyne.io/fyne/v2/app"
)

func main() {
	// Initialize logging (dev: console only, prod: rotating file)
	logger, closeLog, err := logging.Setup(nil)
	if err != nil {
		// Fallback to stderr if logging setup fails
		os.Stderr.WriteString("Failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()

	logger.Info("Starting Pixelwarden")

	ctx := context.Background()

	// Initialize MongoDB. Persistence is optional: without it, profiles
	// come from the embedded defaults and cannot be saved.
	var profileRepo domainrule.Repository
	mongoDB, err := repository.NewMongoDB(ctx, repository.DefaultMongoDBConfig(), logger)
	if err != nil {
		logger.Warn("MongoDB unavailable, profile persistence disabled", "error", err)
	} else {
		defer mongoDB.Close(ctx)
		profileRepo = repository.NewMongoProfileRepository(mongoDB, logger)
	}

	// Initialize OCR client
	ocrConfig := ocr.DefaultClientConfig()
	ocrClient := ocr.NewHTTPClient(ocrConfig)
	defer ocrClient.Close()

	// Initialize detection engine
	grabber := screen.NewGrabber()
	engine := detect.NewEngine(grabber, ocr.NewReader(ocrClient), detect.DefaultConfig(), logger)

	// Startup diagnostics
	screenW, screenH := grabber.Size()
	logger.Info("Environment",
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"screen_width", screenW,
		"screen_height", screenH,
		"ocr_healthy", ocrClient.IsHealthy(),
		"ocr_url", ocrConfig.BaseURL)

	// Initialize click dispatcher
	dispatcher := pointer.NewRobotDispatcher(pointer.DefaultConfig())

	// Load embedded profiles
	registry := domainrule.NewRegistry()
	loader := domainrule.NewLoader(registry)
	if err := loader.LoadFromFS(resources.ProfileFiles); err != nil {
		logger.Error("Failed to load profiles", "error", err)
		os.Exit(1)
	}
	logger.Info("Profiles loaded", "count", registry.Count())

	// Initialize event bus
	eventBus := eventbus.New(100)
	defer eventBus.Close()

	// Initialize Fyne app. The window is created before the coordinator
	// so the confirmation dialog can be parented on it.
	fyneApp := app.New()
	window := fyneApp.NewWindow("Pixelwarden")

	// One listener owns the global input hook; it serves both the
	// emergency stop key and position picking.
	hotkeyListener := hotkey.NewListener()
	defer hotkeyListener.Stop()

	// Initialize coordinator
	coordinator := application.NewCoordinator(&application.CoordinatorConfig{
		Registry:       registry,
		Repository:     profileRepo,
		Evaluator:      engine,
		Confirmer:      presentation.NewConfirmDialog(window, logger),
		Clicker:        dispatcher,
		ExecutorConfig: watch.DefaultExecutorConfig(),
		PositionPicker: hotkeyListener.PickPosition,
		EventBus:       eventBus,
		Logger:         logger,
	})
	defer coordinator.Stop()

	// Initialize UI event bridge
	bridge := presentation.NewUIEventBridge(&presentation.BridgeConfig{
		Coordinator: coordinator,
		EventBus:    eventBus,
		Logger:      logger,
	})
	defer bridge.Close()

	// Initialize main window
	mainWindow := presentation.NewMainWindow(&presentation.MainWindowConfig{
		App:    fyneApp,
		Window: window,
		Bridge: bridge,
		Logger: logger,
	})
	defer mainWindow.Cleanup()

	// Emergency stop: double-press escape to halt monitoring
	hotkeyListener.StartEmergencyStop(func() {
		logger.Warn("Emergency stop triggered")
		if err := bridge.StopMonitoring(); err != nil {
			logger.Error("Emergency stop failed", "error", err)
		}
	})

	// Show and run
	mainWindow.Show()
	fyneApp.Run()

	// Start shutdown timeout - force exit after 10 seconds if cleanup hangs
	go func() {
		time.Sleep(10 * time.Second)
		logger.Warn("Shutdown timeout, forcing exit")
		os.Exit(0)
	}()

	logger.Info("Application shutdown complete")
}
