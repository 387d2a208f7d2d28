package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"

	"telecast/api"
	"telecast/config"
	"telecast/handlers"
	"telecast/internal/database"
	"telecast/internal/events"
	"telecast/internal/xtream"
	"telecast/services/catalog"
	"telecast/services/epg"
	"telecast/services/favorites"
	"telecast/services/scheduler"
	"telecast/services/selection"
	"telecast/services/sources"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🚀 telecast backend starting...")

	configPath := os.Getenv("TELECAST_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	db, err := database.Open(settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	store := database.NewStore(db)
	bus := events.NewBus()
	fetcher := xtream.NewFetcher(nil)

	sourcesService := sources.NewService(store)
	catalogService := catalog.NewService(sourcesService, fetcher, store, bus)
	epgService := epg.NewService(cfgManager, fetcher, catalogService, sourcesService, bus)
	selectionController := selection.NewController(catalogService, bus, settings.UI.ChannelSwitchWraparound)
	favoritesService := favorites.NewService(store, catalogService)

	schedulerService := scheduler.NewService(cfgManager, catalogService, catalogService, epgService)
	schedulerService.Start(context.Background())

	sourcesHandler := handlers.NewSourcesHandler(sourcesService)
	channelsHandler := handlers.NewChannelsHandler(catalogService)
	epgHandler := handlers.NewEPGHandler(epgService, catalogService, settings.Live.EPG.DisplayBatchSize)
	selectionHandler := handlers.NewSelectionHandler(selectionController)
	favoritesHandler := handlers.NewFavoritesHandler(favoritesService)

	r := mux.NewRouter()
	api.Register(r, sourcesHandler, channelsHandler, epgHandler, selectionHandler, favoritesHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	schedulerService.Stop(shutdownCtx)
	epgService.WaitDisplayRefresh()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
