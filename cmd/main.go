package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelier/internal/alerts"
	"hotelier/internal/api"
	"hotelier/internal/changefeed"
	"hotelier/internal/consumption"
	"hotelier/internal/database"
	"hotelier/internal/ledger"
	"hotelier/internal/models"
	"hotelier/internal/monitoring"
	"hotelier/internal/notify"
	"hotelier/internal/supply"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
)

var (
	port        = flag.Int("port", 8080, "API server port")
	metricsPort = flag.Int("metrics-port", 9090, "Metrics server port")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Initialize context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local overrides for secrets and connection strings
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment overrides from .env")
	}

	// Load configuration
	config, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize record store
	store, err := database.Open(config.Database.Dialect, config.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer store.Close()

	// Initialize metrics
	monitor := monitoring.NewMonitor()
	if err := monitor.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Initialize change feed
	bus, err := buildChangeBus(config)
	if err != nil {
		log.Fatalf("Failed to initialize change feed: %v", err)
	}
	defer bus.Close()

	// Initialize stock core
	stockLedger := ledger.New(store, bus, monitor)
	if err := stockLedger.Refresh(ctx); err != nil {
		log.Fatalf("Failed to load inventory snapshot: %v", err)
	}
	defer stockLedger.Close()

	hub := notify.NewHub()
	sink := alerts.MultiSink{notify.NewSink(hub), alerts.LogSink{}}
	alertEngine := alerts.NewEngine(stockLedger, sink, monitor)
	consumptionEngine := consumption.NewEngine(stockLedger, store, monitor)
	supplyHandler := supply.NewHandler(stockLedger, monitor)

	// Evaluate alerts on every ledger change and on an interval
	watchRole := models.Role(config.Alerts.WatchRole)
	if !watchRole.Valid() {
		watchRole = models.RoleStorekeeper
	}
	unsubscribe := bus.Subscribe(func(event changefeed.Event) {
		if event.Collection == changefeed.CollectionInventory {
			alertEngine.CheckAndNotify(watchRole)
		}
	})
	defer unsubscribe()
	go runPeriodicAlertCheck(ctx, alertEngine, watchRole, config.alertInterval())

	// Initialize API server
	server := api.NewServer(stockLedger, consumptionEngine, supplyHandler, alertEngine, hub, config.Auth.JWTSecret)

	// Start metrics server
	if config.Metrics.Enabled {
		go startMetricsServer(*metricsPort, config.Metrics.Path)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: server.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down servers...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}

		cancel() // Cancel main context
	}()

	// Start server
	log.Printf("Starting API server on port %d", *port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file %s not found, using defaults", path)
			return config, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if secret := os.Getenv("HOTELIER_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	return config, nil
}

func buildChangeBus(config *Config) (changefeed.Bus, error) {
	if config.Changefeed.Backend == "amqp" {
		return changefeed.NewAMQPBus(changefeed.AMQPConfig{
			URL:      config.Changefeed.AMQP.URL,
			Exchange: config.Changefeed.AMQP.Exchange,
			Queue:    config.Changefeed.AMQP.Queue,
		})
	}
	return changefeed.NewLocalBus(), nil
}

func runPeriodicAlertCheck(ctx context.Context, engine *alerts.Engine, role models.Role, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			engine.CheckAndNotify(role)
		case <-ctx.Done():
			return
		}
	}
}

func startMetricsServer(port int, path string) {
	metricsRouter := gin.Default()
	metricsRouter.GET(path, gin.WrapH(promhttp.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	log.Printf("Starting metrics server on port %d", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("Metrics server error: %v", err)
	}
}

// Config represents the application configuration
type Config struct {
	Database struct {
		Dialect string `yaml:"dialect"`
		DSN     string `yaml:"dsn"`
	} `yaml:"database"`
	Changefeed struct {
		Backend string `yaml:"backend"`
		AMQP    struct {
			URL      string `yaml:"url"`
			Exchange string `yaml:"exchange"`
			Queue    string `yaml:"queue"`
		} `yaml:"amqp"`
	} `yaml:"changefeed"`
	Alerts struct {
		WatchRole       string `yaml:"watch_role"`
		IntervalSeconds int    `yaml:"interval_seconds"`
	} `yaml:"alerts"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// alertInterval returns the periodic alert evaluation interval
func (c *Config) alertInterval() time.Duration {
	if c.Alerts.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Alerts.IntervalSeconds) * time.Second
}

func defaultConfig() *Config {
	config := &Config{}
	config.Database.Dialect = "sqlite3"
	config.Database.DSN = "hotelier.db"
	config.Changefeed.Backend = "local"
	config.Alerts.WatchRole = string(models.RoleStorekeeper)
	config.Alerts.IntervalSeconds = 60
	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"
	return config
}
