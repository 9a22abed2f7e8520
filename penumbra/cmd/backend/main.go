package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"penumbra/penumbra/cmd"
	"penumbra/penumbra/monitoring"
	"penumbra/penumbra/services"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Config struct {
	cmd.Config

	Logfile string `env:"LOGFILE,notEmpty" envDefault:"penumbra_backend.log"`

	Port        int `env:"PORT" envDefault:"8000"`
	MetricsPort int `env:"METRICS_PORT" envDefault:"9090"`
}

func main() {
	cmd.LoadEnvFile()

	var config Config
	if err := env.Parse(&config); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	logFile, err := os.OpenFile(config.Logfile, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	cmd.InitLogging(logFile)

	searcher, closeSearcher := cmd.BuildSearcher(config.Config)
	defer closeSearcher()

	backend := services.NewBackendService(searcher)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},                                       // Allow all origins
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, // Allow all HTTP methods
		AllowedHeaders:   []string{"*"},                                       // Allow all headers
		ExposedHeaders:   []string{"*"},                                       // Expose all headers
		AllowCredentials: true,                                                // Allow cookies/auth headers
		MaxAge:           300,                                                 // Cache preflight response for 5 minutes
	}))

	r.Get("/", services.WrapRestHandler(services.ServiceInfo))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		services.WriteJsonResponse(w, map[string]string{"status": "ok"})
	})

	r.Mount("/api/v1", backend.Routes())

	monitoring.ExposeBackendMetrics(config.MetricsPort)

	slog.Info("starting server", "port", config.Port)
	err = http.ListenAndServe(fmt.Sprintf(":%d", config.Port), r)
	if err != nil {
		log.Fatalf("listen and serve returned error: %v", err.Error())
	}
}
