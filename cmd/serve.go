package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	config "time-exchange.com/time-exchange/internal/configs"
	"time-exchange.com/time-exchange/internal/events"
	httpapi "time-exchange.com/time-exchange/internal/http"
	"time-exchange.com/time-exchange/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task exchange HTTP API, the event dispatcher and the settlement reconciler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		publisher, err := newPublisher(cfg)
		if err != nil {
			return err
		}
		dispatcher := services.NewEventDispatcher(publisher, cfg.EventWorkers, cfg.EventQueueSize)

		a := newApp(cfg, dispatcher)
		defer a.close()

		reconciler := a.reconciler(cfg)
		reconciler.Start()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e := echo.New()
		e.HideBanner = true
		httpapi.Register(e, httpapi.NewHandler(a.engine, a.users, a.transfers, a.healthChecks()), cfg.RateLimit)

		go func() {
			log.Printf("HTTP server listening on %s", cfg.AppURL)
			if err := e.Start(cfg.AppURL); err != nil {
				log.Printf("server stopped: %v", err)
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server did not drain in time: %v", err)
		}

		reconciler.Shutdown()
		dispatcher.Shutdown(shutdownCtx)

		log.Println("HTTP server, reconciler and event dispatcher shut down gracefully")
		return nil
	},
}

// newPublisher picks Kafka, then NATS, then the process log.
func newPublisher(cfg config.Config) (events.Publisher, error) {
	switch {
	case len(cfg.KafkaBrokers) > 0:
		log.Printf("publishing task events to kafka topic %s", cfg.KafkaTopic)
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case cfg.NATSURL != "":
		log.Printf("publishing task events to NATS subjects %s.*", cfg.NATSSubject)
		return events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
	default:
		return events.LogPublisher{}, nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
