// Package telemetry provides observability for Veil.
//
// # Components
//
//   - logging: structured logging via log/slog
//   - metrics: Prometheus metrics collection
//
// # Usage
//
//	// Install the process logger
//	logger, err := logging.Setup(&cfg.Telemetry.Logging, nil)
//
//	// Create the metrics collector
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	go collector.Serve()
//
// Log output and metric labels never contain raw tag values or protected
// health information.
package telemetry
