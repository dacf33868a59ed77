// Package logging provides structured logging for svcbind.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// persistent context attributes. The coordinator, registry, router and host
// dispatcher each log through a child logger tagged with their component
// name, so a single log file can be filtered per subsystem after the fact.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer safely.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/svcbind", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	coordLogger := logger.WithComponent("binding")
//	coordLogger.Info("slot published", "service_id", "svc-a", "generation", 3)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"slot published","component":"binding","service_id":"svc-a","generation":3}
//
// # Testing
//
// Use [NopLogger] to discard all log output, or [NewWriterLogger] to capture
// entries in a buffer and assert on them.
//
// # Configuration
//
//	logging:
//	  enabled: true
//	  level: info
//	  dir: ""        # empty writes to stderr
package logging
