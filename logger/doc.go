// Package logger provides structured logging for prefkit using zerolog.
//
// Loggers are component scoped and take field maps rather than chained
// events so call sites stay uniform:
//
//	log := logger.Get("registry")
//	log.Info("provider created", logger.Fields(logger.FieldKey, key))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  components:
//	    watcher: "debug"
package logger
