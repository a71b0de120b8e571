// Package bootstrap assembles a prefkit process from Settings: the workspace
// root source, the file watcher, the provider registry and manager, the
// event bus and, when serving, the SSE hub and HTTP server.
//
//	settings, err := config.LoadSettings()
//	app, err := bootstrap.New(settings)
//	app.EnableServer()
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Components start in dependency order and stop in reverse. Run blocks until
// SIGINT/SIGTERM; RunTask runs a finite task for CLI commands.
package bootstrap
