// Package bootstrap runs the sttd process lifecycle.
//
// It validates the typed configuration, initializes the global logger and
// runs startup, ready and shutdown hooks around either a long-running
// service or a one-shot task:
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStart(srv.Start)
//	app.OnStop(srv.Stop)
//	err = app.Run(ctx)
//
// Run blocks until SIGINT, SIGTERM or context cancellation and then stops
// within the graceful timeout.
package bootstrap
