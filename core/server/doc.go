// Package server wraps net/http.Server with graceful shutdown and
// environment-driven configuration. It plays the role of the "event
// runtime" in the container: it owns the listener and the worker pool
// net/http itself schedules requests on, and hands every parsed
// request to whatever http.Handler the container installs (the
// dispatcher). TLS certificate material — static files or an
// ACME-provisioned pair via pkg/certprovision — is the server's
// concern, not the dispatcher's.
//
// Basic usage:
//
//	srv := server.New(":8080", server.WithShutdownTimeout(10*time.Second))
//	if err := srv.Start(ctx, dispatcher); err != nil {
//		log.Fatal(err)
//	}
//
// Or from environment variables:
//
//	cfg := server.DefaultConfig()
//	if err := env.Parse(&cfg); err != nil { ... }
//	srv, err := server.NewFromConfig(cfg)
package server
