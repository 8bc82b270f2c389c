// Command rustletdemo is a minimal embedding example: a handful of
// handlers exercising the hello, session, template, and async scenarios
// the container supports. It is not a CLI framework — argument parsing,
// logging setup, and a load-test client are left to a real embedder to
// write inline rather than reproduced here.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rustlet "github.com/go-rustlet/rustlet"
	"github.com/go-rustlet/rustlet/config"
	"github.com/go-rustlet/rustlet/core/handler"
	"github.com/go-rustlet/rustlet/core/session"
	"github.com/go-rustlet/rustlet/core/template"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var cfg config.Config
	config.MustLoad(&cfg)

	files, err := newFileSource(context.Background(), cfg)
	if err != nil {
		logger.Error("rustletdemo: build document root", "error", err)
		os.Exit(1)
	}

	container := rustlet.New(files, rustlet.WithLogger(logger))

	mustRegister(container, "hello", helloHandler)
	mustRegister(container, "set", sessionSetHandler)
	mustRegister(container, "get", sessionGetHandler)
	mustRegister(container, "async", asyncHandler)
	mustRegister(container, "greeting", greetingHandler)

	must(container.AddRoute("/", "hello"))
	must(container.AddRoute("/set", "set"))
	must(container.AddRoute("/get", "get"))
	must(container.AddRoute("/async", "async"))

	must(container.Configure(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := container.Start(ctx); err != nil {
		logger.Error("rustletdemo: server exited", "error", err)
		os.Exit(1)
	}
}

// newFileSource picks the document root the template interpreter reads
// from: an S3 bucket when one is configured, the local DocumentRoot
// directory otherwise.
func newFileSource(ctx context.Context, cfg config.Config) (template.FileSource, error) {
	if cfg.S3.Bucket == "" {
		return template.LocalFileSource{Root: cfg.DocumentRoot}, nil
	}

	client, err := template.NewS3Client(ctx, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		return nil, err
	}
	return template.NewS3FileSource(client, cfg.S3.Bucket, cfg.DocumentRoot), nil
}

func helloHandler(ctx *handler.Ctx) error {
	_, err := ctx.Respond([]byte("Hello"))
	return err
}

// greetingHandler is the handler a "<@=greeting>" escape in a template
// page resolves to.
func greetingHandler(ctx *handler.Ctx) error {
	name, _ := ctx.QueryValue("name")
	if name == "" {
		name = "world"
	}
	_, err := ctx.Respondf("Hello, %s!", name)
	return err
}

const sessionCounterKey = "counter"

func sessionSetHandler(ctx *handler.Ctx) error {
	ctx.SessionSet(sessionCounterKey, session.EncodeUint32(42))
	_, err := ctx.Respond([]byte("set"))
	return err
}

func sessionGetHandler(ctx *handler.Ctx) error {
	raw, ok := ctx.SessionGet(sessionCounterKey)
	if !ok {
		_, err := ctx.Respond([]byte("no value"))
		return err
	}

	v, err := session.DecodeUint32(raw)
	if err != nil {
		return fmt.Errorf("rustletdemo: decode counter: %w", err)
	}

	_, err = ctx.Respondf("%d", v)
	return err
}

// asyncHandler demonstrates the async-completion protocol: it writes and
// flushes an immediate byte, captures the async context, and finishes the
// response from another goroutine after a short delay.
func asyncHandler(ctx *handler.Ctx) error {
	if _, err := ctx.Respond([]byte("first\n")); err != nil {
		return err
	}
	if err := ctx.Flush(); err != nil {
		return err
	}

	async := ctx.AsyncContext()
	go func() {
		time.Sleep(100 * time.Millisecond)
		continued := async.Bind()
		continued.Respond([]byte("second\n"))
		async.Complete()
	}()

	return nil
}

func mustRegister(c *rustlet.Container, name string, fn handler.Func) {
	must(c.AddHandler(name, fn))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
