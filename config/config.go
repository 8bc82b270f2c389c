// Package config provides environment-variable driven configuration
// loading: a thin wrapper over github.com/caarlos0/env that first loads an
// optional .env file via github.com/joho/godotenv. Every config struct in
// this module (Config here, server.Config, session.Config) follows the
// same env:"..." envDefault:"..." tag convention and goes through
// Load/MustLoad.
package config

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/go-rustlet/rustlet/core/server"
	"github.com/go-rustlet/rustlet/core/session"
)

var dotenvOnce sync.Once

// Config is the container's configuration: the session timeout the
// Session Store uses, the document root the template-page interpreter
// reads files from, the extension that routes a URI to the interpreter,
// and the embedded HTTP-layer configuration forwarded to the server
// unexamined (bind address, timeouts, TLS material).
type Config struct {
	Server  server.Config  `envPrefix:""`
	Session session.Config `envPrefix:""`

	// DocumentRoot is the local directory (or S3 prefix, when the
	// container is wired with an S3FileSource) template pages are read
	// from.
	DocumentRoot string `env:"RUSTLET_DOCUMENT_ROOT" envDefault:"./public"`

	// TemplateExtension is the case-insensitive URI suffix that routes a
	// request to the template-page interpreter.
	TemplateExtension string `env:"RUSTLET_TEMPLATE_EXTENSION" envDefault:".rsp"`

	// ACME holds optional Let's Encrypt certificate provisioning settings.
	// When ACME.Domain is empty, provisioning is skipped and Server.TLSCertFile
	// / Server.TLSKeyFile (if set) are used as-is.
	ACME ACMEConfig `envPrefix:"RUSTLET_ACME_"`

	// S3 configures an object-storage document root. When S3.Bucket is
	// set, the embedding program should construct the container with an
	// S3FileSource (see template.NewS3Client) instead of a local
	// directory; DocumentRoot then acts as the key prefix.
	S3 S3Config `envPrefix:"RUSTLET_S3_"`
}

// S3Config configures the optional S3-backed template-page document root.
type S3Config struct {
	Bucket    string `env:"BUCKET" envDefault:""`
	Region    string `env:"REGION" envDefault:""`
	AccessKey string `env:"ACCESS_KEY" envDefault:""`
	SecretKey string `env:"SECRET_KEY" envDefault:""`
}

// ACMEConfig configures the optional ACME/Let's Encrypt certificate
// provisioning step run before the server starts. See
// github.com/go-rustlet/rustlet/pkg/certprovision.
type ACMEConfig struct {
	Domain    string `env:"DOMAIN" envDefault:""`
	Email     string `env:"EMAIL" envDefault:""`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"./certs"`
}

// DefaultConfig returns the container's documented defaults.
func DefaultConfig() Config {
	return Config{
		Server:            server.DefaultConfig(),
		Session:           session.DefaultConfig(),
		DocumentRoot:      "./public",
		TemplateExtension: ".rsp",
		ACME:              ACMEConfig{OutputDir: "./certs"},
	}
}

// Load loads an optional .env file (once per process) and parses the
// environment into dst using its env struct tags.
func Load[T any](dst *T) error {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	if err := env.Parse(dst); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	return nil
}

// MustLoad is Load, panicking on error. Intended for program startup,
// where a misconfigured environment should fail fast.
func MustLoad[T any](dst *T) {
	if err := Load(dst); err != nil {
		panic(err)
	}
}
