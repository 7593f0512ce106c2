// Package config provides type-safe environment variable loading with caching.
// Each configuration type is loaded once and cached for subsequent calls.
//
// The package loads a .env file on first use (github.com/joho/godotenv) and parses
// environment variables into struct fields with github.com/caarlos0/env.
//
//	type Config struct {
//		Addr        string        `env:"HTTP_ADDR" envDefault:":8080"`
//		BodyLimit   int64         `env:"BODY_LIMIT" envDefault:"1048576"`
//		ReqTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"0s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Different types are cached independently; a second Load of the same type returns
// the cached value without re-reading the environment.
package config
