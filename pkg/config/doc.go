// Package config loads typed configuration structs from environment
// variables using github.com/caarlos0/env struct tags, with optional .env
// file support via github.com/joho/godotenv for local development.
//
// Example:
//
//	type ServerConfig struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	config.MustLoad(&cfg)
package config
