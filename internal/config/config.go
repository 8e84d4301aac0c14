package config

import "os"

type Config struct {
	Port      string
	APIToken  string
	PublicURL string
	LogLevel  string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.APIToken = os.Getenv("API_TOKEN")
	c.PublicURL = getenv("PUBLIC_URL", "http://localhost:8080")
	c.LogLevel = getenv("LOG_LEVEL", "info")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
