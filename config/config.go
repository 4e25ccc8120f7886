package config

import "os"

type Config struct {
	Port      string
	JWTSecret []byte
}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: []byte(getEnv("JWT_SECRET", "dev-secret-change-in-production")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
