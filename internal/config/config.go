package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Addr       string
	MongoURL   string
	Database   string
	AdminKey   string
	CORSOrigin string
	// Meilisearch - empty URL disables search indexing, Mongo fallback serves queries
	MeiliURL       string
	MeiliMasterKey string
	// Redis - empty disables the room membership cache
	RedisURL string
	// MinIO - empty endpoint selects the GridFS blob backend
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:           getenv("API_ADDR", ":8780"),
		MongoURL:       getenv("MONGO_URL", ""),
		Database:       getenv("FRAMEBOARD_DB", "frameboard"),
		AdminKey:       getenv("FRAMEBOARD_ADMIN_KEY", ""),
		CORSOrigin:     getenv("FRAMEBOARD_CORS_ORIGIN", "*"),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		RedisURL:       getenv("REDIS_URL", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "frameboard"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
	}
}

// Validate enforces the settings the process cannot start without.
func (c Config) Validate() error {
	if c.MongoURL == "" {
		return errors.New("MONGO_URL is required")
	}
	if c.AdminKey == "" {
		return errors.New("FRAMEBOARD_ADMIN_KEY is required")
	}
	return nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
