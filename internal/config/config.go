package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	AssetsCloudinary = "cloudinary"
	AssetsGridFS     = "gridfs"
)

type Config struct {
	Port string

	// Provider
	VerifyToken        string
	AppSecret          string
	WhatsAppToken      string
	PhoneNumberID      string
	DefaultRecipient   string
	GraphAPIBase       string
	GraphAPIVersion    string
	HTTPTimeoutSeconds int

	// Storage
	DBDriver      string
	MongoURI      string
	MongoDatabase string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBPath        string

	// Assets
	AssetBackend        string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	PublicBaseURL       string

	LogLevel  string
	LogFormat string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	port := getEnv("PORT", "8080")
	return &Config{
		Port: port,

		VerifyToken:        getEnv("WEBHOOK_VERIFY_TOKEN", getEnv("VERIFY_TOKEN", "")),
		AppSecret:          getEnv("WHATSAPP_APP_SECRET", ""),
		WhatsAppToken:      getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		PhoneNumberID:      getEnv("WHATSAPP_PHONE_ID", ""),
		DefaultRecipient:   getEnv("WHATSAPP_TO_NUMBER", ""),
		GraphAPIBase:       getEnv("WHATSAPP_API_BASE", "https://graph.facebook.com"),
		GraphAPIVersion:    getEnv("WHATSAPP_API_VERSION", "v22.0"),
		HTTPTimeoutSeconds: getEnvAsInt("WHATSAPP_HTTP_TIMEOUT", 30),

		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "whatsapp-app"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "whatsapp"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		DBPath:        getEnv("DB_PATH", "./whatsapp.db"),

		AssetBackend:        strings.ToLower(getEnv("ASSET_BACKEND", AssetsCloudinary)),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "whatsapp-media"),
		PublicBaseURL:       strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// PostgresDSN builds a key=value connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// Validate reports every problem at once so a misconfigured deploy fails with a full list.
func (c *Config) Validate() error {
	var errs []error
	if c.WhatsAppToken == "" {
		errs = append(errs, errors.New("WHATSAPP_ACCESS_TOKEN is required"))
	}
	if c.PhoneNumberID == "" {
		errs = append(errs, errors.New("WHATSAPP_PHONE_ID is required"))
	}

	switch c.DBDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo driver"))
		}
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}

	switch c.AssetBackend {
	case AssetsCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required"))
		}
	case AssetsGridFS:
		if c.DBDriver != DriverMongo {
			errs = append(errs, errors.New("ASSET_BACKEND=gridfs requires DB_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ASSET_BACKEND %q", c.AssetBackend))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
