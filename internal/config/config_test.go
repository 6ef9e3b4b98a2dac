package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "WEBHOOK_VERIFY_TOKEN", "VERIFY_TOKEN", "WHATSAPP_APP_SECRET", "WHATSAPP_ACCESS_TOKEN",
	"WHATSAPP_PHONE_ID", "WHATSAPP_TO_NUMBER", "WHATSAPP_API_BASE", "WHATSAPP_API_VERSION",
	"WHATSAPP_HTTP_TIMEOUT", "DB_DRIVER", "MONGODB_URI", "MONGODB_DATABASE", "ASSET_BACKEND",
	"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET", "CLOUDINARY_FOLDER",
	"PUBLIC_BASE_URL", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, v) })
		}
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg := LoadConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://graph.facebook.com", cfg.GraphAPIBase)
	assert.Equal(t, "v22.0", cfg.GraphAPIVersion)
	assert.Equal(t, 30, cfg.HTTPTimeoutSeconds)
	assert.Equal(t, DriverMongo, cfg.DBDriver)
	assert.Equal(t, "whatsapp-app", cfg.MongoDatabase)
	assert.Equal(t, AssetsCloudinary, cfg.AssetBackend)
	assert.Equal(t, "whatsapp-media", cfg.CloudinaryFolder)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	t.Setenv("PORT", "9000")
	t.Setenv("VERIFY_TOKEN", "legacy")
	t.Setenv("WHATSAPP_HTTP_TIMEOUT", "5")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("PUBLIC_BASE_URL", "https://console.example.com/")

	cfg := LoadConfig()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "legacy", cfg.VerifyToken)
	assert.Equal(t, 5, cfg.HTTPTimeoutSeconds)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "https://console.example.com", cfg.PublicBaseURL)

	t.Setenv("WEBHOOK_VERIFY_TOKEN", "primary")
	assert.Equal(t, "primary", LoadConfig().VerifyToken)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("WHATSAPP_PHONE_ID=1234\nLOG_FORMAT=json\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("WHATSAPP_PHONE_ID")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg := LoadConfig()
	assert.Equal(t, "1234", cfg.PhoneNumberID)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "wa", DBPort: "5433", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=wa port=5433 sslmode=disable", cfg.PostgresDSN())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			WhatsAppToken:       "token",
			PhoneNumberID:       "1234",
			DBDriver:            DriverMongo,
			MongoURI:            "mongodb://localhost:27017",
			AssetBackend:        AssetsCloudinary,
			CloudinaryCloudName: "demo",
			CloudinaryAPIKey:    "key",
			CloudinaryAPISecret: "secret",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.WhatsAppToken = "" }, "WHATSAPP_ACCESS_TOKEN"},
		{"unknown driver", func(c *Config) { c.DBDriver = "redis" }, "unknown DB_DRIVER"},
		{"missing cloudinary creds", func(c *Config) { c.CloudinaryAPISecret = "" }, "CLOUDINARY"},
		{"gridfs on sqlite", func(c *Config) {
			c.DBDriver = DriverSQLite
			c.AssetBackend = AssetsGridFS
		}, "requires DB_DRIVER=mongo"},
		{"unknown backend", func(c *Config) { c.AssetBackend = "s3" }, "unknown ASSET_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 10))

	t.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 10, getEnvAsInt("TEST_INT", 10))

	assert.Equal(t, 100, getEnvAsInt("NON_EXISTENT_INT", 100))
}
