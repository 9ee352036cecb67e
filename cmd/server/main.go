package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"support-assistant/backend/internal/ai"
	"support-assistant/backend/internal/api"
	"support-assistant/backend/internal/search"
	"support-assistant/backend/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Info("no .env file found, using environment variables")
	}

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	aiCfg := ai.Config{
		APIKey:  firstNonEmpty(os.Getenv("GROQ_API_KEY"), os.Getenv("OPENAI_API_KEY")),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
	if temp := os.Getenv("OPENAI_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			aiCfg.Temperature = v
		}
	}
	if maxTokens := os.Getenv("OPENAI_MAX_TOKENS"); maxTokens != "" {
		if v, err := strconv.Atoi(maxTokens); err == nil {
			aiCfg.MaxTokens = v
		}
	}
	if timeout := os.Getenv("OPENAI_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			aiCfg.Timeout = d
		}
	}

	geminiCfg := ai.GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	}

	searchCfg := search.Config{APIKey: os.Getenv("TAVILY_API_KEY")}
	if timeout := os.Getenv("TAVILY_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			searchCfg.Timeout = d
		}
	}
	if ttl := os.Getenv("TAVILY_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			searchCfg.CacheTTL = d
		}
	}

	storageCfg := storage.Config{
		Type:         storage.Type(strings.TrimSpace(os.Getenv("STORAGE_TYPE"))),
		LocalPath:    firstNonEmpty(os.Getenv("STORAGE_LOCAL_PATH"), filepath.Join(dataDir, "uploads")),
		S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
		S3Region:     os.Getenv("AWS_REGION"),
		S3Endpoint:   os.Getenv("AWS_S3_ENDPOINT"),
		AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}

	allowedOrigins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		allowedOrigins = allowedOrigins[:0]
		for _, origin := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	disableAI := strings.EqualFold(strings.TrimSpace(os.Getenv("DISABLE_AI")), "true")

	cfg := api.Config{
		DBPath:         filepath.Join(dataDir, "support.db"),
		PolicyDir:      strings.TrimSpace(os.Getenv("POLICY_DIR")),
		AllowedOrigins: allowedOrigins,
		AIConfig:       aiCfg,
		GeminiConfig:   geminiCfg,
		SearchConfig:   searchCfg,
		StorageConfig:  storageCfg,
		DisableAI:      disableAI,
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
	}

	if override := strings.TrimSpace(os.Getenv("SUPPORT_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2000"
	}

	logrus.Infof("starting support-assistant backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
