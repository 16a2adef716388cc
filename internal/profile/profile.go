package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory holding the local fallback document
	Data string
	// Version is the current version of server
	Version string

	// Qdrant configuration (remote vector tier)
	QdrantHost   string // MEMORA_QDRANT_HOST (default: localhost)
	QdrantPort   int    // MEMORA_QDRANT_PORT (default: 6334, gRPC)
	QdrantAPIKey string // MEMORA_QDRANT_API_KEY
	QdrantUseTLS bool   // MEMORA_QDRANT_USE_TLS (default: false)

	// Embedding configuration (injected capability, OpenAI-compatible)
	AIBaseURL        string // MEMORA_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey         string // MEMORA_AI_API_KEY
	AIEmbeddingModel string // MEMORA_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsDemo reports whether the server runs with the deterministic mock
// embedder instead of a live embedding provider.
func (p *Profile) IsDemo() bool {
	return p.Mode == "demo"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from MEMORA_* environment variables.
func (p *Profile) FromEnv() {
	p.QdrantHost = getEnvOrDefault("MEMORA_QDRANT_HOST", "localhost")
	if port, err := strconv.Atoi(getEnvOrDefault("MEMORA_QDRANT_PORT", "6334")); err == nil {
		p.QdrantPort = port
	}
	p.QdrantAPIKey = os.Getenv("MEMORA_QDRANT_API_KEY")
	p.QdrantUseTLS = os.Getenv("MEMORA_QDRANT_USE_TLS") == "true"

	p.AIBaseURL = getEnvOrDefault("MEMORA_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIAPIKey = os.Getenv("MEMORA_AI_API_KEY")
	p.AIEmbeddingModel = getEnvOrDefault("MEMORA_AI_EMBEDDING_MODEL", "text-embedding-3-small")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "memora")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/memora"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data directory", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.QdrantHost == "" {
		p.QdrantHost = "localhost"
	}
	if p.QdrantPort == 0 {
		p.QdrantPort = 6334
	}

	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}
