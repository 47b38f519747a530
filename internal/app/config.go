package app

import (
	"os"
	"strconv"
	"strings"
)

// SeekRecovery holds the tunables of the seek failure classifier. The
// thresholds are heuristics against real-world container behaviour, so they
// are configuration rather than constants.
type SeekRecovery struct {
	SmallTargetMs    int64 // targets at or below this always land successfully
	FailedLandingMs  int64 // landings below this, on a large target, count as snap-to-zero
	MaxRetries       int
	ScrubMinGapMs    int64 // minimum spacing between scrub seeks after failover
	ScrubMinDeltaMs  int64 // scrub seeks closer than this to the last target are dropped
	SuppressWindowMs int64 // window after a large seek during which near-zero positions are hidden
}

type Config struct {
	HTTPAddr           string
	MongoURI           string
	MongoDatabase      string
	StoreMode          string // "mongo" or "memory"
	LogLevel           string
	LogFormat          string
	MediaRoots         []string
	FFProbePath        string
	MPVPath            string
	MPVSocketDir       string
	Seek               SeekRecovery
	PositionSaveSec    int64 // interval for periodic resume persistence; 0 = disabled
	CORSAllowedOrigins []string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "mediaplayer"),
		StoreMode:     strings.ToLower(getEnv("STORE_MODE", "mongo")),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),
		MediaRoots:    splitList(getEnv("MEDIA_ROOTS", "media")),
		FFProbePath:   getEnv("FFPROBE_PATH", "ffprobe"),
		MPVPath:       getEnv("MPV_PATH", "mpv"),
		MPVSocketDir:  getEnv("MPV_SOCKET_DIR", os.TempDir()),
		Seek: SeekRecovery{
			SmallTargetMs:    getEnvInt64("SEEK_SMALL_TARGET_MS", 3000),
			FailedLandingMs:  getEnvInt64("SEEK_FAILED_LANDING_MS", 1000),
			MaxRetries:       int(getEnvInt64("SEEK_MAX_RETRIES", 2)),
			ScrubMinGapMs:    getEnvInt64("SCRUB_MIN_INTERVAL_MS", 120),
			ScrubMinDeltaMs:  getEnvInt64("SCRUB_MIN_DELTA_MS", 500),
			SuppressWindowMs: getEnvInt64("SEEK_SUPPRESS_WINDOW_MS", 3000),
		},
		PositionSaveSec:    getEnvInt64("POSITION_SAVE_INTERVAL_S", 10),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ":")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
