package config

import (
	"time"

	"github.com/yungbote/unwrapped-proof/internal/pkg/faults"
	"github.com/yungbote/unwrapped-proof/internal/platform/envutil"
	"github.com/yungbote/unwrapped-proof/internal/platform/logger"
)

// Settings is the explicit configuration value for one proof run. Loaded
// once at startup and passed into constructors; nothing reads the
// environment after Load returns.
type Settings struct {
	// Upstream credential and API root.
	SpotifyToken          string
	SpotifyAPIURL         string
	EncryptedRefreshToken string

	// Artifact encryption and destination.
	EncryptionKey string
	FileURL       string
	FileID        int64

	// Run context recorded on the proof.
	JobID        string
	OwnerAddress string
	DLPID        int

	// Scoring and collection knobs.
	MaxPoints     int
	FetchBudget   time.Duration
	FetchMaxPages int
	PageLimit     int
	CursorMaxAge  time.Duration

	// Ledger connection.
	PostgresDSN string

	OutputDir string
}

// Load reads settings from the environment. Missing required values are a
// pre-flight validation failure, before any I/O happens.
func Load(log *logger.Logger) (Settings, error) {
	s := Settings{
		SpotifyToken:          envutil.String("SPOTIFY_TOKEN", ""),
		SpotifyAPIURL:         envutil.String("SPOTIFY_API_URL", "https://api.spotify.com/v1"),
		EncryptedRefreshToken: envutil.String("SPOTIFY_ENCRYPTED_REFRESH_TOKEN", ""),
		EncryptionKey:         envutil.String("ENCRYPTION_KEY", ""),
		FileURL:               envutil.String("FILE_URL", ""),
		FileID:                envutil.Int64("FILE_ID", 0),
		JobID:                 envutil.String("JOB_ID", ""),
		OwnerAddress:          envutil.String("OWNER_ADDRESS", ""),
		DLPID:                 envutil.Int("DLP_ID", 17),
		MaxPoints:             envutil.Int("MAX_POINTS", 1000),
		FetchBudget:           envutil.Seconds("FETCH_BUDGET_SECONDS", 45*time.Second),
		FetchMaxPages:         envutil.Int("FETCH_MAX_PAGES", 5),
		PageLimit:             envutil.Int("FETCH_PAGE_LIMIT", 50),
		CursorMaxAge:          envutil.Seconds("CURSOR_MAX_AGE_SECONDS", 7*24*time.Hour),
		PostgresDSN:           postgresDSN(),
		OutputDir:             envutil.String("OUTPUT_DIR", "/output"),
	}

	if s.SpotifyToken == "" {
		return Settings{}, faults.Newf(faults.KindValidation, "SPOTIFY_TOKEN is required")
	}
	if s.EncryptionKey == "" {
		return Settings{}, faults.Newf(faults.KindValidation, "ENCRYPTION_KEY is required")
	}
	if s.FileURL == "" {
		return Settings{}, faults.Newf(faults.KindValidation, "FILE_URL is required")
	}

	log.Info("configuration loaded",
		"spotify_api_url", s.SpotifyAPIURL,
		"dlp_id", s.DLPID,
		"file_id", s.FileID,
		"file_url", s.FileURL,
		"job_id", s.JobID,
		"max_points", s.MaxPoints,
		"fetch_budget", s.FetchBudget.String(),
		"fetch_max_pages", s.FetchMaxPages,
		"cursor_max_age", s.CursorMaxAge.String(),
		"output_dir", s.OutputDir,
	)
	return s, nil
}

func postgresDSN() string {
	if dsn := envutil.String("POSTGRES_URL", ""); dsn != "" {
		return dsn
	}
	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "unwrapped")
	sslMode := envutil.String("POSTGRES_SSL_MODE", "disable")
	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name + "?sslmode=" + sslMode
}
