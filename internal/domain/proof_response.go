package domain

// ProofResponse is the run's result document. Only Score and Metadata go
// onchain; everything else is offchain reporting.
type ProofResponse struct {
	DLPID        int             `json:"dlp_id"`
	Valid        bool            `json:"valid"`
	Score        float64         `json:"score"`
	Authenticity float64         `json:"authenticity"`
	Ownership    float64         `json:"ownership"`
	Quality      float64         `json:"quality"`
	Uniqueness   float64         `json:"uniqueness"`
	Attributes   ProofAttributes `json:"attributes"`
	Metadata     ProofMetadata   `json:"metadata"`
}

// ProofAttributes carries offchain context about the contribution.
type ProofAttributes struct {
	AccountIDHash         string          `json:"account_id_hash"`
	TrackCount            int             `json:"track_count"`
	TotalMinutes          int64           `json:"total_minutes"`
	DataValidated         bool            `json:"data_validated"`
	ActivityPeriodDays    int             `json:"activity_period_days"`
	UniqueArtists         int             `json:"unique_artists"`
	PreviouslyContributed bool            `json:"previously_contributed"`
	PreviouslyRewarded    bool            `json:"previously_rewarded"`
	TimesRewarded         int             `json:"times_rewarded"`
	TotalPoints           int             `json:"total_points"`
	DifferentialPoints    int             `json:"differential_points"`
	PointsBreakdown       PointsBreakdown `json:"points_breakdown"`
}

// PointsBreakdown is the scored decomposition of one run's full data view.
// All values are non-negative and Total is the sum of the three categories.
type PointsBreakdown struct {
	VolumePoints    int    `json:"volume_points"`
	VolumeReason    string `json:"volume_reason"`
	DiversityPoints int    `json:"diversity_points"`
	DiversityReason string `json:"diversity_reason"`
	HistoryPoints   int    `json:"history_points"`
	HistoryReason   string `json:"history_reason"`
	TotalPoints     int    `json:"total_points"`
}

type ProofMetadata struct {
	DLPID        int      `json:"dlp_id"`
	Version      string   `json:"version"`
	FileID       int64    `json:"file_id"`
	JobID        string   `json:"job_id"`
	OwnerAddress string   `json:"owner_address"`
	File         FileInfo `json:"file"`
}

type FileInfo struct {
	ID        int64         `json:"id"`
	Source    string        `json:"source"`
	URL       string        `json:"url"`
	Checksums FileChecksums `json:"checksums"`
}

type FileChecksums struct {
	Encrypted string `json:"encrypted"`
	Decrypted string `json:"decrypted"`
}
