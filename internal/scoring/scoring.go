package scoring

import (
	"github.com/yungbote/unwrapped-proof/internal/domain"
)

// CalculateScore converts run statistics into a points breakdown. Pure and
// deterministic: tier tables only, no interpolation, thresholds are inclusive
// lower bounds evaluated from highest to lowest.
func CalculateScore(stats domain.ListeningStats) domain.PointsBreakdown {
	volume, volumeReason := VolumePoints(stats.TotalMinutes)
	diversity, diversityReason := DiversityPoints(len(stats.UniqueArtists))
	history, historyReason := HistoryPoints(stats.ActivityPeriodDays)
	return domain.PointsBreakdown{
		VolumePoints:    volume,
		VolumeReason:    volumeReason,
		DiversityPoints: diversity,
		DiversityReason: diversityReason,
		HistoryPoints:   history,
		HistoryReason:   historyReason,
		TotalPoints:     volume + diversity + history,
	}
}

// VolumePoints scores total listening time.
func VolumePoints(totalMinutes int64) (int, string) {
	switch {
	case totalMinutes >= 5000:
		return 500, "500 (5000+ minutes)"
	case totalMinutes >= 1000:
		return 150, "150 (1000+ minutes)"
	case totalMinutes >= 500:
		return 50, "50 (500+ minutes)"
	case totalMinutes >= 100:
		return 25, "25 (100+ minutes)"
	case totalMinutes >= 30:
		return 5, "5 (30+ minutes)"
	default:
		return 0, "0 (< 30 minutes)"
	}
}

// DiversityPoints scores unique-artist breadth.
func DiversityPoints(uniqueArtists int) (int, string) {
	switch {
	case uniqueArtists >= 50:
		return 150, "150 (50+ artists)"
	case uniqueArtists >= 25:
		return 75, "75 (25+ artists)"
	case uniqueArtists >= 10:
		return 30, "30 (10+ artists)"
	case uniqueArtists >= 5:
		return 10, "10 (5+ artists)"
	case uniqueArtists >= 3:
		return 5, "5 (3+ artists)"
	default:
		return 0, "0 (< 3 artists)"
	}
}

// HistoryPoints scores the activity-period length in days.
func HistoryPoints(days int) (int, string) {
	switch {
	case days >= 180:
		return 100, "100 (6+ months)"
	case days >= 90:
		return 50, "50 (3+ months)"
	case days >= 30:
		return 25, "25 (1+ month)"
	case days >= 7:
		return 10, "10 (7+ days)"
	default:
		return 0, "0 (< 7 days)"
	}
}

// Normalize converts points into a score in [0, 1].
func Normalize(points, maxPoints int) float64 {
	if maxPoints <= 0 {
		return 0.0
	}
	score := float64(points) / float64(maxPoints)
	if score > 1.0 {
		return 1.0
	}
	return score
}

// DifferentialReward compares the value of everything seen in this run
// against what the account has already been paid. Upstream windows overlap
// across runs, so diffing raw events would double count; scoring the full
// view and subtracting the prior cumulative payout gives an exactly-once,
// monotonic reward under repeated overlapping fetches.
func DifferentialReward(breakdown domain.PointsBreakdown, maxPoints int, previousCumulative float64) (reward float64, differentialPoints int) {
	sNow := Normalize(breakdown.TotalPoints, maxPoints)
	reward = sNow - previousCumulative
	if reward < 0 {
		reward = 0
	}
	differentialPoints = breakdown.TotalPoints - int(previousCumulative*float64(maxPoints))
	if differentialPoints < 0 {
		differentialPoints = 0
	}
	return reward, differentialPoints
}
