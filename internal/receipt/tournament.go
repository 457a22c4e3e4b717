package receipt

import (
	"time"

	"ReceiptPoll/internal/models"
)

// DefaultPlayTime applies when the backend does not say when a tournament starts.
var DefaultPlayTime = time.Date(2024, time.December, 31, 17, 0, 0, 0, time.UTC)

type TournamentInfo struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name,omitempty"`
	PlayTime time.Time `json:"playTime"`
	Started  bool      `json:"started"`
}

// TournamentStarted reports whether play has begun at now.
func TournamentStarted(playTime *time.Time, now time.Time) bool {
	start := DefaultPlayTime
	if playTime != nil && !playTime.IsZero() {
		start = *playTime
	}
	return start.Before(now)
}

func tournamentInfo(t *models.Tournament, now time.Time) *TournamentInfo {
	info := &TournamentInfo{PlayTime: DefaultPlayTime}
	var playTime *time.Time
	if t != nil {
		info.ID = t.ID
		info.Name = t.Name
		playTime = t.PlayTime
		if playTime != nil && !playTime.IsZero() {
			info.PlayTime = *playTime
		}
	}
	info.Started = TournamentStarted(playTime, now)
	return info
}
