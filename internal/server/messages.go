package server

import (
	"time"

	"rating-ledger/internal/domain"
)

type RegisterPlayerRequest struct {
	DisplayName   string  `json:"display_name"`
	ExternalAlias *string `json:"external_alias,omitempty"`
}

type GetPlayerRequest struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

type Player struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	ExternalAlias *string   `json:"external_alias,omitempty"`
	Rating        int       `json:"rating"`
	MatchesPlayed int       `json:"matches_played"`
	CreatedAt     time.Time `json:"created_at"`
}

type SubmitMatchRequest struct {
	MatchID  string             `json:"match_id"`
	WinnerID string             `json:"winner_id"`
	LoserID  string             `json:"loser_id"`
	Margin   *domain.MarginData `json:"margin,omitempty"`
}

type ReportMatchRequest struct {
	Reference string `json:"reference"`
}

type LedgerEntry struct {
	MatchID           string             `json:"match_id"`
	WinnerID          string             `json:"winner_id"`
	LoserID           string             `json:"loser_id"`
	Delta             int                `json:"delta"`
	WinnerRatingAfter int                `json:"winner_rating_after"`
	LoserRatingAfter  int                `json:"loser_rating_after"`
	Margin            *domain.MarginData `json:"margin,omitempty"`
	RecordedAt        time.Time          `json:"recorded_at"`
}

type CommitResponse struct {
	Status string       `json:"status"`
	Reason string       `json:"reason,omitempty"`
	Entry  *LedgerEntry `json:"entry,omitempty"`
}

type StandingsRequest struct{}

type StandingsResponse struct {
	Players []Player `json:"players"`
}

type PlayerStatsRequest struct {
	PlayerID string `json:"player_id"`
}

type PlayerStatsResponse struct {
	Player  Player         `json:"player"`
	Trend   string         `json:"trend"`
	Streak  bool           `json:"streak"`
	WinRate float64        `json:"win_rate"`
	Wins    int            `json:"wins"`
	Losses  int            `json:"losses"`
	History []HistoryPoint `json:"history"`
}

type RatingHistoryRequest struct {
	PlayerID string `json:"player_id"`
}

type HistoryPoint struct {
	At      time.Time `json:"at"`
	Rating  int       `json:"rating"`
	MatchID string    `json:"match_id,omitempty"`
}

type RatingHistoryResponse struct {
	Points []HistoryPoint `json:"points"`
}

type VerifyLedgerRequest struct{}

type Drift struct {
	PlayerID              string `json:"player_id"`
	DisplayName           string `json:"display_name"`
	StoredRating          int    `json:"stored_rating"`
	ReplayedRating        int    `json:"replayed_rating"`
	StoredMatchesPlayed   int    `json:"stored_matches_played"`
	ReplayedMatchesPlayed int    `json:"replayed_matches_played"`
}

type VerifyLedgerResponse struct {
	Consistent bool    `json:"consistent"`
	Drifts     []Drift `json:"drifts"`
}

func toPlayer(p *domain.Player) Player {
	return Player{
		ID:            p.ID,
		DisplayName:   p.DisplayName,
		ExternalAlias: p.ExternalAlias,
		Rating:        p.Rating,
		MatchesPlayed: p.MatchesPlayed,
		CreatedAt:     p.CreatedAt,
	}
}

func toHistoryPoints(history []domain.HistoryPoint) []HistoryPoint {
	points := make([]HistoryPoint, 0, len(history))
	for _, p := range history {
		points = append(points, HistoryPoint{At: p.At, Rating: p.Rating, MatchID: p.MatchID})
	}
	return points
}

func toCommitResponse(res *domain.CommitResult) *CommitResponse {
	resp := &CommitResponse{Status: string(res.Status), Reason: res.Reason}
	if e := res.Entry; e != nil {
		resp.Entry = &LedgerEntry{
			MatchID:           e.MatchID,
			WinnerID:          e.WinnerID,
			LoserID:           e.LoserID,
			Delta:             e.Delta,
			WinnerRatingAfter: e.WinnerRatingAfter,
			LoserRatingAfter:  e.LoserRatingAfter,
			Margin:            e.MarginData,
			RecordedAt:        e.RecordedAt,
		}
	}
	return resp
}
