// Package scoreboard keeps live scores for the chat bot's match tracker.
package scoreboard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownMatch = errors.New("unknown match")
	ErrUnknownTeam  = errors.New("team is not playing in this match")
	ErrFinished     = errors.New("match already finished")
	ErrInvalidTeams = errors.New("home and away teams must be distinct and non-empty")
)

// Match is a snapshot of one game.
type Match struct {
	ID         string    `json:"id"`
	Home       string    `json:"home"`
	Away       string    `json:"away"`
	HomeScore  int       `json:"home_score"`
	AwayScore  int       `json:"away_score"`
	Finished   bool      `json:"finished"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Leader returns the leading team name, or "" when level.
func (m Match) Leader() string {
	switch {
	case m.HomeScore > m.AwayScore:
		return m.Home
	case m.AwayScore > m.HomeScore:
		return m.Away
	default:
		return ""
	}
}

// Board holds matches in memory. It is safe for concurrent use.
type Board struct {
	mu      sync.RWMutex
	matches map[string]*Match
	now     func() time.Time
}

func New() *Board {
	return &Board{matches: make(map[string]*Match), now: time.Now}
}

// Start opens a new match at 0-0.
func (b *Board) Start(home, away string) (Match, error) {
	home, away = strings.TrimSpace(home), strings.TrimSpace(away)
	if home == "" || away == "" || strings.EqualFold(home, away) {
		return Match{}, ErrInvalidTeams
	}
	m := &Match{
		ID:        uuid.NewString()[:8],
		Home:      home,
		Away:      away,
		StartedAt: b.now(),
	}
	b.mu.Lock()
	b.matches[m.ID] = m
	b.mu.Unlock()
	return *m, nil
}

// Score adds points to team, named by team name or "home"/"away".
func (b *Board) Score(id, team string, points int) (Match, error) {
	if points <= 0 {
		return Match{}, fmt.Errorf("points must be positive, got %d", points)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.matches[id]
	if !ok {
		return Match{}, fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	if m.Finished {
		return Match{}, ErrFinished
	}
	switch {
	case strings.EqualFold(team, m.Home) || strings.EqualFold(team, "home"):
		m.HomeScore += points
	case strings.EqualFold(team, m.Away) || strings.EqualFold(team, "away"):
		m.AwayScore += points
	default:
		return Match{}, fmt.Errorf("%w: %s", ErrUnknownTeam, team)
	}
	return *m, nil
}

// Finish freezes the match. Finishing twice returns ErrFinished.
func (b *Board) Finish(id string) (Match, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.matches[id]
	if !ok {
		return Match{}, fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	if m.Finished {
		return Match{}, ErrFinished
	}
	m.Finished = true
	m.FinishedAt = b.now()
	return *m, nil
}

func (b *Board) Get(id string) (Match, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.matches[id]
	if !ok {
		return Match{}, fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	return *m, nil
}

// List returns all matches, oldest first.
func (b *Board) List() []Match {
	b.mu.RLock()
	out := make([]Match, 0, len(b.matches))
	for _, m := range b.matches {
		out = append(out, *m)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
