package domain

import (
	"time"
)

type MatchStatus string

const (
	StatusDraft         MatchStatus = "DRAFT"
	StatusCaptainVoting MatchStatus = "CAPTAIN_VOTING"
	StatusTeamSelection MatchStatus = "TEAM_SELECTION"
	StatusMapPickBan    MatchStatus = "MAP_PICK_BAN"
	StatusInProgress    MatchStatus = "IN_PROGRESS"
	StatusVoting        MatchStatus = "VOTING"
	StatusCompleted     MatchStatus = "COMPLETED"
	StatusCancelled     MatchStatus = "CANCELLED"
)

// Terminal states lock the match against any further mutation.
func (s MatchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the defined workflow states.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusCaptainVoting, StatusTeamSelection, StatusMapPickBan,
		StatusInProgress, StatusVoting, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type SeriesType string

const (
	SeriesBO1 SeriesType = "BO1"
	SeriesBO3 SeriesType = "BO3"
	SeriesBO5 SeriesType = "BO5"
)

// MapCount is the number of maps the series plays at most.
func (s SeriesType) MapCount() int {
	switch s {
	case SeriesBO3:
		return 3
	case SeriesBO5:
		return 5
	default:
		return 1
	}
}

// RequiredWins is the map-win count that decides the series.
func (s SeriesType) RequiredWins() int {
	switch s {
	case SeriesBO3:
		return 2
	case SeriesBO5:
		return 3
	default:
		return 1
	}
}

type TeamKind string

const (
	TeamPool  TeamKind = "POOL"
	TeamAlpha TeamKind = "ALPHA"
	TeamBravo TeamKind = "BRAVO"
)

type TeamSide string

const (
	SideAttacker TeamSide = "ATTACKER"
	SideDefender TeamSide = "DEFENDER"
)

type MapAction string

const (
	ActionPick    MapAction = "PICK"
	ActionBan     MapAction = "BAN"
	ActionDecider MapAction = "DECIDER"
)

type SubmissionSource string

const (
	SourceManual  SubmissionSource = "MANUAL"
	SourceOCR     SubmissionSource = "OCR"
	SourceTracker SubmissionSource = "TRACKER"
)

type SubmissionStatus string

const (
	SubmissionNotStarted    SubmissionStatus = "NOT_STARTED"
	SubmissionPendingReview SubmissionStatus = "PENDING_REVIEW"
	SubmissionConfirmed     SubmissionStatus = "CONFIRMED"
	SubmissionRejected      SubmissionStatus = "REJECTED"
)

const TeamSize = 5

type Match struct {
	ID           string
	HostID       string
	SeriesType   SeriesType
	Status       MatchStatus
	StatsStatus  SubmissionStatus
	WinnerTeamID *string
	Version      int64
	Teams        []Team
	Selections   []MapSelection
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (m *Match) team(kind TeamKind) *Team {
	for i := range m.Teams {
		if m.Teams[i].Kind == kind {
			return &m.Teams[i]
		}
	}
	return nil
}

// TeamOf returns the match team of the given kind.
func (m *Match) TeamOf(kind TeamKind) *Team { return m.team(kind) }

func (m *Match) Pool() *Team  { return m.team(TeamPool) }
func (m *Match) Alpha() *Team { return m.team(TeamAlpha) }
func (m *Match) Bravo() *Team { return m.team(TeamBravo) }

func (m *Match) TeamByID(id string) *Team {
	for i := range m.Teams {
		if m.Teams[i].ID == id {
			return &m.Teams[i]
		}
	}
	return nil
}

// MemberTeam returns the team the user currently belongs to, if any.
func (m *Match) MemberTeam(userID string) *Team {
	for i := range m.Teams {
		if m.Teams[i].HasMember(userID) {
			return &m.Teams[i]
		}
	}
	return nil
}

// ActivePlayers counts members on the two playing teams.
func (m *Match) ActivePlayers() int {
	return len(m.Alpha().Members) + len(m.Bravo().Members)
}

// RosterCount counts every member including the player pool.
func (m *Match) RosterCount() int {
	n := 0
	for i := range m.Teams {
		n += len(m.Teams[i].Members)
	}
	return n
}

func (m *Match) PlayedMaps() int {
	n := 0
	for _, sel := range m.Selections {
		if sel.WasPlayed {
			n++
		}
	}
	return n
}

func (m *Match) SelectionFor(mapName string) *MapSelection {
	for i := range m.Selections {
		if m.Selections[i].MapName == mapName {
			return &m.Selections[i]
		}
	}
	return nil
}

type Team struct {
	ID        string
	MatchID   string
	Kind      TeamKind
	Side      TeamSide
	CaptainID *string
	Members   []TeamMember
}

func (t *Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (t *Team) IsCaptain(userID string) bool {
	return t.CaptainID != nil && *t.CaptainID == userID
}

type TeamMember struct {
	TeamID   string
	UserID   string
	JoinedAt time.Time
}

type MapSelection struct {
	ID           string
	MatchID      string
	Order        int
	MapName      string
	Action       MapAction
	TeamID       *string
	WasPlayed    bool
	WinnerTeamID *string
}

// StatRow is the normalized ingestion row shared by manual entry, OCR
// and tracker-export sources. OCR/tracker rows carry only the raw
// extracted display name in PlayerIdentityHint; manual rows carry the
// roster UserID directly.
type StatRow struct {
	Team               TeamKind `json:"team"`
	Position           int      `json:"position"`
	UserID             string   `json:"user_id,omitempty"`
	PlayerIdentityHint string   `json:"player_identity_hint,omitempty"`
	ACS                int      `json:"acs"`
	Kills              int      `json:"kills"`
	Deaths             int      `json:"deaths"`
	Assists            int      `json:"assists"`
	PlusMinus          int      `json:"plus_minus"`
	KD                 float64  `json:"kd"`
	DamageDelta        int      `json:"damage_delta"`
	ADR                float64  `json:"adr"`
	HeadshotPercent    float64  `json:"headshot_percent"`
	Kast               float64  `json:"kast"`
	FirstKills         int      `json:"first_kills"`
	FirstDeaths        int      `json:"first_deaths"`
	MultiKills         int      `json:"multi_kills"`
}

type MatchStatsSubmission struct {
	ID        string
	MatchID   string
	MapName   string
	Source    SubmissionSource
	Status    SubmissionStatus
	Rows      []SubmissionRow
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubmissionRow is an append-only evidence row. ResolvedUserID stays
// nil until reconciliation maps the identity hint onto a roster member.
type SubmissionRow struct {
	ID             string
	SubmissionID   string
	ResolvedUserID *string
	StatRow
}

type PlayerMatchStats struct {
	ID              string
	MatchID         string
	MapName         string
	UserID          string
	Kills           int
	Deaths          int
	Assists         int
	ACS             int
	ADR             float64
	PlusMinus       int
	DamageDelta     int
	HeadshotPercent float64
	Kast            float64
	FirstKills      int
	FirstDeaths     int
	MultiKills      int
	KD              float64
	Rating20        float64
	WeightProfileID string
	CreatedAt       time.Time
}

type EloHistory struct {
	ID         string
	UserID     string
	MatchID    string
	OldElo     int
	NewElo     int
	Change     int
	KFactor    int
	Won        bool
	SeriesType SeriesType
	CreatedAt  time.Time
}

// WeightProfile holds the eight WPR weights, intended to sum to 1.0.
// Exactly one profile is active at a time; new rating computations use
// the active profile and historical ratings keep the profile id they
// were computed with.
type WeightProfile struct {
	ID        string
	Name      string
	Active    bool
	Kill      float64
	Death     float64
	Assist    float64
	ACS       float64
	ADR       float64
	Kast      float64
	FirstKill float64
	Clutch    float64
	CreatedAt time.Time
}

func (w WeightProfile) Sum() float64 {
	return w.Kill + w.Death + w.Assist + w.ACS + w.ADR + w.Kast + w.FirstKill + w.Clutch
}

type Player struct {
	ID            string
	Name          string
	Tag           string
	Elo           int
	PeakElo       int
	MatchesPlayed int
	Wins          int
	Losses        int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName is the "name#tag" form the tracker and OCR sources print.
func (p Player) DisplayName() string {
	if p.Tag == "" {
		return p.Name
	}
	return p.Name + "#" + p.Tag
}
