package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"customs-league/internal/domain"
	"customs-league/internal/ingest"
	"customs-league/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Server exposes the core operations as JSON endpoints. Transport is
// deliberately thin: every rule lives in the services.
type Server struct {
	matchSvc  *service.MatchService
	statsSvc  *service.StatsService
	ratingSvc *service.RatingService
	extractor *ingest.Client
	logger    zerolog.Logger
}

func NewServer(matchSvc *service.MatchService, statsSvc *service.StatsService, ratingSvc *service.RatingService, extractor *ingest.Client, logger zerolog.Logger) *Server {
	return &Server{matchSvc: matchSvc, statsSvc: statsSvc, ratingSvc: ratingSvc, extractor: extractor, logger: logger}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/matches", func(r chi.Router) {
		r.Post("/", s.createMatch)
		r.Route("/{matchID}", func(r chi.Router) {
			r.Get("/", s.getMatch)
			r.Post("/join", s.join)
			r.Post("/leave", s.leave)
			r.Post("/advance", s.advance)
			r.Post("/cancel", s.cancel)
			r.Post("/captains", s.setCaptain)
			r.Post("/assign", s.assignToTeam)
			r.Post("/pickban", s.submitPickBan)
			r.Post("/finalize", s.finalize)
			r.Delete("/members/{userID}", s.adminRemove)
			r.Post("/admin/status", s.adminSetStatus)
			r.Post("/admin/teams", s.adminOverrideTeams)
			r.Post("/admin/maps", s.adminOverrideMaps)
			r.Route("/maps/{mapName}/stats", func(r chi.Router) {
				r.Get("/", s.statsForMap)
				r.Post("/", s.submitStats)
				r.Post("/import", s.importStats)
				r.Post("/override", s.overrideStats)
			})
		})
	})

	r.Route("/submissions/{submissionID}", func(r chi.Router) {
		r.Get("/", s.getSubmission)
		r.Post("/confirm", s.confirmSubmission)
		r.Post("/reject", s.rejectSubmission)
	})

	r.Route("/weights", func(r chi.Router) {
		r.Get("/", s.listWeightProfiles)
		r.Post("/", s.createWeightProfile)
		r.Post("/{profileID}/activate", s.activateWeightProfile)
	})

	r.Put("/players/{userID}", s.registerPlayer)
	r.Get("/players/{userID}", s.getPlayer)
	r.Get("/players/{userID}/elo-history", s.eloHistory)
	r.Get("/players/{userID}/form", s.recentForm)
	r.Get("/leaderboard", s.leaderboard)

	return r
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostID     string            `json:"host_id"`
		SeriesType domain.SeriesType `json:"series_type"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.Create(r.Context(), req.HostID, req.SeriesType)
	s.respond(w, r, m, err, http.StatusCreated)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.matchSvc.Get(r.Context(), chi.URLParam(r, "matchID"))
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.Join(r.Context(), chi.URLParam(r, "matchID"), req.UserID)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) leave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.Leave(r.Context(), chi.URLParam(r, "matchID"), req.UserID)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status *domain.MatchStatus `json:"status"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.Advance(r.Context(), chi.URLParam(r, "matchID"), req.Status)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	m, err := s.matchSvc.Cancel(r.Context(), chi.URLParam(r, "matchID"))
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) setCaptain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID string `json:"team_id"`
		UserID string `json:"user_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.SetCaptain(r.Context(), chi.URLParam(r, "matchID"), req.TeamID, req.UserID)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) assignToTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string          `json:"user_id"`
		Team   domain.TeamKind `json:"team"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.AssignToTeam(r.Context(), chi.URLParam(r, "matchID"), req.UserID, req.Team)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) submitPickBan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CaptainID string           `json:"captain_id"`
		MapName   string           `json:"map_name"`
		Action    domain.MapAction `json:"action"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.SubmitPickBan(r.Context(), chi.URLParam(r, "matchID"), req.CaptainID, req.MapName, req.Action)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	m, err := s.ratingSvc.Finalize(r.Context(), chi.URLParam(r, "matchID"))
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) adminRemove(w http.ResponseWriter, r *http.Request) {
	m, err := s.matchSvc.AdminRemove(r.Context(), chi.URLParam(r, "matchID"), chi.URLParam(r, "userID"))
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.MatchStatus `json:"status"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.AdminSetStatus(r.Context(), chi.URLParam(r, "matchID"), req.Status)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) adminOverrideTeams(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rosters map[domain.TeamKind][]string `json:"rosters"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.AdminOverrideTeams(r.Context(), chi.URLParam(r, "matchID"), req.Rosters)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) adminOverrideMaps(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selections []domain.MapSelection `json:"selections"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.matchSvc.AdminOverrideMaps(r.Context(), chi.URLParam(r, "matchID"), req.Selections)
	s.respond(w, r, m, err, http.StatusOK)
}

func (s *Server) submitStats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source domain.SubmissionSource `json:"source"`
		Rows   []domain.StatRow        `json:"rows"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sub, err := s.statsSvc.Submit(r.Context(), chi.URLParam(r, "matchID"), chi.URLParam(r, "mapName"), req.Source, req.Rows)
	s.respond(w, r, sub, err, http.StatusCreated)
}

// importStats fetches extracted rows from the upstream extraction
// service and records them as a TRACKER submission.
func (s *Server) importStats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reference string `json:"reference"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	extraction, err := s.extractor.FetchExtraction(r.Context(), req.Reference)
	if err != nil {
		s.logger.Error().Err(err).Str("reference", req.Reference).Msg("extraction fetch failed")
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	sub, err := s.statsSvc.Submit(r.Context(), chi.URLParam(r, "matchID"), chi.URLParam(r, "mapName"), domain.SourceTracker, extraction.Scoreboard.Rows)
	s.respond(w, r, sub, err, http.StatusCreated)
}

func (s *Server) overrideStats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []domain.StatRow `json:"rows"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	err := s.statsSvc.AdminOverride(r.Context(), chi.URLParam(r, "matchID"), chi.URLParam(r, "mapName"), req.Rows)
	s.respond(w, r, map[string]string{"status": "ok"}, err, http.StatusOK)
}

func (s *Server) statsForMap(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsSvc.StatsForMap(r.Context(), chi.URLParam(r, "matchID"), chi.URLParam(r, "mapName"))
	s.respond(w, r, stats, err, http.StatusOK)
}

func (s *Server) getSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.statsSvc.Submission(r.Context(), chi.URLParam(r, "submissionID"))
	s.respond(w, r, sub, err, http.StatusOK)
}

func (s *Server) confirmSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Winner domain.TeamKind `json:"winner"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sub, err := s.statsSvc.Confirm(r.Context(), chi.URLParam(r, "submissionID"), req.Winner)
	s.respond(w, r, sub, err, http.StatusOK)
}

func (s *Server) rejectSubmission(w http.ResponseWriter, r *http.Request) {
	err := s.statsSvc.Reject(r.Context(), chi.URLParam(r, "submissionID"))
	s.respond(w, r, map[string]string{"status": "rejected"}, err, http.StatusOK)
}

func (s *Server) listWeightProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.statsSvc.WeightProfiles(r.Context())
	s.respond(w, r, profiles, err, http.StatusOK)
}

func (s *Server) createWeightProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.WeightProfile
	if !s.decode(w, r, &req) {
		return
	}
	err := s.statsSvc.CreateWeightProfile(r.Context(), &req)
	s.respond(w, r, req, err, http.StatusCreated)
}

func (s *Server) activateWeightProfile(w http.ResponseWriter, r *http.Request) {
	err := s.statsSvc.ActivateWeightProfile(r.Context(), chi.URLParam(r, "profileID"))
	s.respond(w, r, map[string]string{"status": "active"}, err, http.StatusOK)
}

func (s *Server) registerPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Tag  string `json:"tag"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	player, err := s.ratingSvc.RegisterPlayer(r.Context(), chi.URLParam(r, "userID"), req.Name, req.Tag)
	s.respond(w, r, player, err, http.StatusOK)
}

func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.ratingSvc.Player(r.Context(), chi.URLParam(r, "userID"))
	s.respond(w, r, player, err, http.StatusOK)
}

func (s *Server) eloHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.ratingSvc.EloHistoryFor(r.Context(), chi.URLParam(r, "userID"))
	s.respond(w, r, history, err, http.StatusOK)
}

func (s *Server) recentForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.ratingSvc.RecentForm(r.Context(), chi.URLParam(r, "userID"))
	s.respond(w, r, map[string]float64{"recent_form": form}, err, http.StatusOK)
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	players, err := s.ratingSvc.Leaderboard(r.Context())
	s.respond(w, r, players, err, http.StatusOK)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error, status int) {
	if err != nil {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
		s.writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// statusFor maps the domain error taxonomy onto HTTP codes. All of
// these are validation failures the caller should not blindly retry.
func statusFor(err error) int {
	var (
		transition *domain.StateTransitionError
		capacity   *domain.RosterCapacityError
		turn       *domain.TurnOrderError
		ambiguity  *domain.ReconciliationAmbiguityError
		conflict   *domain.SubmissionConflictError
		incomplete *domain.SeriesIncompleteError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ambiguity):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transition), errors.As(err, &capacity), errors.As(err, &turn),
		errors.As(err, &conflict), errors.As(err, &incomplete):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
