package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verte-zerg/typerush/internal/auth"
	"github.com/verte-zerg/typerush/internal/leaderboard"
	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/records"
)

// DefaultPageSize is the race list page size when the client sends none.
const DefaultPageSize = 50

type importRequest struct {
	Races []model.RaceRecord `json:"races"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

type profileRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=2,max=32"`
}

type publicProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(w, r, MaxBodySize, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.authority.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	accountsRegistered.Inc()
	s.logger.Infow("account registered", "userId", res.User.ID)
	s.jsonResponse(w, http.StatusCreated, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(w, r, MaxBodySize, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.authority.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// Tokens are stateless; logging out only discards them on the client.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, currentUser(r.Context()))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, MaxBodySize, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := model.ValidateStruct(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, ok, err := s.store.UpdateDisplayName(r.Context(), currentUser(r.Context()).ID, req.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, model.ErrNotFound)
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	user, ok, err := s.store.UserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, model.ErrNotFound)
		return
	}
	s.jsonResponse(w, http.StatusOK, publicProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	})
}

func (s *Server) handleCreateRace(w http.ResponseWriter, r *http.Request) {
	var rec model.RaceRecord
	if err := decodeJSON(w, r, MaxBodySize, &rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := model.ValidateRace(rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	user := currentUser(r.Context())
	stored, err := s.store.CreateRace(r.Context(), user.ID, rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	racesRecorded.Inc()
	s.jsonResponse(w, http.StatusCreated, stored)
}

func (s *Server) handleImportRaces(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, MaxImportSize, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	for i, rec := range req.Races {
		if err := model.ValidateRace(rec); err != nil {
			s.writeError(w, r, fmt.Errorf("races[%d]: %w", i, err))
			return
		}
	}
	user := currentUser(r.Context())
	n, err := s.store.ImportRaces(r.Context(), user.ID, req.Races)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	racesImported.Add(float64(n))
	racesDeduplicated.Add(float64(len(req.Races) - n))
	s.logger.Infow("races imported", "userId", user.ID, "submitted", len(req.Races), "imported", n)
	s.jsonResponse(w, http.StatusCreated, importResponse{Imported: n})
}

func (s *Server) handleListRaces(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.store.ListRacesByUser(r.Context(), currentUser(r.Context()).ID, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, page)
}

func (s *Server) handleRaceStats(w http.ResponseWriter, r *http.Request) {
	races, err := s.store.ListAll(r.Context(), model.RaceFilter{UserID: currentUser(r.Context()).ID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	derived := records.Recompute(races)
	s.jsonResponse(w, http.StatusOK, model.RaceSummary{
		AggregateStats: derived.Stats,
		BestWPM:        derived.OverallBestWPM,
		BestAccuracy:   derived.OverallBestAccuracy,
	})
}

func (s *Server) handleGetRace(w http.ResponseWriter, r *http.Request) {
	race, ok, err := s.store.RaceByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Other users' races are indistinguishable from missing ones.
	if !ok || race.UserID != currentUser(r.Context()).ID {
		s.writeError(w, r, model.ErrNotFound)
		return
	}
	s.jsonResponse(w, http.StatusOK, race)
}

func (s *Server) handleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", leaderboard.DefaultLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	quoteID, err := queryOptionalInt(r, "quote")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	period, err := leaderboard.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.ranker.Global(r.Context(), limit, quoteID, period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

func (s *Server) handleQuoteLeaderboard(w http.ResponseWriter, r *http.Request) {
	quoteID, err := strconv.Atoi(chi.URLParam(r, "quoteId"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: quoteId must be an integer", model.ErrValidation))
		return
	}
	limit, err := queryInt(r, "limit", leaderboard.DefaultQuoteLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.ranker.TopByQuote(r.Context(), quoteID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

func (s *Server) handleMyRank(w http.ResponseWriter, r *http.Request) {
	s.rankResponse(w, r, currentUser(r.Context()).ID)
}

func (s *Server) handleUserRank(w http.ResponseWriter, r *http.Request) {
	s.rankResponse(w, r, chi.URLParam(r, "userId"))
}

func (s *Server) rankResponse(w http.ResponseWriter, r *http.Request, userID string) {
	quoteID, err := queryOptionalInt(r, "quote")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rank, ok, err := s.ranker.UserRank(r.Context(), userID, quoteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res := model.UserRank{UserID: userID}
	if ok {
		res.Rank = &rank
	}
	s.jsonResponse(w, http.StatusOK, res)
}
