package main

import (
	"encoding/json"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/duelcircle/duelcircle/internal/httputil"
	"github.com/duelcircle/duelcircle/internal/middleware"
	"github.com/duelcircle/duelcircle/internal/service"
	"github.com/duelcircle/duelcircle/internal/store"
	"github.com/duelcircle/duelcircle/internal/ws"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func newRouter(database *sqlx.DB, sessionManager *scs.SessionManager, hub *ws.Hub, adminService *service.AdminService) http.Handler {
	tournamentStore := store.NewTournamentStore(database)
	tournamentService := service.NewTournamentService(database, tournamentStore, hub)
	matchService := service.NewMatchService(database, tournamentStore, tournamentService, hub)
	playerService := service.NewPlayerService(database, tournamentStore)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Serve uploaded avatars
	fileServer := http.FileServer(http.Dir("./uploads"))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Sessions exist only for admin auth. Keeping LoadAndSave off the
	// websocket routes, since it wraps the ResponseWriter.
	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)

		r.Post("/api/admin/login", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			if err := adminService.Login(r.Context(), req.Password); err != nil {
				serviceError(w, "Login failed", err)
				return
			}

			middleware.GrantAdmin(sessionManager, r)
			httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(sessionManager))

			r.Post("/api/admin/tournaments", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Name         string `json:"name"`
					MaxPlayers   int    `json:"max_players"`
					StartingLife int    `json:"starting_life"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httputil.BadRequest(w, "Invalid request body", err)
					return
				}

				tournament, err := tournamentService.Create(r.Context(), req.Name, req.MaxPlayers, req.StartingLife)
				if err != nil {
					serviceError(w, "Failed to create tournament", err)
					return
				}
				httputil.JSON(w, http.StatusCreated, map[string]any{"tournament_id": tournament.ID})
			})

			r.Post("/api/admin/tournaments/{id}/schedule", func(w http.ResponseWriter, r *http.Request) {
				tournamentID, err := uuid.Parse(chi.URLParam(r, "id"))
				if err != nil {
					httputil.BadRequest(w, "Invalid tournament ID", err)
					return
				}

				summary, err := tournamentService.GenerateSchedule(r.Context(), tournamentID)
				if err != nil {
					serviceError(w, "Failed to generate schedule", err)
					return
				}
				httputil.JSON(w, http.StatusOK, summary)
			})

			r.Post("/api/admin/tournaments/{id}/next-round", func(w http.ResponseWriter, r *http.Request) {
				tournamentID, err := uuid.Parse(chi.URLParam(r, "id"))
				if err != nil {
					httputil.BadRequest(w, "Invalid tournament ID", err)
					return
				}

				advance, err := tournamentService.AdvanceRound(r.Context(), tournamentID)
				if err != nil {
					serviceError(w, "Failed to advance round", err)
					return
				}
				httputil.JSON(w, http.StatusOK, advance)
			})

			r.Post("/api/admin/matches/{id}/result", func(w http.ResponseWriter, r *http.Request) {
				matchID, err := uuid.Parse(chi.URLParam(r, "id"))
				if err != nil {
					httputil.BadRequest(w, "Invalid match ID", err)
					return
				}
				var req struct {
					WinnerID uuid.UUID `json:"winner_id"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httputil.BadRequest(w, "Invalid request body", err)
					return
				}

				outcome, err := matchService.SetResult(r.Context(), matchID, req.WinnerID)
				if err != nil {
					serviceError(w, "Failed to set match result", err)
					return
				}
				httputil.JSON(w, http.StatusOK, matchJSON(outcome.Match))
			})

			r.Post("/api/admin/matches/{id}/force-end", func(w http.ResponseWriter, r *http.Request) {
				matchID, err := uuid.Parse(chi.URLParam(r, "id"))
				if err != nil {
					httputil.BadRequest(w, "Invalid match ID", err)
					return
				}

				outcome, err := matchService.ForceEnd(r.Context(), matchID)
				if err != nil {
					serviceError(w, "Failed to force end match", err)
					return
				}
				httputil.JSON(w, http.StatusOK, matchJSON(outcome.Match))
			})

			r.Get("/api/admin/tournaments", func(w http.ResponseWriter, r *http.Request) {
				history, err := tournamentService.History(r.Context())
				if err != nil {
					serviceError(w, "Failed to get tournament history", err)
					return
				}
				httputil.JSON(w, http.StatusOK, history)
			})

			r.Delete("/api/admin/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
				tournamentID, err := uuid.Parse(chi.URLParam(r, "id"))
				if err != nil {
					httputil.BadRequest(w, "Invalid tournament ID", err)
					return
				}

				if err := tournamentService.Delete(r.Context(), tournamentID); err != nil {
					serviceError(w, "Failed to delete tournament", err)
					return
				}
				httputil.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
			})
		})
	})

	r.Get("/api/tournament/current", func(w http.ResponseWriter, r *http.Request) {
		summary, err := tournamentService.Current(r.Context())
		if err != nil {
			serviceError(w, "Failed to get current tournament", err)
			return
		}
		httputil.JSON(w, http.StatusOK, summary)
	})

	r.Get("/api/tournaments/{id}/standings", func(w http.ResponseWriter, r *http.Request) {
		tournamentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid tournament ID", err)
			return
		}

		standings, err := tournamentService.Standings(r.Context(), tournamentID)
		if err != nil {
			serviceError(w, "Failed to get standings", err)
			return
		}
		httputil.JSON(w, http.StatusOK, standings)
	})

	r.Get("/api/tournaments/{id}/schedule", func(w http.ResponseWriter, r *http.Request) {
		tournamentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid tournament ID", err)
			return
		}

		schedule, err := tournamentService.Schedule(r.Context(), tournamentID)
		if err != nil {
			serviceError(w, "Failed to get schedule", err)
			return
		}
		httputil.JSON(w, http.StatusOK, schedule)
	})

	r.Get("/api/tournaments/{id}/current-round", func(w http.ResponseWriter, r *http.Request) {
		tournamentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid tournament ID", err)
			return
		}

		round, err := tournamentService.CurrentRound(r.Context(), tournamentID)
		if err != nil {
			serviceError(w, "Failed to get current round", err)
			return
		}
		httputil.JSON(w, http.StatusOK, round)
	})

	r.Post("/api/tournaments/{id}/players", func(w http.ResponseWriter, r *http.Request) {
		tournamentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid tournament ID", err)
			return
		}
		var req struct {
			Name       string   `json:"name"`
			AvatarPath *string  `json:"avatar_path"`
			Colors     []string `json:"colors"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "Invalid request body", err)
			return
		}

		player, err := playerService.Join(r.Context(), tournamentID, req.Name, req.AvatarPath, req.Colors)
		if err != nil {
			serviceError(w, "Failed to join tournament", err)
			return
		}
		httputil.JSON(w, http.StatusCreated, map[string]any{"player_id": player.ID})
	})

	r.Get("/api/players/{id}", func(w http.ResponseWriter, r *http.Request) {
		playerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid player ID", err)
			return
		}

		profile, err := playerService.Profile(r.Context(), playerID)
		if err != nil {
			serviceError(w, "Failed to get player profile", err)
			return
		}
		httputil.JSON(w, http.StatusOK, profile)
	})

	r.Put("/api/players/{id}", func(w http.ResponseWriter, r *http.Request) {
		playerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid player ID", err)
			return
		}
		var req struct {
			Name       string   `json:"name"`
			AvatarPath *string  `json:"avatar_path"`
			Colors     []string `json:"colors"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "Invalid request body", err)
			return
		}

		player, err := playerService.UpdateProfile(r.Context(), playerID, req.Name, req.AvatarPath, req.Colors)
		if err != nil {
			serviceError(w, "Failed to update player", err)
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]any{"player_id": player.ID})
	})

	r.Get("/api/players/{id}/matches", func(w http.ResponseWriter, r *http.Request) {
		playerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid player ID", err)
			return
		}

		matches, err := playerService.Matches(r.Context(), playerID)
		if err != nil {
			serviceError(w, "Failed to get player matches", err)
			return
		}
		httputil.JSON(w, http.StatusOK, matches)
	})

	r.Get("/api/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid match ID", err)
			return
		}

		match, err := matchService.Get(r.Context(), matchID)
		if err != nil {
			serviceError(w, "Failed to get match", err)
			return
		}
		httputil.JSON(w, http.StatusOK, matchJSON(match))
	})

	r.Get("/api/matches/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid match ID", err)
			return
		}

		events, err := matchService.Events(r.Context(), matchID)
		if err != nil {
			serviceError(w, "Failed to get match events", err)
			return
		}
		httputil.JSON(w, http.StatusOK, events)
	})

	r.Post("/api/matches/{id}/join", func(w http.ResponseWriter, r *http.Request) {
		matchID, playerID, ok := matchPlayerRequest(w, r)
		if !ok {
			return
		}

		state, err := matchService.Join(r.Context(), matchID, playerID)
		if err != nil {
			serviceError(w, "Failed to join match", err)
			return
		}
		httputil.JSON(w, http.StatusOK, state)
	})

	r.Post("/api/matches/{id}/health", func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid match ID", err)
			return
		}
		var req struct {
			PlayerID uuid.UUID `json:"player_id"`
			Delta    int       `json:"delta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "Invalid request body", err)
			return
		}

		update, err := matchService.AdjustHealth(r.Context(), matchID, req.PlayerID, req.Delta)
		if err != nil {
			serviceError(w, "Failed to adjust health", err)
			return
		}
		httputil.JSON(w, http.StatusOK, update)
	})

	r.Post("/api/matches/{id}/defeat", func(w http.ResponseWriter, r *http.Request) {
		matchID, playerID, ok := matchPlayerRequest(w, r)
		if !ok {
			return
		}

		outcome, err := matchService.ConfirmDefeat(r.Context(), matchID, playerID)
		if err != nil {
			serviceError(w, "Failed to confirm defeat", err)
			return
		}

		resp := map[string]any{"match": matchJSON(outcome.Match)}
		if outcome.Advance != nil {
			resp["round_advance"] = outcome.Advance
		}
		httputil.JSON(w, http.StatusOK, resp)
	})

	r.Get("/ws/dashboard", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeDashboard(w, r)
	})

	r.Get("/ws/match/{id}", func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid match ID", err)
			return
		}
		hub.ServeMatch(w, r, matchID)
	})

	return r
}
