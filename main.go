package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/va6996/tripplanner/bootstrap"
	"github.com/va6996/tripplanner/config"
	reqcontext "github.com/va6996/tripplanner/context"
	"github.com/va6996/tripplanner/domain"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Println("\nProgram terminated externally. Exiting...")
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := bootstrap.Setup(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	mux := newMux(app)
	srv := &http.Server{Addr: ":" + port, Handler: withRequestID(mux)}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		srv.Shutdown(context.Background())
	}()

	log.Printf("Starting server on port %s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

// withRequestID tags every inbound request with a request ID so the
// handlers' calls into log.WithField-based logging can be correlated
// back to a single HTTP call.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := reqcontext.WithRequestID(r.Context(), reqcontext.NewRequestID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newMux wires the trip-planning HTTP surface: trip creation, the three
// primary operations, and the two supplemented per-stage trigger endpoints.
func newMux(app *bootstrap.App) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/trips", handleCreateTrip(app))
	mux.HandleFunc("POST /api/v1/trips/{trip_id}/macro-plan", handleGenerateMacroPlan(app))
	mux.HandleFunc("POST /api/v1/trips/{trip_id}/poi-plan", handleGeneratePOIPlan(app))
	mux.HandleFunc("POST /api/v1/trips/{trip_id}/plan", handlePlan(app))
	mux.HandleFunc("GET /api/v1/trips/{trip_id}/itinerary", handleGetItinerary(app))
	mux.HandleFunc("GET /api/v1/trips/{trip_id}/critique", handleGetCritique(app))
	return mux
}

func handleCreateTrip(app *bootstrap.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var trip domain.TripSpec
		if err := json.NewDecoder(r.Body).Decode(&trip); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if trip.City == "" || trip.StartDate == "" || trip.EndDate == "" {
			writeError(w, http.StatusBadRequest, "city, start_date, and end_date are required")
			return
		}

		trip.TripID = uuid.NewString()
		if err := app.Store.CreateTrip(r.Context(), trip); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, trip)
	}
}

func handleGenerateMacroPlan(app *bootstrap.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripID := r.PathValue("trip_id")
		skeleton, err := app.Orchestrator.GenerateMacroPlan(r.Context(), tripID)
		if err != nil {
			writeStageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, skeleton)
	}
}

func handleGeneratePOIPlan(app *bootstrap.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripID := r.PathValue("trip_id")
		plan, err := app.Orchestrator.GeneratePOIPlan(r.Context(), tripID)
		if err != nil {
			writeStageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func handlePlan(app *bootstrap.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripID := r.PathValue("trip_id")
		itinerary, err := app.Orchestrator.Plan(r.Context(), tripID)
		if err != nil {
			writeStageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, itinerary)
	}
}

func handleGetItinerary(app *bootstrap.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripID := r.PathValue("trip_id")
		itinerary, err := app.Orchestrator.GetItinerary(r.Context(), tripID)
		if err != nil {
			writeStageError(w, err)
			return
		}
		if itinerary == nil {
			writeError(w, http.StatusNotFound, "itinerary has not been generated yet")
			return
		}
		writeJSON(w, http.StatusOK, itinerary)
	}
}

func handleGetCritique(app *bootstrap.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripID := r.PathValue("trip_id")
		issues, err := app.Orchestrator.GetCritique(r.Context(), tripID)
		if err != nil {
			writeStageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, issues)
	}
}

// writeStageError maps the pipeline's sentinel/wrapped errors onto HTTP
// status codes per the precondition-vs-upstream-failure split (spec.md §7).
func writeStageError(w http.ResponseWriter, err error) {
	var macroFailed *domain.MacroPlanGenerationFailedError

	switch {
	case errors.Is(err, domain.ErrTripNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPOIPlanRequiresMacroPlan), errors.Is(err, domain.ErrItineraryRequiresPOIPlan):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &macroFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
