package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"shopsmart/pkg/api"
	"shopsmart/pkg/models"
	"shopsmart/pkg/preload"
	"shopsmart/pkg/resolver"
	"shopsmart/pkg/scrapers"
	"shopsmart/pkg/session"
	"shopsmart/pkg/state"
)

type server struct {
	resolver        *resolver.Resolver
	sessions        *session.Controller
	state           *state.App
	verifier        *scrapers.Verifier
	verifyOnResolve bool
	logger          *slog.Logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.WriteNotFound(w, "No route for "+r.URL.Path, r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported on "+r.URL.Path, r.URL.Path)
	})

	r.Get("/", docsHandler)
	r.Get("/health", healthHandler)

	r.Route("/products", func(r chi.Router) {
		r.Get("/resolve", s.resolveProduct)
		r.Get("/trending", s.trendingProducts)
		r.Post("/verify", s.verifyProduct)
	})

	r.Route("/search", func(r chi.Router) {
		r.Get("/", s.searchSnapshot)
		r.Post("/", s.startSearch)
		r.Delete("/", s.cancelSearch)
		r.Post("/image", s.startImageSearch)
		r.Post("/voice", s.startVoiceSearch)
		r.Post("/barcode", s.startBarcodeSearch)
	})

	r.Get("/history", s.history)
	r.Get("/favorites", s.favorites)
	r.Post("/favorites", s.toggleFavorite)

	r.Route("/stats", func(r chi.Router) {
		r.Get("/", s.stats)
		r.Post("/premium", s.upgradePremium)
		r.Post("/referrals", s.addReferral)
	})

	r.Post("/chat", s.chat)

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}

func docsHandler(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("ShopSmart API"),
		),
	)
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeResolveError maps resolver and session errors onto problem details.
func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resolver.ErrEmptyQuery),
		errors.Is(err, resolver.ErrEmptyQuestion),
		errors.Is(err, session.ErrVoiceUnsupported):
		api.WriteBadRequest(w, err.Error(), r.URL.Path)
	case errors.Is(err, models.ErrProductNotFound):
		api.WriteBadRequest(w, "A product is required.", r.URL.Path)
	case errors.Is(err, resolver.ErrImageIdentification):
		api.WriteUnprocessable(w, resolver.UserMessage(err), r.URL.Path)
	case errors.Is(err, resolver.ErrMalformedResponse),
		errors.Is(err, resolver.ErrTransportFailure):
		api.WriteBadGateway(w, resolver.UserMessage(err), r.URL.Path)
	default:
		api.WriteInternalServerError(w, err, r.URL.Path)
	}
}

type productResponse struct {
	Product   *models.ProductRecord `json:"product"`
	Summary   models.PriceSummary   `json:"summary"`
	Favorite  bool                  `json:"favorite"`
	Refreshed int                   `json:"refreshed,omitempty"`
}

func (s *server) productResponse(p *models.ProductRecord) productResponse {
	summary, err := models.Summarize(p)
	if err != nil {
		s.logger.Warn("cannot summarize product", "product", p.ID, "error", err)
	}
	return productResponse{Product: p, Summary: summary, Favorite: s.state.IsFavorite(p.ID)}
}

func (s *server) resolveProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.resolver.Resolve(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeResolveError(w, r, err)
		return
	}

	var refreshed int
	if s.verifyOnResolve {
		if refreshed, err = s.verifier.Verify(r.Context(), p); err != nil {
			s.logger.Warn("verification interrupted", "product", p.ID, "error", err)
		}
	}

	resp := s.productResponse(p)
	resp.Refreshed = refreshed
	api.WriteJSON(w, http.StatusOK, resp)
}

type trendingItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ImageURL  string  `json:"imageUrl"`
	BestPrice float64 `json:"bestPrice"`
	Stores    int     `json:"stores"`
}

func (s *server) trendingProducts(w http.ResponseWriter, r *http.Request) {
	all := preload.All()
	items := make([]trendingItem, 0, len(all))
	for _, p := range all {
		summary, err := models.Summarize(p)
		if err != nil {
			continue
		}
		items = append(items, trendingItem{
			ID:        p.ID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			BestPrice: summary.BestPrice,
			Stores:    len(summary.Stores),
		})
	}
	api.WriteJSON(w, http.StatusOK, items)
}

func (s *server) verifyProduct(w http.ResponseWriter, r *http.Request) {
	var p models.ProductRecord
	if err := api.DecodeJSON(w, r, &p); err != nil {
		api.WriteBadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if len(p.Offers) == 0 {
		api.WriteBadRequest(w, models.ErrNoOffers.Error(), r.URL.Path)
		return
	}

	n, err := s.verifier.Verify(r.Context(), &p)
	if err != nil {
		api.WriteError(w, http.StatusServiceUnavailable, "Service Unavailable", "verification interrupted: "+err.Error(), r.URL.Path)
		return
	}

	resp := s.productResponse(&p)
	resp.Refreshed = n
	api.WriteJSON(w, http.StatusOK, resp)
}

func (s *server) searchSnapshot(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.sessions.Snapshot())
}

// writeStarted answers a search start with the view as it stands right after
// starting, which already holds the result for preloaded queries.
func (s *server) writeStarted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeResolveError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusAccepted, s.sessions.Snapshot())
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *server) startSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteBadRequest(w, err.Error(), r.URL.Path)
		return
	}
	_, err := s.sessions.Start(req.Query)
	s.writeStarted(w, r, err)
}

type imageSearchRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
}

func (s *server) startImageSearch(w http.ResponseWriter, r *http.Request) {
	var req imageSearchRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteBadRequest(w, err.Error(), r.URL.Path)
		return
	}

	data, mimeType, err := decodeImage(req.Image, req.MIMEType)
	if err != nil {
		api.WriteBadRequest(w, err.Error(), r.URL.Path)
		return
	}

	_, err = s.sessions.StartImage(data, mimeType)
	s.writeStarted(w, r, err)
}

// decodeImage accepts raw base64 or a data URL; a data URL's media type wins
// over mimeType.
func decodeImage(image, mimeType string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(image, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("malformed data URL")
		}
		if mt, _, _ := strings.Cut(meta, ";"); mt != "" {
			mimeType = mt
		}
		image = payload
	}
	if image == "" {
		return nil, "", errors.New("image is required")
	}

	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return nil, "", fmt.Errorf("image is not valid base64: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

type voiceSearchRequest struct {
	Transcript string `json:"transcript"`
}

func (s *server) startVoiceSearch(w http.ResponseWriter, r *http.Request) {
	var req voiceSearchRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteBadRequest(w, err.Error(), r.URL.Path)
		return
	}
	_, err := s.sessions.StartVoice(req.Transcript)
	s.writeStarted(w, r, err)
}

type barcodeSearchRequest struct {
	Code string `json:"code"`
}

func (s *server) startBarcodeSearch(w http.ResponseWriter, r *http.Request) {
	var req barcodeSearchRequest
	// The scanner is simulated, so an empty body still scans.
	if r.ContentLength != 0 {
		if err := api.DecodeJSON(w, r, &req); err != nil {
			api.WriteBadRequest(w, err.Error(), r.URL.Path)
			return
		}
	}
	_, err := s.sessions.StartBarcode(req.Code)
	s.writeStarted(w, r, err)
}

func (s *server) cancelSearch(w http.ResponseWriter, r *http.Request) {
	cancelled := s.sessions.Cancel()
	api.WriteJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (s *server) history(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.state.History())
}

func (s *server) favorites(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.state.Favorites())
}

func (s *server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	var p models.ProductRecord
	if err := api.DecodeJSON(w, r, &p); err != nil {
		api.WriteBadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if p.ID == "" {
		api.WriteBadRequest(w, "product id is required", r.URL.Path)
		return
	}

	on, err := s.state.ToggleFavorite(&p)
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"id": p.ID, "favorite": on})
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.state.Stats())
}

func (s *server) upgradePremium(w http.ResponseWriter, r *http.Request) {
	s.updateStats(w, r, s.state.UpgradePremium)
}

func (s *server) addReferral(w http.ResponseWriter, r *http.Request) {
	s.updateStats(w, r, s.state.AddReferral)
}

func (s *server) updateStats(w http.ResponseWriter, r *http.Request, update func() error) {
	if err := update(); err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	api.WriteJSON(w, http.StatusOK, s.state.Stats())
}

type chatRequest struct {
	Product  *models.ProductRecord `json:"product"`
	History  []models.ChatMessage  `json:"history"`
	Question string                `json:"question"`
}

func (s *server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteBadRequest(w, err.Error(), r.URL.Path)
		return
	}

	answer, err := s.resolver.Chat(r.Context(), req.Product, req.History, req.Question)
	if err != nil {
		writeResolveError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, models.ChatMessage{Role: models.RoleModel, Text: answer})
}
