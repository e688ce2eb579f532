// Package server exposes a Phoneticizer over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ieee0824/g2p-go/decoder"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/internal/mathutil"
)

var log = logging.WithComponent("server")

// Limits on a single request.
const (
	MaxNBest = 100
	MaxWords = 1000
)

// Phoneticizer is the decoding surface the handlers need.
type Phoneticizer interface {
	Phoneticize(ctx context.Context, word string, n int) ([]decoder.Path, error)
	PhoneticizeAll(ctx context.Context, words []string, n, workers int) ([][]decoder.Path, error)
}

// Pronunciation is one ranked pronunciation in a response.
type Pronunciation struct {
	Phonemes string  `json:"phonemes"`
	Cost     float64 `json:"cost"`
}

// WordResult holds the pronunciations of one word.
type WordResult struct {
	Word           string          `json:"word"`
	Pronunciations []Pronunciation `json:"pronunciations"`
}

// BatchRequest is the body of POST /phoneticize.
type BatchRequest struct {
	Words []string `json:"words"`
	N     int      `json:"n"`
}

// BatchResponse is the reply to POST /phoneticize.
type BatchResponse struct {
	Results []WordResult `json:"results"`
}

// Handlers serves G2P requests.
type Handlers struct {
	g2p      Phoneticizer
	defaultN int
	version  string
}

// New builds the echo instance with all routes registered.
func New(p Phoneticizer, defaultN int, version string) *echo.Echo {
	h := &Handlers{g2p: p, defaultN: defaultN, version: version}
	if h.defaultN < 1 {
		h.defaultN = 1
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.WithField("request_id", v.RequestID).
				Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.GET("/health", h.Health)
	e.GET("/phoneticize", h.Phoneticize)
	e.POST("/phoneticize", h.PhoneticizeBatch)
	return e
}

// Health reports liveness.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

func (h *Handlers) nbest(n int) (int, error) {
	if n == 0 {
		return h.defaultN, nil
	}
	if n < 0 || n > MaxNBest {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "n must be between 1 and "+strconv.Itoa(MaxNBest))
	}
	return n, nil
}

// Phoneticize handles GET /phoneticize?word=W&n=N.
func (h *Handlers) Phoneticize(c echo.Context) error {
	word := strings.TrimSpace(c.QueryParam("word"))
	if word == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing word")
	}
	n := 0
	if raw := c.QueryParam("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "n must be an integer")
		}
		n = v
	}
	n, err := h.nbest(n)
	if err != nil {
		return err
	}

	paths, err := h.g2p.Phoneticize(c.Request().Context(), word, n)
	if err != nil {
		log.WithField("request_id", requestID(c)).Errorf("phoneticize %q: %v", word, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "decoding failed")
	}
	return c.JSON(http.StatusOK, result(word, paths))
}

// PhoneticizeBatch handles POST /phoneticize.
func (h *Handlers) PhoneticizeBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Words) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing words")
	}
	if len(req.Words) > MaxWords {
		return echo.NewHTTPError(http.StatusBadRequest, "too many words")
	}
	n, err := h.nbest(req.N)
	if err != nil {
		return err
	}

	all, err := h.g2p.PhoneticizeAll(c.Request().Context(), req.Words, n, 0)
	if err != nil {
		log.WithField("request_id", requestID(c)).Errorf("phoneticize batch: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "decoding failed")
	}
	resp := BatchResponse{Results: make([]WordResult, len(req.Words))}
	for i, w := range req.Words {
		resp.Results[i] = result(w, all[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func result(word string, paths []decoder.Path) WordResult {
	r := WordResult{Word: word, Pronunciations: make([]Pronunciation, len(paths))}
	for i, p := range paths {
		r.Pronunciations[i] = Pronunciation{Phonemes: p.String(), Cost: mathutil.Round(float64(p.Cost), 4)}
	}
	return r
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
