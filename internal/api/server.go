package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chatguard/internal/classifier"
	"chatguard/internal/domain"
	"chatguard/internal/queue"
	"chatguard/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type Server struct {
	echo      *echo.Echo
	labeler   classifier.Labeler
	repo      storage.MessageRepository
	publisher queue.Publisher
	sse       *SSEBroker
}

type SSEBroker struct {
	clients map[chan string]bool
	mu      sync.RWMutex
}

func NewSSEBroker() *SSEBroker {
	return &SSEBroker{clients: make(map[chan string]bool)}
}

func (b *SSEBroker) Subscribe() chan string {
	ch := make(chan string, 10)
	b.mu.Lock()
	b.clients[ch] = true
	b.mu.Unlock()
	return ch
}

func (b *SSEBroker) Unsubscribe(ch chan string) {
	b.mu.Lock()
	delete(b.clients, ch)
	close(ch)
	b.mu.Unlock()
}

// Broadcast drops the message for subscribers whose buffer is full.
func (b *SSEBroker) Broadcast(msg string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Texts accepts either a single string or an array of strings.
type Texts []string

func (t *Texts) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*t = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*t = Texts{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("texts must be a string or an array of strings")
	}
	*t = many
	return nil
}

type LabelRequest struct {
	Texts Texts `json:"texts"`
}

// NewServer wires the HTTP API. publisher may be nil, which disables ingest.
func NewServer(l classifier.Labeler, repo storage.MessageRepository, p queue.Publisher) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:      e,
		labeler:   l,
		repo:      repo,
		publisher: p,
		sse:       NewSSEBroker(),
	}

	s.routes()

	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.POST("/label_messages", s.labelMessages)

	s.echo.GET("/api/stats", s.stats)
	s.echo.GET("/api/messages", s.getMessages)
	s.echo.GET("/api/messages/:id", s.getMessage)
	s.echo.POST("/api/messages", s.ingestMessage)
	s.echo.GET("/api/events", s.events)
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}

func (s *Server) Broadcast(msg string) {
	s.sse.Broadcast(msg)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) labelMessages(c echo.Context) error {
	var req LabelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if len(req.Texts) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": classifier.ErrEmptyBatch.Error()})
	}

	verdicts, err := s.labeler.Label(c.Request().Context(), req.Texts)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, verdicts)
}

func (s *Server) stats(c echo.Context) error {
	stats, err := s.repo.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) getMessages(c echo.Context) error {
	limit := intParam(c, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := intParam(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := s.repo.FindAll(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if records == nil {
		records = []storage.Record{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) getMessage(c echo.Context) error {
	id := c.Param("id")
	rec, err := s.repo.FindByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if rec == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) ingestMessage(c echo.Context) error {
	if s.publisher == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "ingest disabled"})
	}

	var msg domain.ChatMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	msg.Channel = strings.ToLower(strings.TrimSpace(msg.Channel))
	if !msg.Platform.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown platform %q", msg.Platform)})
	}
	if msg.Channel == "" || msg.Username == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "channel and username required"})
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.ID == "" {
		msg.ID = domain.GenerateID(msg)
	}

	if err := s.publisher.Publish(c.Request().Context(), msg); err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to queue"})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"id": msg.ID})
}

func (s *Server) events(c echo.Context) error {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")

	ch := s.sse.Subscribe()
	defer s.sse.Unsubscribe(ch)

	fmt.Fprintf(c.Response(), ": ping\n\n")
	c.Response().Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case msg := <-ch:
			fmt.Fprintf(c.Response(), "event: verdict\n")
			for _, line := range strings.Split(msg, "\n") {
				fmt.Fprintf(c.Response(), "data: %s\n", line)
			}
			fmt.Fprintf(c.Response(), "\n")
			c.Response().Flush()
		}
	}
}

func intParam(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
