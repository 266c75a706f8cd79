package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ProductCatalog/internal/events"
	"ProductCatalog/pkg/kit"
)

const (
	maxCreateBody = 1 << 20
	readyTimeout  = 1 * time.Second

	msgMissingFields = "Missing required fields"
	msgInvalidJSON   = "Invalid JSON body"
	msgNotFound      = "Product not found"
	msgServerError   = "server error"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Server struct {
	Store  Store
	Events events.Publisher
	Log    *zap.Logger

	// StrictValidation accepts any present, non-null field on create, so
	// a price of 0 is valid. Off by default: empty strings and 0 count
	// as missing.
	StrictValidation bool

	// WriteLimiter, when set, throttles create and delete per client IP.
	WriteLimiter *kit.IPRateLimiter
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.MethodNotAllowed(kit.MethodNotAllowed(r))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Get("/products", s.list)
	r.With(s.limitWrites).Post("/products", s.create)
	r.With(s.limitWrites).Delete("/products/{id}", s.delete)

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.serverError(w, r, "list products failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

type createReq struct {
	Name     *string  `json:"name" validate:"required"`
	Price    *float64 `json:"price" validate:"required"`
	ImageURL *string  `json:"imageUrl" validate:"required"`
}

// nonZeroFields rejects the zero value of each field.
type nonZeroFields struct {
	Name     string  `validate:"required"`
	Price    float64 `validate:"required"`
	ImageURL string  `validate:"required"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateRequest(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, msgInvalidJSON, nil)
		return
	}

	np, err := s.validateCreate(req)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, msgMissingFields, nil)
		return
	}

	p, err := s.Store.Create(r.Context(), np)
	if err != nil {
		s.serverError(w, r, "create product failed", err)
		return
	}

	s.publish(r, events.Event{Type: events.ProductCreated, ProductID: p.ID, Product: p})
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) validateCreate(req createReq) (NewProduct, error) {
	if err := validate.Struct(req); err != nil {
		return NewProduct{}, err
	}

	np := NewProduct{Name: *req.Name, Price: *req.Price, ImageURL: *req.ImageURL}
	if s.StrictValidation {
		return np, nil
	}

	if err := validate.Struct(nonZeroFields(np)); err != nil {
		return NewProduct{}, err
	}
	return np, nil
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	// An id without a leading integer can never match a stored product.
	id, ok := parseID(raw)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	ok, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		s.serverError(w, r, "delete product failed", err, zap.Int64("id", id))
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	s.publish(r, events.Event{Type: events.ProductDeleted, ProductID: id})
	kit.WriteJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Deleted product %d", id),
	})
}

// parseID reads the leading base-10 integer of raw after leading
// whitespace and ignores the rest, so "1.5" and "1abc" both mean 1.
func parseID(raw string) (int64, bool) {
	s := strings.TrimLeft(raw, " \t\n\r\f\v")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	id, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func decodeCreateRequest(w http.ResponseWriter, r *http.Request) (createReq, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)

	// An empty body decodes as {} and then fails validation.
	var req createReq
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return createReq{}, nil
		}
		return createReq{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return createReq{}, errors.New("extra data after json object")
	}

	return req, nil
}

func (s *Server) publish(r *http.Request, e events.Event) {
	if s.Events == nil {
		return
	}
	e.At = time.Now().UTC()
	if err := s.Events.Publish(r.Context(), e); err != nil {
		s.logger().Warn("publish event failed",
			zap.Error(err),
			zap.String("type", string(e.Type)),
			zap.Int64("product_id", e.ProductID),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err), zap.String("request_id", chimw.GetReqID(r.Context())))
	s.logger().Error(msg, fields...)
	kit.WriteError(w, r, http.StatusInternalServerError, msgServerError, nil)
}

func (s *Server) limitWrites(next http.Handler) http.Handler {
	if s.WriteLimiter == nil {
		return next
	}
	return s.WriteLimiter.Middleware(next)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
