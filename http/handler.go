package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sagarc03/storegate"
)

// Service is the gateway surface served over HTTP. *storegate.Service and
// *client.Client both implement it.
type Service interface {
	IssueGrant(ctx context.Context, container, object string) (storegate.AccessGrant, error)
	Upload(ctx context.Context, container, object string, payload io.Reader) (storegate.UploadResult, error)
	SaveCustomer(ctx context.Context, firstName, lastName, email, phoneNumber string) (string, error)
	GetCustomer(ctx context.Context, partitionKey, rowKey string) (storegate.CustomerRecord, error)
}

// CORSConfig configures cross-origin requests to the API routes.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// HandlerConfig holds the optional parts of the HTTP surface.
type HandlerConfig struct {
	CORS CORSConfig
	// MaxUploadSize caps upload bodies in bytes; 0 means unlimited.
	MaxUploadSize int64
	// Verifier enables the grant-authenticated /objects routes.
	Verifier RequestVerifier
	// Objects serves GET /objects; requires Verifier.
	Objects storegate.ObjectReader
	// Metrics is mounted at MetricsPath, or /metrics, when set.
	Metrics     http.Handler
	MetricsPath string
}

// SaveCustomerRequest is the body of POST /api/storage/customer/save. The
// same fields are accepted as query or form values.
type SaveCustomerRequest struct {
	Name        string `json:"name" validate:"max=256"`
	Surname     string `json:"surname" validate:"max=256"`
	Email       string `json:"email" validate:"max=256"`
	PhoneNumber string `json:"phoneNumber" validate:"max=64"`
}

// SaveCustomerResponse carries the composite key of a saved customer.
type SaveCustomerResponse struct {
	PartitionKey string `json:"partition_key"`
	RowKey       string `json:"row_key"`
}

// Handler provides HTTP handlers for the storage gateway.
type Handler struct {
	config   HandlerConfig
	service  Service
	validate *validator.Validate
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:   *config,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Router returns an http.Handler with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)
	if h.config.Metrics != nil {
		path := h.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, h.config.Metrics)
	}

	r.Route("/api/storage", func(r chi.Router) {
		r.Get("/blob/{container}/*", h.handleGrant)
		r.With(MaxBodyMiddleware(h.config.MaxUploadSize)).Post("/upload", h.handleUpload)
		r.Post("/customer/save", h.handleSaveCustomer)
		r.Get("/customer/{partitionKey}/{rowKey}", h.handleGetCustomer)
	})

	if h.config.Verifier != nil {
		r.Route("/objects/{container}", func(r chi.Router) {
			r.Use(GrantMiddleware(h.config.Verifier))
			r.With(MaxBodyMiddleware(h.config.MaxUploadSize)).Put("/*", h.handlePutObject)
			if h.config.Objects != nil {
				r.Get("/*", h.handleGetObject)
			}
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	grant, err := h.service.IssueGrant(r.Context(), chi.URLParam(r, "container"), chi.URLParam(r, "*"))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, grant)
}

// handleUpload streams the first "file" part of a multipart body into the
// container named by the containerName query parameter. The object name is
// the objectName query parameter, or the part's file name when absent.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	container := r.URL.Query().Get("containerName")
	objectName := r.URL.Query().Get("objectName")
	if container == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "containerName is required")
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Expected a multipart/form-data body")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, "invalid_input", ErrMissingFile.Error())
			return
		}
		if err != nil {
			HandleError(w, fmt.Errorf("read multipart: %w: %w", storegate.ErrInvalidInput, err))
			return
		}

		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		name := objectName
		if name == "" {
			name = partFileName(part)
		}

		result, err := h.service.Upload(r.Context(), container, name, part)
		_ = part.Close()
		if err != nil {
			HandleError(w, err)
			return
		}

		_ = WriteJSON(w, http.StatusOK, result)
		return
	}
}

// partFileName returns the raw filename parameter of the part's
// Content-Disposition. Part.FileName strips directories, which would flatten
// nested object names.
func partFileName(part *multipart.Part) string {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

func (h *Handler) handleSaveCustomer(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSaveCustomer(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		HandleError(w, fmt.Errorf("%w: %w", storegate.ErrInvalidInput, err))
		return
	}

	rowKey, err := h.service.SaveCustomer(r.Context(), req.Name, req.Surname, req.Email, req.PhoneNumber)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, SaveCustomerResponse{
		PartitionKey: storegate.PartitionKey(req.Name, req.Surname),
		RowKey:       rowKey,
	})
}

func decodeSaveCustomer(r *http.Request) (SaveCustomerRequest, error) {
	var req SaveCustomerRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return SaveCustomerRequest{}, fmt.Errorf("decode customer: %w: %w", storegate.ErrInvalidInput, err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return SaveCustomerRequest{}, fmt.Errorf("parse customer form: %w: %w", storegate.ErrInvalidInput, err)
	}

	req.Name = r.Form.Get("name")
	req.Surname = r.Form.Get("surname")
	req.Email = r.Form.Get("email")
	req.PhoneNumber = r.Form.Get("phoneNumber")

	return req, nil
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetCustomer(r.Context(), chi.URLParam(r, "partitionKey"), chi.URLParam(r, "rowKey"))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handlePutObject(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Upload(r.Context(), chi.URLParam(r, "container"), chi.URLParam(r, "*"), r.Body)
	if err != nil {
		HandleError(w, err)
		return
	}

	if result.ETag != "" {
		w.Header().Set("ETag", `"`+result.ETag+`"`)
	}
	_ = WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGetObject(w http.ResponseWriter, r *http.Request) {
	ref := storegate.ObjectRef{Container: chi.URLParam(r, "container"), Name: chi.URLParam(r, "*")}

	content, modTime, err := h.config.Objects.Open(r.Context(), ref)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	http.ServeContent(w, r, ref.Name, modTime, content)
}
