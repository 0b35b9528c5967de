// Package server exposes the calculator and the weight administration over
// HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/pawn-calculator/internal/auth"
	"github.com/iwvelando/pawn-calculator/internal/calculator"
	"github.com/iwvelando/pawn-calculator/internal/metrics"
	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/format"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
	"github.com/iwvelando/pawn-calculator/pkg/output"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
	"github.com/iwvelando/pawn-calculator/pkg/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// RequestIDHeader carries the request id on every response.
const RequestIDHeader = "X-Request-ID"

// WeightProvider serves and updates the weight table.
type WeightProvider interface {
	Snapshot() rates.WeightTable
	UsingDefaults() bool
	Update(ctx context.Context, update rates.WeightTable) (rates.WeightTable, error)
}

// Dependencies are the collaborators of the handler. Verifier, Tokens and
// LoginLimiter may be nil, which disables the admin endpoints.
type Dependencies struct {
	Logger        *zap.Logger
	Calculator    *calculator.Service
	Weights       WeightProvider
	Verifier      auth.Verifier
	Tokens        *auth.TokenIssuer
	LoginLimiter  *RateLimiter
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	MaxUploadSize int64
	Version       string
}

type handler struct {
	logger        *zap.Logger
	calculator    *calculator.Service
	weights       WeightProvider
	verifier      auth.Verifier
	tokens        *auth.TokenIssuer
	loginLimiter  *RateLimiter
	metrics       *metrics.Metrics
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the calculator API.
func NewHandler(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := deps.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(deps.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &handler{
		logger:        logger,
		calculator:    deps.Calculator,
		weights:       deps.Weights,
		verifier:      deps.Verifier,
		tokens:        deps.Tokens,
		loginLimiter:  deps.LoginLimiter,
		metrics:       deps.Metrics,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
	}

	mux := http.NewServeMux()

	// Calculation API
	mux.Handle("/api/calculate", h.instrument("/api/calculate", h.handleCalculate))
	mux.Handle("/api/options", h.instrument("/api/options", h.handleOptions))
	mux.Handle("/api/weights", h.instrument("/api/weights", h.handleWeights))

	// Weight administration
	mux.Handle("/api/admin/login", h.instrument("/api/admin/login", h.handleLogin))
	mux.Handle("/api/admin/weights", h.instrument("/api/admin/weights", h.requireAdmin(h.handleUpdateWeights)))

	// Metadata
	mux.Handle("/api/version", h.instrument("/api/version", h.handleVersion))
	mux.Handle("/healthz", h.instrument("/healthz", h.handleHealth))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return withRequestID(mux)
}

type calculateRequest struct {
	Collateral    string  `json:"collateral"`
	VehicleKind   string  `json:"vehicleKind,omitempty"`
	VehicleUsage  string  `json:"vehicleUsage,omitempty"`
	VehicleModel  string  `json:"vehicleModel,omitempty"`
	CheckKind     string  `json:"checkKind,omitempty"`
	CheckAmount   float64 `json:"checkAmount,omitempty"`
	CheckTermDays int     `json:"checkTermDays,omitempty"`
	Principal     float64 `json:"principal"`
	Periods       int     `json:"periods"`
	Repayment     string  `json:"repayment"`
}

type calculateResponse struct {
	Collateral          string        `json:"collateral"`
	Principal           float64       `json:"principal"`
	Periods             int           `json:"periods"`
	Repayment           string        `json:"repayment"`
	RatePercent         float64       `json:"ratePercent"`
	Rate                string        `json:"rate"`
	Factors             []factorView  `json:"factors"`
	Schedule            []scheduleRow `json:"schedule"`
	TotalPaid           float64       `json:"totalPaid"`
	TotalPaidDisplay    string        `json:"totalPaidDisplay"`
	CSV                 string        `json:"csv"`
	UsingDefaultWeights bool          `json:"usingDefaultWeights"`
	Duration            string        `json:"duration"`
}

type factorView struct {
	Table      string  `json:"table"`
	Key        string  `json:"key"`
	Multiplier float64 `json:"multiplier"`
	Matched    bool    `json:"matched"`
}

type scheduleRow struct {
	Period           int     `json:"period"`
	Payment          float64 `json:"payment"`
	Interest         float64 `json:"interest"`
	Principal        float64 `json:"principal"`
	RemainingBalance float64 `json:"remainingBalance"`
	Display          rowView `json:"display"`
}

type rowView struct {
	Payment          string `json:"payment"`
	Interest         string `json:"interest"`
	Principal        string `json:"principal"`
	RemainingBalance string `json:"remainingBalance"`
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}

	start := time.Now()
	var req calculateRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	request, err := buildLoanRequest(req)
	if err != nil {
		h.respondCalculationError(w, err, op)
		return
	}

	result, err := h.calculator.Calculate(r.Context(), request)
	if err != nil {
		h.respondCalculationError(w, err, op)
		return
	}

	var csvBuf bytes.Buffer
	report := output.Report{
		Collateral: request.Collateral.Label(),
		Principal:  request.Principal,
		Periods:    request.Periods,
		Mode:       request.Mode,
		Result:     result.Calculation,
	}
	if err := output.CsvFormat(&csvBuf, report); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render schedule: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, buildCalculateResponse(result, csvBuf.String(), h.weights.UsingDefaults(), time.Since(start)))
}

func buildLoanRequest(req calculateRequest) (rates.LoanRequest, error) {
	collateral, err := rates.ParseCollateral(strings.TrimSpace(req.Collateral), rates.CollateralDetails{
		VehicleKind:   strings.TrimSpace(req.VehicleKind),
		VehicleUsage:  strings.TrimSpace(req.VehicleUsage),
		VehicleModel:  strings.TrimSpace(req.VehicleModel),
		CheckKind:     strings.TrimSpace(req.CheckKind),
		CheckAmount:   req.CheckAmount,
		CheckTermDays: req.CheckTermDays,
	})
	if err != nil {
		return rates.LoanRequest{}, err
	}

	mode, err := loans.ParseRepaymentMode(strings.TrimSpace(req.Repayment))
	if err != nil {
		return rates.LoanRequest{}, err
	}

	return rates.LoanRequest{
		Collateral: collateral,
		Principal:  req.Principal,
		Periods:    req.Periods,
		Mode:       mode,
	}, nil
}

func buildCalculateResponse(result calculator.Result, csv string, usingDefaults bool, elapsed time.Duration) calculateResponse {
	resp := calculateResponse{
		Collateral:          result.Request.Collateral.Label(),
		Principal:           result.Request.Principal,
		Periods:             result.Request.Periods,
		Repayment:           result.Request.Mode.Label(),
		RatePercent:         result.Composition.Rate,
		Rate:                format.Rate(result.Composition.Rate),
		Factors:             make([]factorView, 0, len(result.Composition.Factors)),
		Schedule:            make([]scheduleRow, 0, len(result.Calculation.Schedule)),
		TotalPaid:           result.Calculation.TotalPaid,
		TotalPaidDisplay:    format.Currency(result.Calculation.TotalPaid),
		CSV:                 csv,
		UsingDefaultWeights: usingDefaults,
		Duration:            elapsed.String(),
	}

	for _, f := range result.Composition.Factors {
		resp.Factors = append(resp.Factors, factorView(f))
	}
	for _, row := range result.Calculation.Schedule {
		resp.Schedule = append(resp.Schedule, scheduleRow{
			Period:           row.Period,
			Payment:          row.Payment,
			Interest:         row.Interest,
			Principal:        row.Principal,
			RemainingBalance: row.RemainingBalance,
			Display: rowView{
				Payment:          format.Currency(row.Payment),
				Interest:         format.Currency(row.Interest),
				Principal:        format.Currency(row.Principal),
				RemainingBalance: format.Currency(row.RemainingBalance),
			},
		})
	}
	return resp
}

func (h *handler) respondCalculationError(w http.ResponseWriter, err error, op string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, loans.ErrCalculationDiverged):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, loans.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	h.logger.Debug("calculation error detail",
		zap.String("op", op),
		zap.Error(err),
	)
	h.writeErrorDetail(w, status, calculator.UserMessage(err), err.Error(), op)
}

func (h *handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	h.writeJSON(w, http.StatusOK, calculator.Options())
}

func (h *handler) handleWeights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}

	snapshot := h.weights.Snapshot()
	if r.URL.Query().Get("format") == "yaml" {
		data, err := yaml.Marshal(snapshot)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode weights: %v", err), "server.handleWeights")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleLogin"
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}
	if !h.adminEnabled() {
		h.respondErrorWithOp(w, http.StatusNotFound, "admin is not enabled", op)
		return
	}

	if h.loginLimiter != nil && !h.loginLimiter.Allow(clientIP(r)) {
		h.respondErrorWithOp(w, http.StatusTooManyRequests, "too many login attempts, try again later", op)
		return
	}

	var req loginRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	if err := h.verifier.Verify(r.Context(), req.Username, req.Password); err != nil {
		status := http.StatusUnauthorized
		msg := "invalid username or password"
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			status = http.StatusInternalServerError
			msg = "failed to verify credentials"
		}
		h.logger.Warn("admin login rejected",
			zap.String("op", op),
			zap.String("username", req.Username),
			zap.String("client", clientIP(r)),
		)
		h.respondErrorWithOp(w, status, msg, op)
		return
	}

	token, expires, err := h.tokens.Issue(strings.ToLower(req.Username))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to issue token: %v", err), op)
		return
	}

	h.logger.Info("admin logged in",
		zap.String("op", op),
		zap.String("username", req.Username),
	)
	h.writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

type adminContextKey struct{}

func (h *handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "server.requireAdmin"
		if !h.adminEnabled() {
			h.respondErrorWithOp(w, http.StatusNotFound, "admin is not enabled", op)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pawn-calculator"`)
			h.respondErrorWithOp(w, http.StatusUnauthorized, "missing bearer token", op)
			return
		}

		username, err := h.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pawn-calculator", error="invalid_token"`)
			h.respondErrorWithOp(w, http.StatusUnauthorized, "invalid or expired token", op)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), adminContextKey{}, username)))
	}
}

func (h *handler) handleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateWeights"
	if r.Method != http.MethodPut {
		h.methodNotAllowed(w, http.MethodPut)
		return
	}

	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}

	if err := validation.ValidateWeightUpdate(body); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	var update rates.WeightTable
	if err := json.Unmarshal(body, &update); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode weights: %v", err), op)
		return
	}

	table, err := h.weights.Update(r.Context(), update)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, loans.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}

	username, _ := r.Context().Value(adminContextKey{}).(string)
	h.logger.Info("weights updated",
		zap.String("op", op),
		zap.String("username", username),
		zap.Float64("initial_rate", table.InitialRate),
	)
	h.writeJSON(w, http.StatusOK, table)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.weights.UsingDefaults() {
		status = "degraded"
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *handler) adminEnabled() bool {
	return h.verifier != nil && h.tokens != nil
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op)
		return nil, false
	}
	return body, true
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, op string) bool {
	body, ok := h.readBody(w, r, op)
	if !ok {
		return false
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.writeErrorDetail(w, status, msg, "", op)
}

func (h *handler) writeErrorDetail(w http.ResponseWriter, status int, msg, detail, op string) {
	level := h.logger.Warn
	if status >= http.StatusInternalServerError {
		level = h.logger.Error
	}
	level("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
		zap.String("request_id", w.Header().Get(RequestIDHeader)),
	)

	payload := map[string]string{"error": msg}
	if detail != "" {
		payload["detail"] = detail
	}
	h.writeJSON(w, status, payload)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *handler) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.metrics.RequestServed(route, strconv.Itoa(rec.status))
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
