// Package httphandler implements the airdrop API endpoints.
package httphandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"

	"solana-airdrop/internal/airdrop"
	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/reporting"
	"solana-airdrop/internal/serve/httperror"
	"solana-airdrop/internal/serve/middleware"
	"solana-airdrop/internal/storage"
)

const (
	// IdempotencyKeyHeader carries the caller's idempotency key.
	IdempotencyKeyHeader = "Idempotency-Key"

	maxJSONBodyBytes = 1 << 20
	maxCSVBytes      = 10 << 20
)

// AirdropService is the orchestrator as seen by the HTTP layer.
type AirdropService interface {
	ProcessAirdrop(ctx context.Context, recipients []domain.ValidatedRecipient, opts airdrop.ProcessOptions) (*domain.AirdropResult, error)
	GetRun(ctx context.Context, id string) (*domain.AirdropRun, error)
	ListTransfers(ctx context.Context, runID string) ([]*domain.TransferRecord, error)
}

var _ AirdropService = (*airdrop.Service)(nil)

type AirdropHandler struct {
	Service AirdropService
}

type airdropRequest struct {
	Recipients json.RawMessage `json:"recipients"`
}

// PostAirdrop handles POST /api/airdrop.
func (h AirdropHandler) PostAirdrop(rw http.ResponseWriter, req *http.Request) {
	var body airdropRequest
	dec := json.NewDecoder(http.MaxBytesReader(rw, req.Body, maxJSONBodyBytes))
	if err := dec.Decode(&body); err != nil {
		httperror.BadRequest("Invalid JSON body", err).Render(rw)
		return
	}

	raw := bytes.TrimSpace(body.Recipients)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		httperror.BadRequest("Recipients are required", nil).Render(rw)
		return
	}
	if raw[0] != '[' {
		httperror.BadRequest("recipients must be an array", nil).Render(rw)
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		httperror.BadRequest("recipients must be an array", err).Render(rw)
		return
	}

	recipients := make([]domain.RecipientRequest, len(items))
	for i, item := range items {
		// A malformed item stays zero-valued and is rejected by validation.
		_ = json.Unmarshal(item, &recipients[i])
	}

	h.process(rw, req, recipients)
}

// PostAirdropCSV handles POST /api/airdrop/csv with a multipart "file" field.
func (h AirdropHandler) PostAirdropCSV(rw http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(rw, req.Body, maxCSVBytes)
	file, _, err := req.FormFile("file")
	if err != nil {
		httperror.BadRequest("No file uploaded", err).Render(rw)
		return
	}
	defer file.Close()

	var rows []domain.RecipientRequest
	if err := gocsv.Unmarshal(file, &rows); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		httperror.InternalError(req.Context(), "Error parsing CSV file", err).Render(rw)
		return
	}

	recipients := make([]domain.RecipientRequest, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Address) == "" || strings.TrimSpace(row.Amount.String()) == "" {
			continue
		}
		recipients = append(recipients, row)
	}
	if len(recipients) == 0 {
		httperror.BadRequest("No valid recipients found in CSV", nil).Render(rw)
		return
	}

	h.process(rw, req, recipients)
}

func (h AirdropHandler) process(rw http.ResponseWriter, req *http.Request, raw []domain.RecipientRequest) {
	ctx := req.Context()
	log := middleware.LoggerFromContext(ctx)

	validated, validationErrs, err := airdrop.ValidateRecipients(raw)
	if err != nil {
		httperror.BadRequest(err.Error(), err).Render(rw)
		return
	}
	if len(validationErrs) > 0 {
		log.WithField("rejected", len(validationErrs)).Info("airdrop request failed validation")
		httperror.ValidationFailed(validationErrs).Render(rw)
		return
	}

	opts := airdrop.ProcessOptions{IdempotencyKey: strings.TrimSpace(req.Header.Get(IdempotencyKeyHeader))}
	result, err := h.Service.ProcessAirdrop(ctx, validated, opts)
	if err != nil {
		httperror.InternalError(ctx, err.Error(), err).Render(rw)
		return
	}

	renderJSON(rw, http.StatusOK, result)
}

type runResponse struct {
	ID             string           `json:"id"`
	Method         domain.Method    `json:"method"`
	Mint           string           `json:"mint"`
	Status         domain.RunStatus `json:"status"`
	RecipientCount int              `json:"recipientCount"`
	SuccessCount   int              `json:"successCount"`
	FailedCount    int              `json:"failedCount"`
	IdempotencyKey *string          `json:"idempotencyKey,omitempty"`
	AggregateTxRef *string          `json:"aggregateTxRef,omitempty"`
	Error          *string          `json:"error,omitempty"`
	StartedAt      int64            `json:"startedAt"`
	FinishedAt     *int64           `json:"finishedAt,omitempty"`
}

// GetRun handles GET /api/airdrop/{id}.
func (h AirdropHandler) GetRun(rw http.ResponseWriter, req *http.Request) {
	run, ok := h.loadRun(rw, req)
	if !ok {
		return
	}

	renderJSON(rw, http.StatusOK, runResponse{
		ID:             run.ID,
		Method:         run.Method,
		Mint:           run.Mint,
		Status:         run.Status,
		RecipientCount: run.RecipientCount,
		SuccessCount:   run.SuccessCount,
		FailedCount:    run.FailedCount,
		IdempotencyKey: run.IdempotencyKey,
		AggregateTxRef: run.AggregateTxRef,
		Error:          run.Error,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	})
}

// ExportTransfers handles GET /api/airdrop/{id}/transfers.csv.
func (h AirdropHandler) ExportTransfers(rw http.ResponseWriter, req *http.Request) {
	run, ok := h.loadRun(rw, req)
	if !ok {
		return
	}

	ctx := req.Context()
	records, err := h.Service.ListTransfers(ctx, run.ID)
	if err != nil {
		httperror.InternalError(ctx, "Failed to load transfers", err).Render(rw)
		return
	}

	var buf bytes.Buffer
	if err := reporting.WriteTransfersCSV(&buf, records); err != nil {
		httperror.InternalError(ctx, "Failed to write CSV", err).Render(rw)
		return
	}

	rw.Header().Set("Content-Type", "text/csv")
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", reporting.FileName(run.ID)))
	_, _ = rw.Write(buf.Bytes())
}

func (h AirdropHandler) loadRun(rw http.ResponseWriter, req *http.Request) (*domain.AirdropRun, bool) {
	ctx := req.Context()
	id := chi.URLParam(req, "id")

	run, err := h.Service.GetRun(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		httperror.NotFound("Airdrop not found", err).Render(rw)
		return nil, false
	}
	if err != nil {
		httperror.InternalError(ctx, "Failed to load airdrop", err).Render(rw)
		return nil, false
	}
	return run, true
}

func renderJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
