package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/ilkin0/docguard/internal/api/types"
	"github.com/ilkin0/docguard/internal/client"
	"github.com/ilkin0/docguard/internal/crypto"
	"github.com/ilkin0/docguard/internal/logger"
	"github.com/ilkin0/docguard/internal/storage"
	"github.com/ilkin0/docguard/internal/utils"
)

const (
	// DefaultMaxUploadBytes sits above the largest per-type cap so that
	// oversized files reach verification and get the size message.
	DefaultMaxUploadBytes = 16 << 20

	multipartMemory = 10 << 20
)

type DocumentVerifier interface {
	Check(ctx context.Context, f client.File, destination string) client.Report
}

type ObjectStore interface {
	BucketFor(destination string) string
	Put(ctx context.Context, obj storage.Object) (storage.Stored, error)
}

type DocumentHandler struct {
	verifier           DocumentVerifier
	store              ObjectStore
	defaultDestination string
	maxUploadBytes     int64
}

func NewDocumentHandler(verifier DocumentVerifier, store ObjectStore, defaultDestination string, maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &DocumentHandler{
		verifier:           verifier,
		store:              store,
		defaultDestination: defaultDestination,
		maxUploadBytes:     maxUploadBytes,
	}
}

// Upload verifies the submitted file and stores it only when it passes.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.Error(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		utils.Error(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	destination := h.destinationOf(r)

	report := h.verifier.Check(ctx, client.FromFileHeader(header), destination)
	if report.Unverifiable() {
		utils.Error(w, http.StatusServiceUnavailable, client.UnverifiableMessage)
		return
	}
	if !report.Result.Valid {
		utils.Error(w, http.StatusUnprocessableEntity, report.Result.Error)
		return
	}

	digest, detected, err := inspect(file)
	if err != nil {
		log.Error("failed to inspect document",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		utils.Error(w, http.StatusInternalServerError, "Failed to store document")
		return
	}

	documentID := uuid.New().String()
	key := documentID + strings.ToLower(filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")

	stored, err := h.store.Put(ctx, storage.Object{
		Bucket:      h.store.BucketFor(destination),
		Key:         key,
		Body:        file,
		Size:        header.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": header.Filename,
			"sha256":            digest,
			"detected-mime":     detected,
			"verified-by":       report.Path,
		},
	})
	if err != nil {
		log.Error("failed to store document",
			slog.String("filename", header.Filename),
			slog.String("destination", destination),
			slog.String("error", err.Error()),
		)
		utils.Error(w, http.StatusInternalServerError, "Failed to store document")
		return
	}

	log.Info("document stored",
		slog.String("document_id", documentID),
		slog.String("bucket", stored.Bucket),
		slog.String("key", stored.Key),
		slog.String("verified_by", report.Path),
	)

	utils.Created(w, types.DocumentUploadResponse{
		DocumentID:  documentID,
		Filename:    header.Filename,
		Bucket:      stored.Bucket,
		Key:         stored.Key,
		Size:        stored.Size,
		ContentType: contentType,
		SHA256:      digest,
		VerifiedBy:  report.Path,
		UploadedAt:  time.Now().UTC(),
	})
}

func (h *DocumentHandler) destinationOf(r *http.Request) string {
	if b := r.FormValue("bucket"); b != "" {
		return b
	}
	if d := r.FormValue("destination"); d != "" {
		return d
	}
	return h.defaultDestination
}

// inspect hashes the file and sniffs its type, leaving it rewound.
func inspect(file multipart.File) (digest, detected string, err error) {
	digest, err = crypto.HashReader(file)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash document: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", "", fmt.Errorf("failed to rewind document: %w", err)
	}

	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "", "", fmt.Errorf("failed to detect document type: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", "", fmt.Errorf("failed to rewind document: %w", err)
	}

	return digest, mt.String(), nil
}
