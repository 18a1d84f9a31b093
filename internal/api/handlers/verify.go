package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ilkin0/docguard/internal/api/types"
	"github.com/ilkin0/docguard/internal/logger"
	"github.com/ilkin0/docguard/internal/metrics"
	"github.com/ilkin0/docguard/internal/utils"
	"github.com/ilkin0/docguard/internal/verify"
)

const (
	DefaultMaxRequestBytes = 32 << 20

	maxFieldBytes = 1 << 10
)

// Protocol error messages.
const (
	msgUnsupportedContentType = "Unsupported content type. Use multipart/form-data or application/json"
	msgInvalidJSON            = "Invalid JSON body"
	msgMalformedMultipart     = "Malformed multipart body"
	msgNoFile                 = "No file provided"
	msgBodyTooLarge           = "Request body too large"
	msgMethodNotAllowed       = "Method not allowed"
	msgNotFound               = "Not found"
)

// requestError is a protocol failure with the status it is reported under.
type requestError struct {
	status int
	err    *verify.Error
}

func (e *requestError) Error() string { return e.err.Error() }

func protocolError(status int, format string, args ...any) *requestError {
	return &requestError{status: status, err: verify.Protocol(format, args...)}
}

type VerifyHandler struct {
	verifier        *verify.Verifier
	metrics         *metrics.Recorder
	maxRequestBytes int64
}

func NewVerifyHandler(verifier *verify.Verifier, recorder *metrics.Recorder, maxRequestBytes int64) *VerifyHandler {
	if maxRequestBytes <= 0 {
		maxRequestBytes = DefaultMaxRequestBytes
	}
	return &VerifyHandler{
		verifier:        verifier,
		metrics:         recorder,
		maxRequestBytes: maxRequestBytes,
	}
}

// Verify accepts either a multipart upload (full-content mode) or a JSON
// description of the file (metadata mode) and answers with the envelope.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		h.rejectRequest(w, r, "unknown", start, protocolError(http.StatusUnsupportedMediaType, msgUnsupportedContentType))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)

	var req verify.Request
	var reqErr *requestError
	switch mediaType {
	case "multipart/form-data":
		req, reqErr = h.readMultipart(r, params["boundary"])
	case "application/json":
		req, reqErr = h.readMetadata(r)
	default:
		reqErr = protocolError(http.StatusUnsupportedMediaType, msgUnsupportedContentType)
	}
	if reqErr != nil {
		h.rejectRequest(w, r, modeOf(mediaType), start, reqErr)
		return
	}

	mode := string(req.Mode())
	details, err := h.verifier.Check(req)
	if err != nil {
		if verify.IsPolicyViolation(err) {
			log.Warn("file rejected",
				slog.String("filename", filenameOf(req)),
				slog.String("mode", mode),
				slog.String("check", verify.RuleOf(err)),
				slog.String("reason", err.Error()),
				slog.String("path", metrics.PathService),
			)
			h.metrics.Observe(metrics.PathService, mode, metrics.OutcomePolicy, verify.RuleOf(err), time.Since(start))
			utils.WriteJSON(w, http.StatusUnprocessableEntity, verify.Reject(err))
			return
		}

		log.Error("verification failed",
			slog.String("mode", mode),
			slog.String("error", err.Error()),
		)
		h.metrics.Observe(metrics.PathService, mode, metrics.OutcomeInternal, "", time.Since(start))
		utils.WriteJSON(w, http.StatusInternalServerError, verify.Reject(verify.Internal()))
		return
	}

	log.Info("file verified",
		slog.String("filename", details.Filename),
		slog.String("extension", details.Extension),
		slog.String("mode", mode),
		slog.Int64("size", details.Size),
		slog.String("path", metrics.PathService),
	)
	h.metrics.Observe(metrics.PathService, mode, metrics.OutcomeValid, "", time.Since(start))
	utils.WriteJSON(w, http.StatusOK, verify.Pass(details))
}

func (h *VerifyHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	h.rejectRequest(w, r, "unknown", time.Now(), protocolError(http.StatusMethodNotAllowed, msgMethodNotAllowed))
}

func (h *VerifyHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.rejectRequest(w, r, "unknown", time.Now(), protocolError(http.StatusNotFound, msgNotFound))
}

func (h *VerifyHandler) rejectRequest(w http.ResponseWriter, r *http.Request, mode string, start time.Time, reqErr *requestError) {
	logger.FromContext(r.Context()).Warn("malformed verification request",
		slog.String("mode", mode),
		slog.Int("status", reqErr.status),
		slog.String("reason", reqErr.Error()),
	)
	h.metrics.Observe(metrics.PathService, mode, metrics.OutcomeProtocol, "", time.Since(start))
	utils.WriteJSON(w, reqErr.status, verify.Reject(reqErr.err))
}

// readMultipart streams the body part by part. Only the leading window of
// the file part is kept; the rest is counted and discarded.
func (h *VerifyHandler) readMultipart(r *http.Request, boundary string) (verify.Request, *requestError) {
	if boundary == "" {
		return nil, protocolError(http.StatusBadRequest, msgMalformedMultipart)
	}

	var (
		req       verify.ContentRequest
		haveFile  bool
		bucket    string
		mr        = multipart.NewReader(r.Body, boundary)
		headLimit = h.verifier.HeadSize()
	)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, bodyError(err, msgMalformedMultipart)
		}

		switch {
		case part.FormName() == "file" && part.FileName() != "" && !haveFile:
			head, size, err := verify.ReadContent(part, headLimit)
			if err != nil {
				part.Close()
				return nil, bodyError(err, msgMalformedMultipart)
			}
			req.Filename = part.FileName()
			req.ContentType = part.Header.Get("Content-Type")
			req.Size = size
			req.Head = head
			haveFile = true
		case part.FormName() == "bucket" || part.FormName() == "destination":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				part.Close()
				return nil, bodyError(err, msgMalformedMultipart)
			}
			if bucket == "" || part.FormName() == "bucket" {
				bucket = strings.TrimSpace(string(value))
			}
		default:
			if _, err := io.Copy(io.Discard, part); err != nil {
				part.Close()
				return nil, bodyError(err, msgMalformedMultipart)
			}
		}
		part.Close()
	}

	if !haveFile {
		return nil, protocolError(http.StatusBadRequest, msgNoFile)
	}

	if bucket == "" {
		bucket = h.verifier.Table().DefaultDestination()
	}
	req.Destination = bucket

	logger.FromContext(r.Context()).Debug("file part received",
		slog.String("filename", req.Filename),
		slog.String("declared_mime", req.ContentType),
		slog.String("detected_mime", mimetype.Detect(req.Head).String()),
		slog.Int64("size", req.Size),
		slog.String("head_xxh64", strconv.FormatUint(xxhash.Sum64(req.Head), 16)),
	)

	return req, nil
}

func (h *VerifyHandler) readMetadata(r *http.Request) (verify.Request, *requestError) {
	var body types.VerifyMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, protocolError(http.StatusBadRequest, "Invalid type for field %q", typeErr.Field)
		}
		return nil, bodyError(err, msgInvalidJSON)
	}

	if err := types.ValidateStruct(body); err != nil {
		missing, invalid := types.FieldProblems(err)
		switch {
		case len(missing) > 0:
			return nil, protocolError(http.StatusBadRequest, "Missing required fields: %s", strings.Join(missing, ", "))
		case len(invalid) > 0:
			return nil, protocolError(http.StatusBadRequest, "Invalid value for fields: %s", strings.Join(invalid, ", "))
		default:
			return nil, protocolError(http.StatusBadRequest, msgInvalidJSON)
		}
	}

	return verify.MetadataRequest{
		Filename:    body.Filename,
		ContentType: body.ContentType,
		Destination: body.Target(),
		Size:        *body.Size,
		Sample:      body.Sample(),
	}, nil
}

// bodyError reports an oversized body as 413 and anything else as 400.
func bodyError(err error, msg string) *requestError {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return protocolError(http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	}
	return &requestError{
		status: http.StatusBadRequest,
		err:    verify.Protocol("%s", msg),
	}
}

func filenameOf(req verify.Request) string {
	switch r := req.(type) {
	case verify.ContentRequest:
		return r.Filename
	case verify.MetadataRequest:
		return r.Filename
	default:
		return ""
	}
}

func modeOf(mediaType string) string {
	switch mediaType {
	case "multipart/form-data":
		return string(verify.ModeContent)
	case "application/json":
		return string(verify.ModeMetadata)
	default:
		return "unknown"
	}
}
