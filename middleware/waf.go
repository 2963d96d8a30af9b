package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/MrEthical07/gatekeeper"
)

// DefaultMaxBodyBytes bounds the body WAF buffers for scanning.
const DefaultMaxBodyBytes int64 = 1 << 20

// WAF scans the query string and the request body before the handler runs.
// Form bodies are parsed; any other body is buffered, scanned as JSON when it
// parses as JSON and as raw text otherwise, then replayed to the handler.
func WAF(engine *gatekeeper.Engine, maxBody int64, onError ErrorHandler) func(http.Handler) http.Handler {
	onError = orDefault(onError)
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}
			scanner := engine.Scanner()

			if len(r.URL.RawQuery) > 0 {
				if err := scanner.ScanValues(r.URL.Query()); err != nil {
					engine.RecordSuspiciousPayload(r.Context())
					onError(w, r, gatekeeper.ErrSuspiciousPayload)
					return
				}
			}

			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			switch mediaType {
			case "application/x-www-form-urlencoded", "multipart/form-data":
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
				if err := r.ParseMultipartForm(maxBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
					onError(w, r, gatekeeper.ErrInvalidInput)
					return
				}
				if err := scanner.ScanValues(r.PostForm); err != nil {
					engine.RecordSuspiciousPayload(r.Context())
					onError(w, r, gatekeeper.ErrSuspiciousPayload)
					return
				}
			default:
				// Handlers decode JSON whatever the declared type, so every
				// other body is scanned too.
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
				if err != nil {
					onError(w, r, gatekeeper.ErrInvalidInput)
					return
				}
				if err := scanBody(r, engine, mediaType, body); err != nil {
					onError(w, r, err)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func scanBody(r *http.Request, engine *gatekeeper.Engine, mediaType string, body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if mediaType == "application/json" || json.Valid(trimmed) {
		return engine.ScanJSON(r.Context(), trimmed)
	}
	if err := engine.Scanner().Scan(string(body)); err != nil {
		engine.RecordSuspiciousPayload(r.Context())
		return gatekeeper.ErrSuspiciousPayload
	}
	return nil
}
