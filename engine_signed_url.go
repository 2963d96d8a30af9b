package gatekeeper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper/filestore"
	"github.com/MrEthical07/gatekeeper/internal"
	"github.com/MrEthical07/gatekeeper/store"
)

// GrantDownload persists a download capability for filePath and returns the
// packed link token. A zero ttl selects SignedURL.DefaultTTL. Absolute or
// traversing paths return ErrInvalidInput.
func (e *Engine) GrantDownload(ctx context.Context, filePath, fileType string, ttl time.Duration) (*DownloadLink, error) {
	clean, err := filestore.CleanPath(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if ttl <= 0 {
		ttl = e.config.SignedURL.DefaultTTL
	}
	if ttl > e.config.SignedURL.MaxTTL {
		return nil, fmt.Errorf("%w: ttl exceeds %s", ErrInvalidInput, e.config.SignedURL.MaxTTL)
	}

	signature, err := internal.NewToken()
	if err != nil {
		return nil, unavailable("grant download", err)
	}

	now := e.now()
	// The envelope carries milliseconds; store the same precision.
	expiresAt := now.Add(ttl).Truncate(time.Millisecond).UTC()
	entry := &store.SignedURL{
		Signature: signature,
		FilePath:  clean,
		FileType:  strings.TrimPrefix(strings.ToLower(fileType), "."),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := e.store.CreateSignedURL(ctx, entry); err != nil {
		return nil, unavailable("grant download", err)
	}

	e.metricInc(MetricDownloadGranted)
	e.emitAudit(ctx, auditEventDownloadGranted, true, "", "", nil, func() map[string]string {
		return map[string]string{"path": clean}
	})
	return &DownloadLink{
		Token:     internal.PackSignedURL(clean, expiresAt, signature),
		Signature: signature,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateDownload resolves a link token. Links stay valid for repeated use
// until now reaches their expiry.
func (e *Engine) ValidateDownload(ctx context.Context, token string) (*DownloadTarget, error) {
	target, err := e.validateDownload(ctx, token)
	if err != nil {
		e.metricInc(MetricDownloadRejected)
		e.emitAudit(ctx, auditEventDownloadRejected, false, "", "", err, nil)
		return nil, err
	}
	return target, nil
}

func (e *Engine) validateDownload(ctx context.Context, token string) (*DownloadTarget, error) {
	parts, ok := internal.UnpackSignedURL(token)
	if !ok {
		return nil, ErrLinkInvalid
	}

	entry, err := e.store.SignedURLBySignature(ctx, parts.Signature)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Expired entries are purged, so a past expiry still reads as expired.
			if !e.now().Before(parts.ExpiresAt) {
				return nil, ErrLinkExpired
			}
			return nil, ErrLinkInvalid
		}
		return nil, unavailable("validate download", err)
	}
	if entry.FilePath != parts.Path || entry.ExpiresAt.UnixMilli() != parts.ExpiresAt.UnixMilli() {
		return nil, ErrLinkInvalid
	}

	if !e.now().Before(entry.ExpiresAt) {
		if err := e.store.DeleteSignedURL(ctx, entry.Signature); err != nil && !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("expired link purge failed", zap.Error(err))
		}
		return nil, ErrLinkExpired
	}

	return &DownloadTarget{
		FilePath:  entry.FilePath,
		FileType:  entry.FileType,
		ExpiresAt: entry.ExpiresAt,
	}, nil
}

// OpenDownload validates token and opens the file it grants. The file is located
// from the stored entry only; downloadName is sanitized and used solely as the
// presented filename. A missing file returns ErrFileGone.
func (e *Engine) OpenDownload(ctx context.Context, token, downloadName string) (*Download, error) {
	target, err := e.ValidateDownload(ctx, token)
	if err != nil {
		return nil, err
	}
	if e.files == nil {
		return nil, ErrEngineNotReady
	}

	obj, err := e.files.Open(ctx, target.FilePath)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			err = ErrFileGone
		case errors.Is(err, filestore.ErrInvalidPath):
			err = ErrLinkInvalid
		default:
			err = unavailable("open download", err)
		}
		e.metricInc(MetricDownloadRejected)
		e.emitAudit(ctx, auditEventDownloadRejected, false, "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricDownloadServed)
	return &Download{
		Body:        obj.Body,
		Size:        obj.Size,
		ContentType: obj.ContentType,
		ModTime:     obj.ModTime,
		Filename:    downloadFilename(downloadName, target),
	}, nil
}

// downloadFilename keeps letters, digits, dot, dash, underscore and space, and
// appends the declared extension when it is missing.
func downloadFilename(requested string, target *DownloadTarget) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '.', r == '-', r == '_', r == ' ':
			return r
		default:
			return -1
		}
	}, path.Base(strings.ReplaceAll(requested, "\\", "/")))
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		name = path.Base(target.FilePath)
	}
	if target.FileType != "" && !strings.HasSuffix(strings.ToLower(name), "."+target.FileType) {
		name += "." + target.FileType
	}
	return name
}
