package gatekeeper

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/gatekeeper/filestore"
	"github.com/MrEthical07/gatekeeper/internal"
)

func TestGrantDownloadExpiryBoundary(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	link, err := env.engine.GrantDownload(ctx, "reports/q1.pdf", "PDF", 5*time.Minute)
	if err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}
	if want := env.clock.Now().Add(5 * time.Minute); !link.ExpiresAt.Equal(want) {
		t.Fatalf("expiry %v, want %v", link.ExpiresAt, want)
	}

	target, err := env.engine.ValidateDownload(ctx, link.Token)
	if err != nil {
		t.Fatalf("ValidateDownload: %v", err)
	}
	if target.FilePath != "reports/q1.pdf" || target.FileType != "pdf" {
		t.Fatalf("unexpected target %+v", target)
	}

	env.clock.Advance(5*time.Minute - time.Millisecond)
	if _, err := env.engine.ValidateDownload(ctx, link.Token); err != nil {
		t.Fatalf("link must be valid one millisecond before expiry: %v", err)
	}
	// Links are reusable until they expire.
	if _, err := env.engine.ValidateDownload(ctx, link.Token); err != nil {
		t.Fatalf("second use before expiry: %v", err)
	}

	env.clock.Advance(time.Millisecond)
	if _, err := env.engine.ValidateDownload(ctx, link.Token); !errors.Is(err, ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired at expiry, got %v", err)
	}
	// The first expired check purges the entry; later checks still see an expired link.
	if _, err := env.engine.ValidateDownload(ctx, link.Token); !errors.Is(err, ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired after purge, got %v", err)
	}
}

func TestSweptLinkStillReportsExpired(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	link, err := env.engine.GrantDownload(ctx, "reports/q1.pdf", "pdf", time.Minute)
	if err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}
	live, err := env.engine.GrantDownload(ctx, "reports/q2.pdf", "pdf", time.Hour)
	if err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}

	env.clock.Advance(2 * time.Minute)
	res, err := env.engine.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.SignedURLs != 1 {
		t.Fatalf("swept %d links, want 1", res.SignedURLs)
	}

	if _, err := env.engine.ValidateDownload(ctx, link.Token); !errors.Is(err, ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired for swept link, got %v", err)
	}
	if _, err := env.engine.ValidateDownload(ctx, live.Token); err != nil {
		t.Fatalf("unexpired link must survive the sweep: %v", err)
	}

	unknown := internal.PackSignedURL("reports/q1.pdf", env.clock.Now().Add(time.Hour), "deadbeef")
	if _, err := env.engine.ValidateDownload(ctx, unknown); !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("expected ErrLinkInvalid for an unknown live link, got %v", err)
	}
}

func TestGrantDownloadDefaultsAndLimits(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	link, err := env.engine.GrantDownload(ctx, "a.txt", "", 0)
	if err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}
	if want := env.clock.Now().Add(15 * time.Minute); !link.ExpiresAt.Equal(want) {
		t.Fatalf("expected default ttl, got %v", link.ExpiresAt)
	}

	if _, err := env.engine.GrantDownload(ctx, "a.txt", "", 25*time.Hour); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for ttl over max, got %v", err)
	}
	for _, p := range []string{"", "../secret.txt", "reports/../../etc/passwd", "/etc/passwd"} {
		if _, err := env.engine.GrantDownload(ctx, p, "", time.Minute); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("path %q: expected ErrInvalidInput, got %v", p, err)
		}
	}
}

func TestValidateDownloadRejectsTampering(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	link, err := env.engine.GrantDownload(ctx, "reports/q1.pdf", "pdf", time.Hour)
	if err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}

	tampered := []string{
		"",
		"not-base64!!",
		internal.PackSignedURL("reports/q2.pdf", link.ExpiresAt, link.Signature),
		internal.PackSignedURL("reports/q1.pdf", link.ExpiresAt.Add(time.Hour), link.Signature),
		internal.PackSignedURL("reports/q1.pdf", link.ExpiresAt, link.Signature[:len(link.Signature)-2]+"zz"),
	}
	for i, token := range tampered {
		if _, err := env.engine.ValidateDownload(ctx, token); !errors.Is(err, ErrLinkInvalid) {
			t.Fatalf("case %d: expected ErrLinkInvalid, got %v", i, err)
		}
	}

	if _, err := env.engine.ValidateDownload(ctx, link.Token); err != nil {
		t.Fatalf("original link must stay valid: %v", err)
	}
}

func TestOpenDownload(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "reports"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "reports", "q1.pdf"), []byte("%PDF-1.7 quarterly"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	local, err := filestore.NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })

	env := newTestEnv(t, nil, func(b *Builder) { b.WithFileSource(local) })
	ctx := context.Background()

	link, err := env.engine.GrantDownload(ctx, "reports/q1.pdf", "pdf", time.Hour)
	if err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}

	dl, err := env.engine.OpenDownload(ctx, link.Token, "../../Q1 report<script>")
	if err != nil {
		t.Fatalf("OpenDownload: %v", err)
	}
	body, err := io.ReadAll(dl.Body)
	_ = dl.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "%PDF-1.7 quarterly" || dl.Size != int64(len(body)) {
		t.Fatalf("unexpected download %q size %d", body, dl.Size)
	}
	if dl.Filename != "Q1 reportscript.pdf" {
		t.Fatalf("unexpected filename %q", dl.Filename)
	}

	gone, err := env.engine.GrantDownload(ctx, "reports/deleted.pdf", "pdf", time.Hour)
	if err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}
	if _, err := env.engine.OpenDownload(ctx, gone.Token, ""); !errors.Is(err, ErrFileGone) {
		t.Fatalf("expected ErrFileGone, got %v", err)
	}
}

func TestOpenDownloadWithoutSource(t *testing.T) {
	env := newTestEnv(t, nil)
	link, err := env.engine.GrantDownload(context.Background(), "a.txt", "txt", time.Minute)
	if err != nil {
		t.Fatalf("GrantDownload: %v", err)
	}
	if _, err := env.engine.OpenDownload(context.Background(), link.Token, ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestDownloadFilename(t *testing.T) {
	target := &DownloadTarget{FilePath: "reports/q1.pdf", FileType: "pdf"}
	cases := map[string]string{
		"":                     "q1.pdf",
		"summary":              "summary.pdf",
		"summary.PDF":          "summary.PDF",
		`..\..\windows\x.pdf`:  "x.pdf",
		"ann\"ual\r\n.pdf":     "annual.pdf",
		"...":                  "q1.pdf",
		"Résumé 2026":          "Résumé 2026.pdf",
	}
	for in, want := range cases {
		if got := downloadFilename(in, target); got != want {
			t.Fatalf("downloadFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
