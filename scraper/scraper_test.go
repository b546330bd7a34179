package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
)

const rosterHTML = `<html><body>
<table class="rating">
<tr><td><a href="/character/us/zul-jin/Ioannides">Ioannides</a></td><td><a href="/guild/us/zul-jin/Foo">Foo</a></td></tr>
<tr><td><a href="/character/us/thrall/Bobate%C3%A4">Bobateä</a></td></tr>
<tr><td><a href="/character/eu/silvermoon/Other">Other</a></td></tr>
<tr><td><a href="/character/us/area-52/Getrights">Getrights</a></td></tr>
<tr><td><a href="/character/us/zul-jin/Ioannides">Ioannides</a></td></tr>
</table>
<a href="/gearscore/us/">next</a>
</body></html>`

const characterHTML = `<html><body>
<div class="nav"><a class="nav_link" href="/gearscore/us/zul-jin/">US-Zul'jin</a></div>
<a href="https://worldofwarcraft.com/en-us/character/zuljin/ioannides">Armory</a>
<span class="profileBattletag">Ioann#1234</span>
<div class="charCommentary">Looking for a <b>CE</b> guild.<br>Tue/Thu raids only.<br></div>
</body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseListings(t *testing.T) {
	got, err := parseListings(strings.NewReader(rosterHTML))
	if err != nil {
		t.Fatalf("parseListings() error = %v", err)
	}

	want := []lfg.Listing{
		{Server: "zul-jin", Name: "Ioannides"},
		{Server: "thrall", Name: "Bobate%C3%A4"},
		{Server: "area-52", Name: "Getrights"},
		{Server: "zul-jin", Name: "Ioannides"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseListings() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseListingsEmpty(t *testing.T) {
	_, err := parseListings(strings.NewReader(`<html><body><a href="/gearscore/us/">x</a></body></html>`))
	if !errors.Is(err, ErrNoListings) {
		t.Errorf("parseListings() error = %v, want ErrNoListings", err)
	}
}

func TestParseProfile(t *testing.T) {
	got, err := parseProfile(strings.NewReader(characterHTML), "zul-jin")
	if err != nil {
		t.Fatalf("parseProfile() error = %v", err)
	}

	want := &Profile{
		ServerName: "Zul'jin",
		RealmSlug:  "zuljin",
		BattleTag:  "Ioann#1234",
		Comments:   "Looking for a CE guild.Tue/Thu raids only.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseProfile() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProfileDefaults(t *testing.T) {
	got, err := parseProfile(strings.NewReader(`<html><body>nothing here</body></html>`), "area-52")
	if err != nil {
		t.Fatalf("parseProfile() error = %v", err)
	}

	want := &Profile{ServerName: "area-52", RealmSlug: "area-52"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseProfile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCommentTextTruncates(t *testing.T) {
	long := strings.Repeat("é", maxCommentRunes+10)
	got := commentText(long)

	if !strings.HasSuffix(got, "...") {
		t.Errorf("commentText() = %q..., want truncation suffix", got[:20])
	}
	if n := len([]rune(got)); n != maxCommentRunes+3 {
		t.Errorf("commentText() length = %d runes, want %d", n, maxCommentRunes+3)
	}
}

func TestListingsAndProfileOverHTTP(t *testing.T) {
	var userAgent string
	mux := http.NewServeMux()
	mux.HandleFunc("/gearscore/us/", func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		if r.URL.Query().Get("lfg") != "1" {
			t.Errorf("roster request missing lfg query: %s", r.URL)
		}
		_, _ = io.WriteString(w, rosterHTML)
	})
	mux.HandleFunc("/character/us/zul-jin/Ioannides", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, characterHTML)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(srv.Client(), srv.URL+"/gearscore/us/?lfg=1&sortby=ts", testLogger()).WithBaseURL(srv.URL)
	ctx := context.Background()

	listings, err := s.Listings(ctx)
	if err != nil {
		t.Fatalf("Listings() error = %v", err)
	}
	if len(listings) != 4 {
		t.Errorf("Listings() returned %d listings, want 4", len(listings))
	}
	if !strings.HasPrefix(userAgent, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q, want browser-like", userAgent)
	}

	p, err := s.Profile(ctx, listings[0])
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.RealmSlug != "zuljin" {
		t.Errorf("Profile().RealmSlug = %q, want zuljin", p.RealmSlug)
	}
}

func TestProfileFetchFailureDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := New(srv.Client(), srv.URL, testLogger()).WithBaseURL(srv.URL)

	p, err := s.Profile(context.Background(), lfg.Listing{Server: "illidan", Name: "Denylock"})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Profile() error = %v, want HTTP 503", err)
	}
	if p == nil || p.ServerName != "illidan" || p.RealmSlug != "illidan" {
		t.Errorf("Profile() = %+v, want server defaults", p)
	}

	if _, err := s.Listings(context.Background()); !errors.As(err, &statusErr) {
		t.Errorf("Listings() error = %v, want HTTPStatusError", err)
	}
}

// TestLiveRoster checks the parser against the live roster page.
func TestLiveRoster(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("LIVE_TESTS") == "" {
		t.Skip("set LIVE_TESTS=1 to run against wowprogress.com")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	s := New(client, "", logger)

	listings, err := s.Listings(context.Background())
	if err != nil {
		t.Fatalf("Listings() error = %v", err)
	}
	t.Logf("Found %d listings, first %s", len(listings), listings[0].ID())
}
