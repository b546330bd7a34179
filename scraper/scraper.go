// Package scraper handles fetching and parsing WoWProgress roster and character pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
)

const (
	// DefaultListingURL is the US roster of players looking for a guild, newest first.
	DefaultListingURL = "https://www.wowprogress.com/gearscore/us/?lfg=1&sortby=ts"

	// DefaultBaseURL hosts the character pages.
	DefaultBaseURL = "https://www.wowprogress.com"

	maxCommentRunes = 800
)

var (
	characterLinkRegex = regexp.MustCompile(`^/character/us/([\w_-]+)/(.+)$`)
	armoryLinkRegex    = regexp.MustCompile(`^https://worldofwarcraft\.com/en-us/character/(?:us/)?([^/]+)/`)
	brRegex            = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// HTTPStatusError indicates a non-200 response from WoWProgress.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// ErrNoListings is returned when a roster page contains no character links.
var ErrNoListings = errors.New("no listings found")

// Profile holds the fields taken from a WoWProgress character page.
type Profile struct {
	ServerName string // Stylized realm name, e.g. "Zul'jin"
	RealmSlug  string // Armory realm slug, e.g. "zuljin"
	BattleTag  string
	Comments   string
}

// Scraper fetches and parses WoWProgress pages.
type Scraper struct {
	client     *http.Client
	logger     *slog.Logger
	listingURL string
	baseURL    string
}

// New creates a new scraper. An empty listingURL uses DefaultListingURL.
func New(client *http.Client, listingURL string, logger *slog.Logger) *Scraper {
	if listingURL == "" {
		listingURL = DefaultListingURL
	}
	return &Scraper{
		client:     client,
		logger:     logger,
		listingURL: listingURL,
		baseURL:    DefaultBaseURL,
	}
}

// WithBaseURL overrides the host used for character pages.
func (s *Scraper) WithBaseURL(baseURL string) *Scraper {
	s.baseURL = strings.TrimSuffix(baseURL, "/")
	return s
}

// Listings fetches the roster and returns listings in page order.
func (s *Scraper) Listings(ctx context.Context) ([]lfg.Listing, error) {
	var listings []lfg.Listing
	err := s.fetch(ctx, s.listingURL, "fetch_roster", func(body io.Reader) error {
		var err error
		listings, err = parseListings(body)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Roster parsed successfully", "url", s.listingURL, "listings_found", len(listings))
	return listings, nil
}

// Profile fetches a character page. Missing fields fall back to the listing's
// own server slug or to empty strings; the error reports a failed fetch.
func (s *Scraper) Profile(ctx context.Context, l lfg.Listing) (*Profile, error) {
	pageURL := fmt.Sprintf("%s/character/us/%s/%s", s.baseURL, l.Server, l.Name)

	var p *Profile
	err := s.fetch(ctx, pageURL, "fetch_character", func(body io.Reader) error {
		var err error
		p, err = parseProfile(body, l.Server)
		return err
	})
	if err != nil {
		return &Profile{ServerName: l.Server, RealmSlug: l.Server}, err
	}
	return p, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL, purpose string, parse func(io.Reader) error) error {
	s.logger.Info("HTTP request starting",
		"method", "GET",
		"url", pageURL,
		"purpose", purpose)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	// Set essential Chrome-like headers to avoid getting blocked
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	startTime := time.Now()
	resp, err := s.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		s.logger.Warn("HTTP request failed",
			"url", pageURL,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("GET %s: %w", pageURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	s.logger.Info("HTTP request completed",
		"url", pageURL,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"content_length", resp.ContentLength)

	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	if err := parse(resp.Body); err != nil {
		s.logger.Error("Failed to parse HTML", "url", pageURL, "error", err)
		return fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return nil
}

func parseListings(body io.Reader) ([]lfg.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	var listings []lfg.Listing
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := characterLinkRegex.FindStringSubmatch(href)
		if m == nil {
			return
		}
		listings = append(listings, lfg.Listing{Server: m[1], Name: m[2]})
	})

	if len(listings) == 0 {
		return nil, ErrNoListings
	}
	return listings, nil
}

func parseProfile(body io.Reader, server string) (*Profile, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	p := &Profile{ServerName: server, RealmSlug: server}

	// Realm display name comes from the "US-Zul'jin" breadcrumb
	doc.Find(`a.nav_link[href^="/gearscore/us/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		if name, ok := strings.CutPrefix(text, "US-"); ok && name != "" {
			p.ServerName = name
			return false
		}
		return true
	})

	doc.Find(`a[href^="https://worldofwarcraft.com/en-us/character/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := armoryLinkRegex.FindStringSubmatch(href); m != nil {
			p.RealmSlug = m[1]
			return false
		}
		return true
	})

	p.BattleTag = strings.TrimSpace(doc.Find("span.profileBattletag").First().Text())

	if comment := doc.Find("div.charCommentary").First(); comment.Length() > 0 {
		raw, err := comment.Html()
		if err == nil {
			p.Comments = commentText(raw)
		}
	}

	return p, nil
}

// commentText flattens commentary HTML to text and truncates long comments.
func commentText(raw string) string {
	raw = brRegex.ReplaceAllString(raw, "")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(doc.Text())

	runes := []rune(text)
	if len(runes) > maxCommentRunes {
		text = string(runes[:maxCommentRunes]) + "..."
	}
	return text
}
