package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRecord() *lfg.Record {
	return &lfg.Record{
		Listing:      lfg.Listing{Server: "zul-jin", Name: "Ioannides"},
		Name:         "Ioannides",
		ServerName:   "Zul'jin",
		ItemLevel:    "639",
		Rating:       "3120",
		Class:        "Warlock",
		ThumbnailURL: "https://render/266.jpg",
		Progress: []lfg.TierProgress{
			{Tier: "LoU", Bosses: 8, Kills: 8, Known: true, CuttingEdge: true},
			{Tier: "MFO", Bosses: 8, Kills: 3, Known: true},
			{Tier: "XYZ", Bosses: 9},
		},
		Links: lfg.Links{
			Armory:       "https://a",
			RaiderIO:     "https://r",
			WoWProgress:  "https://w",
			WarcraftLogs: "https://l",
		},
	}
}

func TestEmbed(t *testing.T) {
	e := Embed(testRecord())

	if got, want := e.Author.Name, "Ioannides | Zul'jin | 639 ilvl | 3120 IO"; got != want {
		t.Errorf("Author.Name = %q, want %q", got, want)
	}
	if e.Color != 0x8788EE {
		t.Errorf("Color = %#x, want warlock purple", e.Color)
	}
	if e.Thumbnail.URL != "https://render/266.jpg" {
		t.Errorf("Thumbnail.URL = %q", e.Thumbnail.URL)
	}
	if len(e.Fields) != 5 {
		t.Fatalf("got %d fields, want 5", len(e.Fields))
	}

	progress := e.Fields[0].Value
	for _, want := range []string{"**LoU:** 8/8 M [CE]", "**MFO:** 3/8 M", "**XYZ:** ?/9 M"} {
		if !strings.Contains(progress, want) {
			t.Errorf("progress field missing %q:\n%s", want, progress)
		}
	}
	if strings.Contains(progress, "3/8 M [CE]") {
		t.Error("MFO should not be flagged cutting edge")
	}

	for _, f := range e.Fields[1:4] {
		if f.Value != emptyField {
			t.Errorf("field %s = %q, want placeholder for empty value", f.Name, f.Value)
		}
	}
	if e.Fields[3].Inline {
		t.Error("comments field should not be inline")
	}
	if !strings.Contains(e.Fields[4].Value, "[WarcraftLogs](https://l)") {
		t.Errorf("links field = %q", e.Fields[4].Value)
	}
}

func TestClassColorUnknown(t *testing.T) {
	if got := ClassColor(""); got != 0 {
		t.Errorf("ClassColor(\"\") = %#x, want 0", got)
	}
}

func TestDiscordProvider(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "no content", status: http.StatusNoContent},
		{name: "ok", status: http.StatusOK},
		{name: "bad request", status: http.StatusBadRequest, wantErr: true},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			var payload discordgo.WebhookParams
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q", ct)
				}
				body, _ := io.ReadAll(r.Body)
				if err := json.Unmarshal(body, &payload); err != nil {
					t.Errorf("payload is not JSON: %v", err)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			sender := New(NewDiscordProvider(srv.URL, &http.Client{Timeout: 5 * time.Second}, testLogger()), testLogger())
			err := sender.Notify(context.Background(), testRecord())

			if (err != nil) != tt.wantErr {
				t.Fatalf("Notify() error = %v, wantErr %v", err, tt.wantErr)
			}
			var statusErr *HTTPStatusError
			if tt.wantErr && (!errors.As(err, &statusErr) || statusErr.StatusCode != tt.status) {
				t.Errorf("Notify() error = %v, want HTTPStatusError %d", err, tt.status)
			}
			if calls != 1 {
				t.Errorf("webhook called %d times, want exactly 1", calls)
			}
			if len(payload.Embeds) != 1 || payload.Embeds[0].Author == nil {
				t.Fatalf("payload embeds = %+v", payload.Embeds)
			}
		})
	}
}

func TestDiscordProviderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewDiscordProvider(srv.URL, &http.Client{Timeout: time.Second}, testLogger())
	if err := p.Send(context.Background(), &discordgo.WebhookParams{}); err == nil {
		t.Error("Send() to a closed server should fail")
	}
}

func TestMockProvider(t *testing.T) {
	sender := New(NewMockProvider(testLogger()), testLogger())
	if err := sender.Notify(context.Background(), testRecord()); err != nil {
		t.Errorf("Notify() with mock provider error = %v", err)
	}
}
