package armory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
	"github.com/kibsywow/recruit-bot/scraper"
)

// DefaultThumbnailURL is shown when the spec icon cannot be resolved.
const DefaultThumbnailURL = "https://upload.wikimedia.org/wikipedia/commons/thumb/e/eb/WoW_icon.svg/1200px-WoW_icon.svg.png"

// PageSource fetches the WoWProgress character page.
type PageSource interface {
	Profile(ctx context.Context, l lfg.Listing) (*scraper.Profile, error)
}

// Enricher builds display records from the character page and the API.
type Enricher struct {
	pages  PageSource
	api    *Client
	logger *slog.Logger
}

// NewEnricher creates an enricher.
func NewEnricher(pages PageSource, api *Client, logger *slog.Logger) *Enricher {
	return &Enricher{pages: pages, api: api, logger: logger}
}

// Enrich gathers everything known about a listing. Every upstream call is
// best-effort: failures are logged and the affected fields keep defaults.
func (e *Enricher) Enrich(ctx context.Context, token string, l lfg.Listing) *lfg.Record {
	r := &lfg.Record{
		Listing:      l,
		Name:         l.DisplayName(),
		ServerName:   l.Server,
		RealmSlug:    l.Server,
		ItemLevel:    "?",
		Rating:       "?",
		ThumbnailURL: DefaultThumbnailURL,
	}
	log := e.logger.With("listing", l.ID())

	page, err := e.pages.Profile(ctx, l)
	if err != nil {
		log.Warn("Failed to fetch character page", "error", err)
	}
	if page != nil {
		r.ServerName = page.ServerName
		r.RealmSlug = page.RealmSlug
		r.BattleTag = page.BattleTag
		r.Comments = page.Comments
	}

	name := l.APIName()

	if p, err := e.api.Profile(ctx, token, r.RealmSlug, name); err != nil {
		log.Warn("Failed to fetch character profile", "error", err)
	} else {
		applyProfile(r, p)
	}

	if r.SpecID != 0 {
		if m, err := e.api.SpecMedia(ctx, token, r.SpecID); err != nil {
			log.Warn("Failed to fetch spec media", "spec_id", r.SpecID, "error", err)
		} else if len(m.Assets) > 0 && m.Assets[0].Value != "" {
			r.ThumbnailURL = m.Assets[0].Value
		}
	}

	if k, err := e.api.KeystoneProfile(ctx, token, r.RealmSlug, name); err != nil {
		log.Warn("Failed to fetch mythic+ rating", "error", err)
	} else if k.CurrentMythicRating != nil && k.CurrentMythicRating.Rating != nil {
		if rating := *k.CurrentMythicRating.Rating; !math.IsInf(rating, 0) && !math.IsNaN(rating) {
			r.Rating = strconv.Itoa(int(math.Floor(rating)))
		}
	}

	a, err := e.api.Achievements(ctx, token, r.RealmSlug, name)
	if err != nil {
		log.Warn("Failed to fetch raid progression", "error", err)
	}
	r.Progress = Progress(a)

	r.Links = links(l, r.RealmSlug, name)
	return r
}

func applyProfile(r *lfg.Record, p *CharacterProfile) {
	if p.EquippedItemLevel != nil {
		r.ItemLevel = strconv.Itoa(*p.EquippedItemLevel)
	}
	if p.CharacterClass != nil {
		r.Class = p.CharacterClass.Name
	}
	if p.ActiveSpec != nil {
		r.SpecID = p.ActiveSpec.ID
	}
	if p.Guild != nil {
		r.Guild = p.Guild.Name
	}
}

// Progress computes per-tier mythic progression. A nil summary yields
// tiers marked unknown.
func Progress(a *Achievements) []lfg.TierProgress {
	earned := make(map[int]bool)
	if a != nil {
		for _, ach := range a.Achievements {
			earned[ach.ID] = true
		}
	}

	progress := make([]lfg.TierProgress, 0, len(lfg.Tiers))
	for _, tier := range lfg.Tiers {
		p := lfg.TierProgress{
			Tier:        tier.Name,
			Bosses:      len(tier.BossAchievements),
			Known:       a != nil,
			CuttingEdge: earned[tier.CuttingEdge],
		}
		for _, id := range tier.BossAchievements {
			if earned[id] {
				p.Kills++
			}
		}
		progress = append(progress, p)
	}
	return progress
}

func links(l lfg.Listing, realm, name string) lfg.Links {
	return lfg.Links{
		Armory:       fmt.Sprintf("https://worldofwarcraft.com/en-us/character/us/%s/%s", realm, name),
		RaiderIO:     fmt.Sprintf("https://raider.io/characters/us/%s/%s", realm, name),
		WoWProgress:  fmt.Sprintf("https://www.wowprogress.com/character/us/%s/%s", l.Server, name),
		WarcraftLogs: fmt.Sprintf("https://www.warcraftlogs.com/character/us/%s/%s", realm, name),
	}
}
