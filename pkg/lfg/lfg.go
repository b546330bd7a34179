// Package lfg contains the core domain types for the LFG recruitment notifier.
package lfg

import (
	"net/url"
	"strings"
)

// Listing is a single "looking for guild" entry on the roster page.
type Listing struct {
	Server string // Realm slug as it appears in the roster link (e.g. "zul-jin")
	Name   string // Character name, URL-escaped exactly as linked
}

// ID returns the stable identity persisted between runs.
func (l Listing) ID() string {
	return l.Server + "." + l.Name
}

// DisplayName returns the unescaped character name.
func (l Listing) DisplayName() string {
	name, err := url.PathUnescape(l.Name)
	if err != nil {
		return l.Name
	}
	return name
}

// APIName returns the lowercased, escaped name used in profile URLs.
func (l Listing) APIName() string {
	return url.PathEscape(strings.ToLower(l.DisplayName()))
}

// IDs returns the ids of listings in order.
func IDs(listings []Listing) []string {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID())
	}
	return ids
}

// RaidTier describes one raid tier tracked for mythic progression.
type RaidTier struct {
	Name             string // Short display name, e.g. "MFO"
	BossAchievements []int  // Mythic boss kill achievement ids
	CuttingEdge      int    // Cutting edge achievement id
}

// Tiers lists tracked raid tiers, oldest first.
var Tiers = []RaidTier{
	{Name: "VoI", BossAchievements: []int{16346, 16347, 16348, 16349, 16350, 16351, 16352, 16353}, CuttingEdge: 17108},
	{Name: "ASC", BossAchievements: []int{18151, 18152, 18153, 18154, 18155, 18156, 18157, 18158, 18159}, CuttingEdge: 18254},
	{Name: "ADH", BossAchievements: []int{19335, 19336, 19337, 19338, 19339, 19340, 19341, 19342, 19343}, CuttingEdge: 19351},
	{Name: "NP", BossAchievements: []int{40236, 40237, 40238, 40239, 40240, 40241, 40242, 40243}, CuttingEdge: 40254},
	{Name: "LoU", BossAchievements: []int{41229, 41230, 41231, 41232, 41233, 41234, 41235, 41236}, CuttingEdge: 41297},
	{Name: "MFO", BossAchievements: []int{41604, 41605, 41606, 41607, 41608, 41609, 41610, 41611}, CuttingEdge: 41625},
}

// TierProgress is a character's mythic progression in one tier.
type TierProgress struct {
	Tier        string
	Bosses      int  // Number of bosses in the tier
	Kills       int  // Mythic kills recorded
	Known       bool // False when achievements could not be fetched
	CuttingEdge bool
}

// Links holds external profile URLs for a character.
type Links struct {
	Armory       string
	RaiderIO     string
	WoWProgress  string
	WarcraftLogs string
}

// Record is a listing enriched with display data from the profile sources.
type Record struct {
	Listing      Listing
	Name         string // Unescaped character name
	ServerName   string // Stylized realm name, e.g. "Zul'jin"
	RealmSlug    string // Realm slug used by the profile API, e.g. "zuljin"
	BattleTag    string
	Comments     string
	ItemLevel    string // "?" when unknown
	Rating       string // Mythic+ rating, "?" when unknown
	Guild        string
	Class        string // Empty when the class could not be determined
	SpecID       int    // Zero when unknown
	ThumbnailURL string
	Progress     []TierProgress // Same order as Tiers
	Links        Links
}

// recentTiers is how many of the newest tiers count toward kill eligibility.
const recentTiers = 2

// minRecentKills is the mythic kill count that qualifies a recent tier.
const minRecentKills = 2

// Eligible reports whether a record should be announced.
//
// A record is announced when any tier carries a cutting edge achievement,
// when either of the most recent tiers has at least two mythic kills, or when
// the character class is unknown.
func Eligible(r *Record) bool {
	if r.Class == "" {
		return true
	}
	for _, p := range r.Progress {
		if p.CuttingEdge {
			return true
		}
	}
	start := len(r.Progress) - recentTiers
	if start < 0 {
		start = 0
	}
	for _, p := range r.Progress[start:] {
		if p.Known && p.Kills >= minRecentKills {
			return true
		}
	}
	return false
}

// Report summarizes a single run.
type Report struct {
	Seen       int      `json:"seen"`
	New        int      `json:"new"`
	Announced  int      `json:"announced"`
	Suppressed int      `json:"suppressed"`
	Failed     []string `json:"failed"`
	Persisted  int      `json:"persisted"`
	ListingErr string   `json:"listing_error,omitempty"`
}
