package webhook

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
)

// Discord rejects embed fields with empty values.
const emptyField = "-"

var classColors = map[string]int{
	"Death Knight": 0xC41E3A,
	"Demon Hunter": 0xA330C9,
	"Druid":        0xFF7C0A,
	"Evoker":       0x33937F,
	"Hunter":       0xAAD372,
	"Mage":         0x3FC7EB,
	"Monk":         0x00FF98,
	"Paladin":      0xF48CBA,
	"Priest":       0xFFFFFF,
	"Rogue":        0xFFF468,
	"Shaman":       0x0070DD,
	"Warlock":      0x8788EE,
	"Warrior":      0xC69B6D,
}

// ClassColor returns the embed colour for a class, black when unknown.
func ClassColor(class string) int {
	return classColors[class]
}

// Embed renders a record as a Discord embed.
func Embed(r *lfg.Record) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: fmt.Sprintf("%s | %s | %s ilvl | %s IO", r.Name, r.ServerName, r.ItemLevel, r.Rating),
		},
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: r.ThumbnailURL},
		Color:     ClassColor(r.Class),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "__Raid Progression__", Value: orEmpty(progressText(r.Progress)), Inline: true},
			{Name: "__Current Guild__", Value: orEmpty(r.Guild), Inline: true},
			{Name: "__BattleTag__", Value: orEmpty(r.BattleTag), Inline: true},
			{Name: "__Comments__", Value: orEmpty(r.Comments), Inline: false},
			{Name: "__Links__", Value: linksText(r.Links), Inline: true},
		},
	}
}

func progressText(progress []lfg.TierProgress) string {
	lines := make([]string, 0, len(progress))
	for _, p := range progress {
		kills := "?"
		if p.Known {
			kills = fmt.Sprint(p.Kills)
		}
		line := fmt.Sprintf("**%s:** %s/%d M", p.Tier, kills, p.Bosses)
		if p.CuttingEdge {
			line += " [CE]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func linksText(l lfg.Links) string {
	return fmt.Sprintf("[Armory](%s) | [RaiderIO](%s) | [WoWProgress](%s) | [WarcraftLogs](%s)",
		l.Armory, l.RaiderIO, l.WoWProgress, l.WarcraftLogs)
}

func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyField
	}
	return s
}
