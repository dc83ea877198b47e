package shortspublisher

import (
	"path/filepath"
	"strings"
)

const (
	titlePrefix    = "Simpsons Short - "
	maxTitleLength = 95
)

var defaultDescriptions = []string{
	"😂 Les meilleurs moments des Simpsons ! N’oublie pas de liker 👍 et de t’abonner 🔔 #shorts",
	"😱 Springfield n’a pas fini de nous surprendre… Like + Abonne-toi pour + de clips Simpsons 💛",
	"🍩 Homer, Bart & toute la famille en 60 secondes ! Abonne-toi pour + de fun 🎬",
	"🔥 Moment culte des Simpsons ! Si t’aimes, lâche un like et partage 😉",
	"🎯 Un classique des Simpsons, version short ! Soutiens avec un 👍 et active la cloche 🔔",
	"💥 Springfield en folie ! Like + Abonne-toi pour + de vidéos exclusives Simpsons 🚀",
	"👨‍👩‍👧‍👦 La famille la plus drôle de la TV ! Aide-nous avec un like et rejoins la team 💛",
	"😂 Si tu ris, t’es obligé de liker 😏 et de t’abonner pour + de moments Simpsons 🎉",
	"📺 Springfield en 1 minute chrono ! Soutiens avec un like et abonne-toi 👊",
	"✨ Un moment culte des Simpsons à ne pas rater ! Like & Abonne-toi maintenant 💫",
}

var defaultTags = []string{
	"shorts", "humour", "drôle", "fun", "fr", "tendance", "viral", "meme", "montage", "clip",
	"gaming", "stream", "twitch", "moments", "compilation", "edit", "capcut", "reaction", "lol", "wtf",
	"trend", "bestof", "france", "entertainment", "amusant", "buzz", "highlight", "clutch", "fails", "win",
	"asmr", "music", "beat", "challenge", "ironie", "parodie", "sketch", "storytime", "live", "popculture",
	"anime", "manga", "film", "serie", "geek", "setup", "tips", "astuces", "howto", "inspiration",
}

// formatTitle turns a raw file name into a clean video title: the extension
// and any trailing bracketed identifier are dropped, a leading
// "YYYY-MM-DD - " date prefix is stripped, and the fixed label is prepended.
// The result is capped at 95 characters.
func formatTitle(fileName string) string {
	cleaned := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	if open := strings.Index(cleaned, "["); open >= 0 && strings.Contains(cleaned[open:], "]") {
		cleaned = strings.TrimSpace(cleaned[:open])
	}

	if strings.Contains(cleaned, " - ") && len(cleaned) >= 10 && strings.Count(cleaned[:10], "-") == 2 {
		if _, rest, ok := strings.Cut(cleaned, " - "); ok {
			cleaned = rest
		}
	}

	title := titlePrefix + cleaned
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}
	return title
}
