package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	bedSeqRe  = regexp.MustCompile(`[-/]\s*([A-Za-z0-9]{1,4})\s*$`)
	roomTagRe = regexp.MustCompile(`(?i)^(?:rm|room)\b\.?\s*`)
)

// BedLabel holds the room and bed parts of a bed's display label.
type BedLabel struct {
	Room string
	Bed  string
}

// ParseBedLabel splits labels such as "Room 12-B", "East Wing 3/2" or "12#4"
// into a room and a bed designation.
func ParseBedLabel(raw string) (BedLabel, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "#", "-")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return BedLabel{}, fmt.Errorf("empty bed label")
	}

	loc := bedSeqRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return BedLabel{}, fmt.Errorf("unable to parse bed from label: %q", raw)
	}
	bed := strings.ToUpper(s[loc[2]:loc[3]])
	room := strings.TrimSpace(s[:loc[0]])
	room = strings.TrimSpace(roomTagRe.ReplaceAllString(room, ""))
	if room == "" {
		return BedLabel{}, fmt.Errorf("unable to parse room from label: %q", raw)
	}
	return BedLabel{Room: room, Bed: bed}, nil
}
