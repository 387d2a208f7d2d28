package epg

import (
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"telecast/models"
)

// XMLTV structures for parsing.
type xmltvProgramme struct {
	Start   string      `xml:"start,attr"`
	Stop    string      `xml:"stop,attr"`
	Channel string      `xml:"channel,attr"`
	Title   []xmltvLang `xml:"title"`
	Desc    []xmltvLang `xml:"desc"`
}

type xmltvLang struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

// parseXMLTV streams through an XMLTV document, keeping only programmes
// whose guide channel maps to a catalog channel. Programs are appended to
// out under each mapped channel key with identity fields filled in.
func parseXMLTV(reader io.Reader, sourceID string, epgMap map[string][]models.Channel, out map[string][]models.Program) error {
	decoder := xml.NewDecoder(reader)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse XML: %w", err)
		}

		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "programme" {
			continue
		}

		var prog xmltvProgramme
		if err := decoder.DecodeElement(&prog, &se); err != nil {
			log.Printf("[epg] error parsing programme: %v", err)
			continue
		}

		// Guide channel ids are matched case-insensitively against the
		// channels' epg ids.
		mapped := epgMap[strings.ToLower(prog.Channel)]
		if len(mapped) == 0 {
			continue
		}

		start, err := parseXMLTVTime(prog.Start)
		if err != nil {
			continue
		}
		end, err := parseXMLTVTime(prog.Stop)
		if err != nil {
			continue
		}
		if !end.After(start) {
			continue
		}

		title := firstLangValue(prog.Title)
		desc := firstLangValue(prog.Desc)

		for _, ch := range mapped {
			out[ch.Key()] = append(out[ch.Key()], models.Program{
				ChannelID:   ch.ID,
				SourceID:    sourceID,
				Title:       title,
				Description: desc,
				Start:       start,
				End:         end,
			})
		}
	}

	return nil
}

// firstLangValue returns the first non-empty value from a slice of lang
// values.
func firstLangValue(values []xmltvLang) string {
	for _, v := range values {
		if v.Value != "" {
			return strings.TrimSpace(v.Value)
		}
	}
	return ""
}

var xmltvTimeRegex = regexp.MustCompile(`^(\d{14})(?:\s*([+-]\d{4}))?$`)

// parseXMLTVTime parses the XMLTV time format (YYYYMMDDHHmmss +/-HHMM).
func parseXMLTVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	matches := xmltvTimeRegex.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("invalid XMLTV time format: %s", s)
	}

	dateStr := matches[1]
	tzStr := matches[2]

	loc := time.UTC
	if tzStr != "" {
		sign := 1
		if tzStr[0] == '-' {
			sign = -1
		}
		hours := 0
		minutes := 0
		fmt.Sscanf(tzStr[1:], "%02d%02d", &hours, &minutes)
		offset := sign * (hours*3600 + minutes*60)
		loc = time.FixedZone(tzStr, offset)
	}

	t, err := time.ParseInLocation("20060102150405", dateStr, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
