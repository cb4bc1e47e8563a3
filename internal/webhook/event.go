// Package webhook decodes Sonarr and Radarr webhook payloads into a
// normalized event and classifies events for processing.
package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Source identifies which upstream tool sent the event.
type Source string

const (
	SourceTV    Source = "tv"
	SourceMovie Source = "movie"
)

// Kind is the normalized event kind.
type Kind int

const (
	// KindIgnored covers event types this service does not act on.
	KindIgnored Kind = iota
	KindDownload
	KindFileDelete
)

func (k Kind) String() string {
	switch k {
	case KindDownload:
		return "download"
	case KindFileDelete:
		return "file-delete"
	default:
		return "ignored"
	}
}

// Event is the normalized view of an inbound webhook payload. It is built
// once per request and never mutated.
type Event struct {
	Source       Source
	Kind         Kind
	DeleteReason string

	// MediaID is the upstream file-record identifier (episode id for TV,
	// movie id for Movie).
	MediaID int64

	ShowTitle     string
	EpisodeTitle  string
	SeasonNumber  int
	EpisodeNumber int
	MovieTitle    string

	ReleaseDate    *time.Time
	IsUpgrade      bool
	AudioLanguages []string
	CustomFormats  []string
}

// Title returns the human-readable title for logging.
func (e *Event) Title() string {
	if e.Source == SourceMovie {
		return e.MovieTitle
	}
	if e.EpisodeTitle != "" {
		return fmt.Sprintf("%s - %s", e.ShowTitle, e.EpisodeTitle)
	}
	return e.ShowTitle
}

// sonarrPayload mirrors the fields of a Sonarr webhook this service reads.
type sonarrPayload struct {
	EventType string `json:"eventType"`
	Series    struct {
		Title string `json:"title"`
	} `json:"series"`
	Episodes []struct {
		ID            int64  `json:"id"`
		Title         string `json:"title"`
		SeasonNumber  int    `json:"seasonNumber"`
		EpisodeNumber int    `json:"episodeNumber"`
		AirDateUTC    string `json:"airDateUtc"`
		AirDate       string `json:"airDate"`
	} `json:"episodes"`
	EpisodeFile struct {
		MediaInfo mediaInfo `json:"mediaInfo"`
	} `json:"episodeFile"`
	CustomFormatInfo customFormatInfo `json:"customFormatInfo"`
	IsUpgrade        bool             `json:"isUpgrade"`
	DeleteReason     string           `json:"deleteReason"`
}

// radarrPayload mirrors the fields of a Radarr webhook this service reads.
type radarrPayload struct {
	EventType string `json:"eventType"`
	Movie     struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		ReleaseDate string `json:"releaseDate"`
	} `json:"movie"`
	MovieFile struct {
		MediaInfo mediaInfo `json:"mediaInfo"`
	} `json:"movieFile"`
	CustomFormatInfo customFormatInfo `json:"customFormatInfo"`
	IsUpgrade        bool             `json:"isUpgrade"`
	DeleteReason     string           `json:"deleteReason"`
}

type mediaInfo struct {
	AudioLanguages []string `json:"audioLanguages"`
}

type customFormatInfo struct {
	CustomFormats []struct {
		Name string `json:"name"`
	} `json:"customFormats"`
}

// Decode reads a webhook payload for the given source and normalizes it.
// Unrecognized event types decode to KindIgnored rather than an error so
// the HTTP layer can acknowledge them without special-casing.
func Decode(source Source, r io.Reader) (*Event, error) {
	switch source {
	case SourceTV:
		return decodeSonarr(r)
	case SourceMovie:
		return decodeRadarr(r)
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func decodeSonarr(r io.Reader) (*Event, error) {
	var p sonarrPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode sonarr payload: %w", err)
	}

	e := &Event{
		Source:         SourceTV,
		Kind:           kindFor(p.EventType, "EpisodeFileDelete"),
		DeleteReason:   p.DeleteReason,
		ShowTitle:      p.Series.Title,
		IsUpgrade:      p.IsUpgrade,
		AudioLanguages: p.EpisodeFile.MediaInfo.AudioLanguages,
		CustomFormats:  formatNames(p.CustomFormatInfo),
	}
	if len(p.Episodes) > 0 {
		ep := p.Episodes[0]
		e.MediaID = ep.ID
		e.EpisodeTitle = ep.Title
		e.SeasonNumber = ep.SeasonNumber
		e.EpisodeNumber = ep.EpisodeNumber
		e.ReleaseDate = parseDate(ep.AirDateUTC, ep.AirDate)
	}

	if e.Kind != KindIgnored && e.ShowTitle == "" {
		return nil, fmt.Errorf("sonarr payload missing series title")
	}
	return e, nil
}

func decodeRadarr(r io.Reader) (*Event, error) {
	var p radarrPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode radarr payload: %w", err)
	}

	e := &Event{
		Source:         SourceMovie,
		Kind:           kindFor(p.EventType, "MovieFileDelete"),
		DeleteReason:   p.DeleteReason,
		MediaID:        p.Movie.ID,
		MovieTitle:     p.Movie.Title,
		ReleaseDate:    parseDate("", p.Movie.ReleaseDate),
		IsUpgrade:      p.IsUpgrade,
		AudioLanguages: p.MovieFile.MediaInfo.AudioLanguages,
		CustomFormats:  formatNames(p.CustomFormatInfo),
	}

	if e.Kind != KindIgnored && e.MovieTitle == "" {
		return nil, fmt.Errorf("radarr payload missing movie title")
	}
	return e, nil
}

func kindFor(eventType, deleteType string) Kind {
	switch eventType {
	case "Download":
		return KindDownload
	case deleteType:
		return KindFileDelete
	default:
		return KindIgnored
	}
}

func formatNames(info customFormatInfo) []string {
	if len(info.CustomFormats) == 0 {
		return nil
	}
	names := make([]string, 0, len(info.CustomFormats))
	for _, cf := range info.CustomFormats {
		if cf.Name != "" {
			names = append(names, cf.Name)
		}
	}
	return names
}

// parseDate accepts an RFC3339 date-time (Sonarr's airDateUtc) or a bare
// ISO date (airDate, releaseDate). Returns nil when neither parses.
func parseDate(dateTime, date string) *time.Time {
	if dateTime != "" {
		if t, err := time.Parse(time.RFC3339, dateTime); err == nil {
			return &t
		}
	}
	if date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			return &t
		}
	}
	return nil
}
