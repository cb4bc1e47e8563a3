package webhook

import "time"

// dubFormats are the custom format names that mark a release as dubbed
// regardless of its audio track list.
var dubFormats = map[string]bool{
	"Anime Dual Audio": true,
	"Dubs Only":        true,
}

// Classification is the eligibility decision for a single event.
type Classification struct {
	// Dubbed reports whether the release carries an English audio track or
	// a recognized dub custom format.
	Dubbed bool

	// EligibleDownload reports whether a download event should be processed:
	// dubbed, and either an upgrade or a recent/upcoming release.
	EligibleDownload bool
}

// Classifier decides whether events qualify for collection membership.
// It is pure: the same event and clock produce the same result.
type Classifier struct {
	// RecentDays is the maximum whole-day age of a release still considered
	// recent. Future dates are always eligible.
	RecentDays int
}

// Classify evaluates an event against the dub and recency rules at the
// given instant.
func (c Classifier) Classify(e *Event, now time.Time) Classification {
	dubbed := isDubbed(e)
	return Classification{
		Dubbed: dubbed,
		EligibleDownload: e.Kind == KindDownload && dubbed &&
			(e.IsUpgrade || c.recentOrUpcoming(e.ReleaseDate, now)),
	}
}

func isDubbed(e *Event) bool {
	for _, lang := range e.AudioLanguages {
		if lang == "eng" {
			return true
		}
	}
	for _, name := range e.CustomFormats {
		if dubFormats[name] {
			return true
		}
	}
	return false
}

// recentOrUpcoming compares calendar dates in UTC; time of day is ignored.
func (c Classifier) recentOrUpcoming(date *time.Time, now time.Time) bool {
	if date == nil {
		return false
	}
	release := date.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)
	daysPast := int(today.Sub(release).Hours() / 24)
	return daysPast <= c.RecentDays
}
