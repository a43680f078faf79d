package media

import (
	"encoding/json"
	"fmt"
)

type moviePayloadBody struct {
	Title            string          `json:"title"`
	TMDBID           json.RawMessage `json:"tmdbId"`
	Year             json.RawMessage `json:"year"`
	QualityProfileID int             `json:"qualityProfileId"`
	RootFolderPath   string          `json:"rootFolderPath"`
	Monitored        bool            `json:"monitored"`
	AddOptions       map[string]bool `json:"addOptions"`
}

type seriesPayloadBody struct {
	Title            string          `json:"title"`
	TVDBID           json.RawMessage `json:"tvdbId"`
	Year             json.RawMessage `json:"year"`
	QualityProfileID int             `json:"qualityProfileId"`
	RootFolderPath   string          `json:"rootFolderPath"`
	Monitored        bool            `json:"monitored"`
	AddOptions       map[string]bool `json:"addOptions"`
}

type artistPayloadBody struct {
	ArtistName       string          `json:"artistName"`
	ForeignArtistID  string          `json:"foreignArtistId"`
	QualityProfileID int             `json:"qualityProfileId"`
	RootFolderPath   string          `json:"rootFolderPath"`
	Monitored        bool            `json:"monitored"`
	AddOptions       map[string]bool `json:"addOptions"`
}

// Only identifying fields come from the caller. Profile, root folder,
// monitoring and search options always come from the backend.

func moviePayload(body record, b Backend, searchOption string) any {
	return moviePayloadBody{
		Title:            body.str("title"),
		TMDBID:           body.value("tmdbId"),
		Year:             body.value("year"),
		QualityProfileID: b.QualityProfileID,
		RootFolderPath:   b.RootFolder,
		Monitored:        true,
		AddOptions:       map[string]bool{searchOption: true},
	}
}

func seriesPayload(body record, b Backend, searchOption string) any {
	return seriesPayloadBody{
		Title:            body.str("title"),
		TVDBID:           body.value("tvdbId"),
		Year:             body.value("year"),
		QualityProfileID: b.QualityProfileID,
		RootFolderPath:   b.RootFolder,
		Monitored:        true,
		AddOptions:       map[string]bool{searchOption: true},
	}
}

func artistPayload(body record, b Backend, searchOption string) any {
	return artistPayloadBody{
		ArtistName:       body.str("artistName"),
		ForeignArtistID:  body.str("foreignArtistId"),
		QualityProfileID: b.QualityProfileID,
		RootFolderPath:   b.RootFolder,
		Monitored:        true,
		AddOptions:       map[string]bool{searchOption: true},
	}
}

// describeTitleYear renders `"Dune" (2021)` for the audit log.
func describeTitleYear(body record) string {
	return fmt.Sprintf(`"%s" (%s)`, orDefault(body.str("title"), "Unknown"), orDefault(body.text("year"), "?"))
}

// describeArtist renders `"Artist Name" (foreign-id)` for the audit log.
func describeArtist(body record) string {
	return fmt.Sprintf(`"%s" (%s)`, orDefault(body.str("artistName"), "Unknown"), orDefault(body.text("foreignArtistId"), "?"))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
