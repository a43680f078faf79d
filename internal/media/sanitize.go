package media

import "encoding/json"

// MovieResult is the public shape of a Radarr lookup result.
type MovieResult struct {
	Title        string          `json:"title"`
	Year         json.RawMessage `json:"year"`
	TMDBID       json.RawMessage `json:"tmdbId"`
	Overview     string          `json:"overview"`
	RemotePoster string          `json:"remotePoster"`
	HasFile      bool            `json:"hasFile"`
}

// SeriesResult is the public shape of a Sonarr lookup result.
type SeriesResult struct {
	Title        string          `json:"title"`
	Year         json.RawMessage `json:"year"`
	TVDBID       json.RawMessage `json:"tvdbId"`
	Overview     string          `json:"overview"`
	RemotePoster string          `json:"remotePoster"`
	Statistics   json.RawMessage `json:"statistics"`
}

// ArtistResult is the public shape of a Lidarr lookup result.
type ArtistResult struct {
	ArtistName      string `json:"artistName"`
	ForeignArtistID string `json:"foreignArtistId"`
	Overview        string `json:"overview"`
	RemotePoster    string `json:"remotePoster"`
}

func sanitizeMovie(r record) any {
	return MovieResult{
		Title:        r.str("title"),
		Year:         r.value("year"),
		TMDBID:       r.value("tmdbId"),
		Overview:     r.str("overview"),
		RemotePoster: r.str("remotePoster"),
		HasFile:      r.boolean("hasFile"),
	}
}

func sanitizeSeries(r record) any {
	return SeriesResult{
		Title:        r.str("title"),
		Year:         r.value("year"),
		TVDBID:       r.value("tvdbId"),
		Overview:     r.str("overview"),
		RemotePoster: r.str("remotePoster"),
		Statistics:   r.valueOr("statistics", json.RawMessage("{}")),
	}
}

func sanitizeArtist(r record) any {
	poster := ""
	if images := r.list("images"); len(images) > 0 {
		poster = images[0].str("remoteUrl")
	}
	return ArtistResult{
		ArtistName:      r.str("artistName"),
		ForeignArtistID: r.str("foreignArtistId"),
		Overview:        r.str("overview"),
		RemotePoster:    poster,
	}
}

// Sanitize projects a raw backend record onto the public shape for k.
// It never fails; malformed input yields a zero-valued result.
func Sanitize(k Kind, raw []byte) any {
	if !k.valid() {
		return nil
	}
	return kinds[k].sanitize(parseRecord(raw))
}
