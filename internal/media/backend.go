package media

import "strings"

// Settings is the deployment-specific part of a backend, loaded from config.
type Settings struct {
	URL              string
	APIKey           string
	QualityProfileID int
	RootFolder       string
}

// Backend describes one downstream service.
type Backend struct {
	Kind             Kind
	BaseURL          string
	APIKey           string
	QualityProfileID int
	RootFolder       string
	LookupPath       string
	AddPath          string
	Label            string
}

// Configured reports whether the backend has both a URL and an API key.
func (b Backend) Configured() bool {
	return b.BaseURL != "" && b.APIKey != ""
}

// kindSpec holds everything that differs between media kinds.
type kindSpec struct {
	label        string
	lookupPath   string
	addPath      string
	searchOption string
	defaultRoot  string
	sanitize     func(record) any
	payload      func(record, Backend, string) any
	describe     func(record) string
}

var kinds = [kindCount]kindSpec{
	Movie: {
		label:        "Movie",
		lookupPath:   "/api/v3/movie/lookup",
		addPath:      "/api/v3/movie",
		searchOption: "searchForMovie",
		defaultRoot:  "/movies",
		sanitize:     sanitizeMovie,
		payload:      moviePayload,
		describe:     describeTitleYear,
	},
	TV: {
		label:        "Show",
		lookupPath:   "/api/v3/series/lookup",
		addPath:      "/api/v3/series",
		searchOption: "searchForMissingEpisodes",
		defaultRoot:  "/tv",
		sanitize:     sanitizeSeries,
		payload:      seriesPayload,
		describe:     describeTitleYear,
	},
	Music: {
		label:        "Artist",
		lookupPath:   "/api/v1/artist/lookup",
		addPath:      "/api/v1/artist",
		searchOption: "searchForMissingAlbums",
		defaultRoot:  "/music",
		sanitize:     sanitizeArtist,
		payload:      artistPayload,
		describe:     describeArtist,
	},
}

// Registry maps each Kind to its Backend. It is read-only after construction.
type Registry struct {
	backends [kindCount]Backend
}

// NewRegistry builds a registry from per-kind settings. Kinds missing from
// settings are present but unconfigured.
func NewRegistry(settings map[Kind]Settings) *Registry {
	r := &Registry{}
	for _, k := range Kinds() {
		spec := kinds[k]
		s := settings[k]

		profile := s.QualityProfileID
		if profile == 0 {
			profile = 1
		}
		root := s.RootFolder
		if root == "" {
			root = spec.defaultRoot
		}

		r.backends[k] = Backend{
			Kind:             k,
			BaseURL:          strings.TrimSuffix(s.URL, "/"),
			APIKey:           s.APIKey,
			QualityProfileID: profile,
			RootFolder:       root,
			LookupPath:       spec.lookupPath,
			AddPath:          spec.addPath,
			Label:            spec.label,
		}
	}
	return r
}

// Lookup returns the backend for k. It fails with ErrUnknownMediaType for an
// out-of-range kind and with ErrBackendNotConfigured (as *Error) when the
// backend lacks a URL or API key.
func (r *Registry) Lookup(k Kind) (Backend, error) {
	if !k.valid() {
		return Backend{}, &UnknownKindError{Input: k.String()}
	}
	b := r.backends[k]
	if !b.Configured() {
		return b, &Error{Label: b.Label, Err: ErrBackendNotConfigured}
	}
	return b, nil
}

// Backends returns all backends, configured or not, in Kinds() order.
func (r *Registry) Backends() []Backend {
	out := make([]Backend, 0, kindCount)
	for _, k := range Kinds() {
		out = append(out, r.backends[k])
	}
	return out
}
