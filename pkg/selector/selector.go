// Package selector picks a single stream out of an extractor's format list.
package selector

import (
	"sort"
	"strings"

	"github.com/imbecility/yt-facade/pkg/models"
)

const (
	DefaultResolution = "720p"
	DefaultContainer  = "mp4"
)

// Ladder is the fallback order tried after the requested resolution.
var Ladder = []string{"720p", "480p", "360p", "240p", "144p"}

// Select returns the progressive stream to hand out for the requested resolution.
// It tries the exact resolution, then each rung of the ladder, then the highest
// progressive stream of any resolution. Within a rung the first stream in
// extractor order wins.
func Select(streams []models.Stream, requested, container string) (models.Stream, bool) {
	candidates := Filter(streams, container, true)
	if len(candidates) == 0 {
		return models.Stream{}, false
	}

	requested = normalizeResolution(requested)
	if requested != "" {
		if s, ok := firstWithResolution(candidates, requested); ok {
			return s, true
		}
	}

	for _, res := range Ladder {
		if s, ok := firstWithResolution(candidates, res); ok {
			return s, true
		}
	}

	best := candidates[0]
	for _, s := range candidates[1:] {
		if s.Height() > best.Height() {
			best = s
		}
	}
	return best, true
}

// Filter keeps the streams of the given container ("" keeps all containers),
// optionally only progressive ones. Order is preserved.
func Filter(streams []models.Stream, container string, progressiveOnly bool) []models.Stream {
	var out []models.Stream
	for _, s := range streams {
		if container != "" && !strings.EqualFold(s.Container, container) {
			continue
		}
		if progressiveOnly && !s.Progressive() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Resolutions returns the distinct non-empty resolution labels of the matching
// streams, sorted by descending numeric value.
func Resolutions(streams []models.Stream, container string, progressiveOnly bool) []string {
	seen := make(map[string]bool)
	labels := []string{}
	for _, s := range Filter(streams, container, progressiveOnly) {
		if s.Resolution == "" || seen[s.Resolution] {
			continue
		}
		seen[s.Resolution] = true
		labels = append(labels, s.Resolution)
	}
	SortResolutions(labels)
	return labels
}

// SortResolutions sorts labels like "1080p", "720p" by descending numeric value.
// Labels with equal values keep a stable lexical order.
func SortResolutions(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		vi, vj := models.ResolutionValue(labels[i]), models.ResolutionValue(labels[j])
		if vi != vj {
			return vi > vj
		}
		return labels[i] < labels[j]
	})
}

func firstWithResolution(streams []models.Stream, res string) (models.Stream, bool) {
	for _, s := range streams {
		if s.Resolution == res {
			return s, true
		}
	}
	return models.Stream{}, false
}

// normalizeResolution accepts "720" as shorthand for "720p".
func normalizeResolution(res string) string {
	res = strings.ToLower(strings.TrimSpace(res))
	if res == "" {
		return ""
	}
	if strings.TrimLeft(res, "0123456789") == "" {
		return res + "p"
	}
	return res
}

// WithURL drops streams the extractor could not resolve a direct URL for.
func WithURL(streams []models.Stream) []models.Stream {
	var out []models.Stream
	for _, s := range streams {
		if s.URL != "" {
			out = append(out, s)
		}
	}
	return out
}
