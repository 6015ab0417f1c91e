package providers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
)

var (
	// OEmbedEndpoint is overridable in tests.
	OEmbedEndpoint = "https://www.youtube.com/oembed"

	titleRe = regexp.MustCompile(`<title>(.*?)(?: - YouTube)?</title>`)
)

// OEmbed is the subset of the oEmbed document we use.
type OEmbed struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// GetVideoTitle tries to get the exact title of the video: fast oEmbed first, then partial HTML parsing.
func GetVideoTitle(ctx context.Context, client HTTPClient, videoURL string) (*OEmbed, error) {
	info, err := FetchOEmbed(ctx, client, videoURL)
	if err == nil && info.Title != "" {
		return info, nil
	}
	slog.Debug("oEmbed title failed, falling back to scraping", "err", err)

	title, err := fetchScrapedTitle(ctx, client, videoURL)
	if err != nil {
		return nil, err
	}
	return &OEmbed{Title: title}, nil
}

// FetchOEmbed requests official JSON for iframe-embed video
func FetchOEmbed(ctx context.Context, client HTTPClient, videoURL string) (*OEmbed, error) {
	oembedURL := fmt.Sprintf("%s?url=%s&format=json", OEmbedEndpoint, url.QueryEscape(videoURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		bcerr := Body.Close()
		if bcerr != nil {
			slog.Warn("failed to close response body", "err", bcerr)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var data OEmbed
	if jderr := json.NewDecoder(resp.Body).Decode(&data); jderr != nil {
		return nil, jderr
	}
	return &data, nil
}

// fetchScrapedTitle reads at most 1MB of the watch page looking for <title>
func fetchScrapedTitle(ctx context.Context, client HTTPClient, videoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func(Body io.ReadCloser) {
		bcerr := Body.Close()
		if bcerr != nil {
			slog.Warn("failed to close response body", "err", bcerr)
		}
	}(resp.Body)

	scanner := bufio.NewScanner(resp.Body)

	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	bytesRead := 0
	const maxBytes = 1024 * 1024

	for scanner.Scan() {
		line := scanner.Text()
		bytesRead += len(line)

		matches := titleRe.FindStringSubmatch(line)
		if len(matches) >= 2 {
			return html.UnescapeString(matches[1]), nil
		}

		if bytesRead > maxBytes {
			break
		}
	}

	return "", fmt.Errorf("title not found in first %d bytes", maxBytes)
}
