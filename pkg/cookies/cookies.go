// Package cookies provisions the optional extractor credentials: a Netscape
// cookies.txt written once at startup and shared read-only by every request.
package cookies

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const FileName = "yt-facade-cookies.txt"

const httpOnlyPrefix = "#HttpOnly_"

// Credentials is the provisioned cookie file. A nil *Credentials means
// unauthenticated extraction.
type Credentials struct {
	// Path of the cookies.txt file, as passed to yt-dlp --cookies.
	Path    string
	Cookies []*http.Cookie
}

// Provision writes payload to dir/FileName (0600) when it is non-empty, otherwise
// falls back to an existing file. Both empty returns (nil, nil).
func Provision(payload, existingFile, dir string) (*Credentials, error) {
	var path string

	switch {
	case strings.TrimSpace(payload) != "":
		if dir == "" {
			dir = os.TempDir()
		}
		path = filepath.Join(dir, FileName)
		if err := writePrivate(path, []byte(payload)); err != nil {
			return nil, fmt.Errorf("failed to write cookies file: %w", err)
		}
		slog.Info("Cookies file written", "path", path)
	case existingFile != "":
		path = existingFile
	default:
		slog.Debug("No cookies configured, using unauthenticated extraction")
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	parsed, err := ParseNetscape(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse cookies file: %w", err)
	}
	if len(parsed) == 0 {
		slog.Warn("Cookies file contains no cookies", "path", path)
	}

	return &Credentials{Path: path, Cookies: parsed}, nil
}

// writePrivate replaces whatever sits at path (including a symlink) with a
// fresh 0600 file.
func writePrivate(path string, data []byte) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// FilePath returns the cookie file path, or "" for nil credentials.
func (c *Credentials) FilePath() string {
	if c == nil {
		return ""
	}
	return c.Path
}

// Jar builds a cookie jar holding the provisioned cookies. Nil credentials
// produce an empty jar.
func (c *Credentials) Jar() (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return jar, nil
	}

	byHost := make(map[string][]*http.Cookie)
	for _, ck := range c.Cookies {
		host := strings.TrimPrefix(ck.Domain, ".")
		byHost[host] = append(byHost[host], ck)
	}
	for host, list := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, list)
	}
	return jar, nil
}

// ParseNetscape parses a Netscape cookies.txt format.
// Format: domain flag path secure expiration name value
func ParseNetscape(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			line = strings.TrimPrefix(line, httpOnlyPrefix)
			httpOnly = true
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		cookie := &http.Cookie{
			Domain:   parts[0],
			Path:     parts[2],
			Secure:   strings.EqualFold(parts[3], "TRUE"),
			Name:     parts[5],
			Value:    parts[6],
			HttpOnly: httpOnly,
		}
		// 0 marks a session cookie
		if expires, err := strconv.ParseInt(parts[4], 10, 64); err == nil && expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}
		cookies = append(cookies, cookie)
	}

	return cookies, scanner.Err()
}
