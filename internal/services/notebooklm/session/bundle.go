package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/net/publicsuffix"
)

// Bundle is the persisted credential file layout.
type Bundle struct {
	Cookies   map[string]string `json:"cookies"`
	CSRFToken string            `json:"csrf_token"`
	SessionID string            `json:"session_id"`
}

type storageStateCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

// ReadBundle reads the credential bundle at path while holding a shared lock
// on path+".lock". A missing file returns an empty bundle and exists=false.
//
// Both the {"cookies": {name: value}} layout and Playwright storage-state
// files ({"cookies": [{name, value, domain}]}) are accepted. Storage-state
// cookies are kept only when they belong to the same registrable domain as
// baseURL.
func ReadBundle(path, baseURL string) (Bundle, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Bundle{}, false, nil
		}
		return Bundle{}, false, fmt.Errorf("stat credential bundle: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return Bundle{}, false, fmt.Errorf("lock credential bundle: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Bundle{}, false, nil
		}
		return Bundle{}, false, fmt.Errorf("read credential bundle: %w", err)
	}
	bundle, err := decodeBundle(data, baseURL)
	if err != nil {
		return Bundle{}, true, err
	}
	return bundle, true, nil
}

func decodeBundle(data []byte, baseURL string) (Bundle, error) {
	var raw struct {
		Cookies   json.RawMessage `json:"cookies"`
		CSRFToken string          `json:"csrf_token"`
		SessionID string          `json:"session_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Bundle{}, fmt.Errorf("decode credential bundle: %w", err)
	}

	bundle := Bundle{
		Cookies:   map[string]string{},
		CSRFToken: strings.TrimSpace(raw.CSRFToken),
		SessionID: strings.TrimSpace(raw.SessionID),
	}
	trimmed := strings.TrimSpace(string(raw.Cookies))
	switch {
	case trimmed == "" || trimmed == "null":
	case strings.HasPrefix(trimmed, "{"):
		if err := json.Unmarshal(raw.Cookies, &bundle.Cookies); err != nil {
			return Bundle{}, fmt.Errorf("decode credential cookies: %w", err)
		}
	case strings.HasPrefix(trimmed, "["):
		var list []storageStateCookie
		if err := json.Unmarshal(raw.Cookies, &list); err != nil {
			return Bundle{}, fmt.Errorf("decode storage-state cookies: %w", err)
		}
		site := registrableDomain(hostOf(baseURL))
		for _, c := range list {
			if c.Name == "" {
				continue
			}
			if site != "" && registrableDomain(c.Domain) != site {
				continue
			}
			bundle.Cookies[c.Name] = c.Value
		}
	default:
		return Bundle{}, fmt.Errorf("decode credential bundle: unsupported cookies value")
	}
	return bundle, nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func registrableDomain(host string) string {
	host = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
