// Package scrape talks to the remote video platform: it derives stable
// identities from user-supplied locators, fetches and merges per-video
// metadata, and enumerates collection members.
package scrape

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var ErrBadLocator = errors.New("unrecognized locator")

// Identity patterns compiled once at package init.
var (
	reVideoID      = regexp.MustCompile(`^[A-Za-z0-9_-]{4,64}$`)
	reCollectionID = regexp.MustCompile(`^@?[A-Za-z0-9._-]{2,64}$`)
	reWatchPath    = regexp.MustCompile(`^/(?:watch|video|embed)/([A-Za-z0-9_-]+)`)
	reHandlePath   = regexp.MustCompile(`^/(@[A-Za-z0-9._-]+)`)
	reChannelPath  = regexp.MustCompile(`^/(?:channel|collection)/([A-Za-z0-9._-]+)`)
)

// VideoIDFromLocator derives the stable video identity from a locator.
// A locator is either a raw video ID or a URL to a watch page.
func VideoIDFromLocator(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("%w: empty locator", ErrBadLocator)
	}

	if !strings.Contains(locator, "://") {
		if reVideoID.MatchString(locator) {
			return locator, nil
		}
		return "", fmt.Errorf("%w: %q is not a video id", ErrBadLocator, locator)
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadLocator, err)
	}

	if m := reWatchPath.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	if v := u.Query().Get("v"); v != "" && reVideoID.MatchString(v) {
		return v, nil
	}
	return "", fmt.Errorf("%w: no video id in %q", ErrBadLocator, locator)
}

// CollectionIDFromLocator derives the stable collection identity from a
// locator: a raw collection ID, an @handle, or a URL to a channel or
// collection page.
func CollectionIDFromLocator(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", fmt.Errorf("%w: empty locator", ErrBadLocator)
	}

	if !strings.Contains(locator, "://") {
		if reCollectionID.MatchString(locator) {
			return strings.TrimPrefix(locator, "@"), nil
		}
		return "", fmt.Errorf("%w: %q is not a collection id", ErrBadLocator, locator)
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadLocator, err)
	}

	if m := reHandlePath.FindStringSubmatch(u.Path); m != nil {
		return strings.TrimPrefix(m[1], "@"), nil
	}
	if m := reChannelPath.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	if list := u.Query().Get("list"); list != "" && reCollectionID.MatchString(list) {
		return list, nil
	}
	return "", fmt.Errorf("%w: no collection id in %q", ErrBadLocator, locator)
}
