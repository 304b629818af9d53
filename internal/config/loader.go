package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateFile is the default platform template file name,
// searched for in the current directory and the XDG config directory.
const DefaultTemplateFile = ".facetrace"

// LoadTemplates loads platform templates from a YAML file and
// validates every entry. A missing file returns ErrTemplatesNotFound
// so callers can distinguish "not configured" from a broken file.
func LoadTemplates(path string) (*Templates, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTemplatesNotFound
		}
		return nil, err
	}

	var ts Templates
	if err := yaml.Unmarshal(data, &ts); err != nil {
		return nil, err
	}

	if ts.Platforms == nil {
		ts.Platforms = make(map[string]PlatformTemplate)
	}

	if err := ts.Validate(); err != nil {
		return nil, err
	}

	return &ts, nil
}

// FindTemplateFile locates the platform template file:
//  1. the explicit path, if given
//  2. .facetrace in the current directory
//  3. .facetrace in the XDG config directory
//
// Returns empty string when nothing is found.
func FindTemplateFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultTemplateFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), DefaultTemplateFile)
	if _, err := os.Stat(p); err == nil {
		return p
	}

	return ""
}

// enabledFalse is used to mark built-in templates that need JS
// rendering and therefore default to off.
var enabledFalse = false

// DefaultTemplates returns the built-in platform template set. It is
// also what the init command writes as a starting point.
//
// Platforms that require JavaScript rendering to produce a useful page
// (twitter, instagram) ship disabled: probing them without a browser
// yields unreliable existence decisions.
func DefaultTemplates() *Templates {
	return &Templates{
		Platforms: map[string]PlatformTemplate{
			"github": {
				URLPattern:        "https://github.com/{}",
				ExistenceStrategy: "github_check",
				AvatarSelector:    "img.avatar",
			},
			"gitlab": {
				URLPattern:        "https://gitlab.com/{}",
				ExistenceStrategy: "gitlab_check",
				AvatarSelector:    ".user-avatar img",
			},
			"stackoverflow": {
				URLPattern:        "https://stackoverflow.com/users/{}",
				ExistenceStrategy: "stackoverflow_check",
				AvatarSelector:    ".avatar img",
			},
			"reddit": {
				URLPattern:        "https://www.reddit.com/user/{}",
				ExistenceStrategy: "reddit_check",
			},
			"artstation": {
				URLPattern:        "https://www.artstation.com/{}",
				ExistenceStrategy: "artstation_check",
				AvatarSelector:    ".profile-image img",
			},
			"deviantart": {
				URLPattern:        "https://www.deviantart.com/{}",
				ExistenceStrategy: "deviantart_check",
				AvatarSelector:    ".avatar img",
			},
			"flickr": {
				URLPattern:        "https://www.flickr.com/people/{}",
				ExistenceStrategy: "flickr_check",
				AvatarSelector:    ".avatar img",
			},
			"500px": {
				URLPattern:        "https://500px.com/p/{}",
				ExistenceStrategy: "500px_check",
				AvatarSelector:    ".avatar img",
			},
			"bandcamp": {
				URLPattern:        "https://bandcamp.com/{}",
				ExistenceStrategy: "bandcamp_check",
				AvatarSelector:    "#profile-image img",
			},
			"keybase": {
				URLPattern:        "https://keybase.io/{}",
				ExistenceStrategy: "keybase_check",
				AvatarSelector:    "img.avatar",
			},
			"aboutme": {
				URLPattern:     "https://about.me/{}",
				AvatarSelector: ".profile_photo img",
			},
			"archive_org": {
				URLPattern:     "https://archive.org/details/@{}",
				AvatarSelector: "img.user-avatar",
			},
			"twitter": {
				URLPattern:        "https://twitter.com/{}",
				ExistenceStrategy: "twitter_check",
				Enabled:           &enabledFalse,
			},
			"instagram": {
				URLPattern:        "https://www.instagram.com/{}/",
				ExistenceStrategy: "instagram_check",
				Enabled:           &enabledFalse,
			},
		},
	}
}

// WriteTemplates marshals templates to YAML at the given path,
// creating parent directories as needed.
func WriteTemplates(ts *Templates, path string) error {
	data, err := yaml.Marshal(ts)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0600)
}
