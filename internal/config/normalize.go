package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if cookies := strings.TrimSpace(c.MediaFetch.CookiesPath); cookies != "" {
		if c.MediaFetch.CookiesPath, err = expandPath(cookies); err != nil {
			return err
		}
	}

	langs := make([]string, 0, len(c.Captions.PreferredLanguages))
	for _, lang := range c.Captions.PreferredLanguages {
		if trimmed := strings.ToLower(strings.TrimSpace(lang)); trimmed != "" {
			langs = append(langs, trimmed)
		}
	}
	if len(langs) > 0 {
		c.Captions.PreferredLanguages = langs
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
