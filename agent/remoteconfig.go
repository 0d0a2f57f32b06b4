package agent

import (
	"encoding/json"
	"strings"
)

// TagDefinition is one injectable tag from the remote configuration
// document. Only custom_script tags are acted on today; unknown types are
// skipped so the document can grow without breaking old agents.
type TagDefinition struct {
	Type   string `json:"type"`
	Config struct {
		URL string `json:"url"`
	} `json:"config"`
}

type remoteConfig struct {
	Tags []TagDefinition `json:"tags"`
}

// loadRemoteConfig fetches the site's tag configuration from the sibling
// config endpoint and injects any custom scripts. Configuration is
// additive: every failure here is silently ignored.
func (a *Agent) loadRemoteConfig() {
	defer func() { _ = recover() }()

	cfgURL := configURL(a.opts.Endpoint)
	if cfgURL == "" || a.fetchConfig == nil {
		return
	}

	body, err := json.Marshal(map[string]string{"site_id": a.opts.SiteID})
	if err != nil {
		return
	}
	data, err := a.fetchConfig(cfgURL, body)
	if err != nil {
		return
	}

	var rc remoteConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return
	}
	for _, t := range rc.Tags {
		if t.Type == "custom_script" && t.Config.URL != "" {
			a.page.InjectScript(t.Config.URL)
		}
	}
}

// configURL derives the configuration endpoint from the collector
// endpoint by swapping the trailing /track path segment for /config.
func configURL(endpoint string) string {
	i := strings.LastIndex(endpoint, "/track")
	if i < 0 {
		return ""
	}
	return endpoint[:i] + "/config" + endpoint[i+len("/track"):]
}
