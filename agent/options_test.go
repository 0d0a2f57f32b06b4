package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/agent"
)

func TestParseScriptTag(t *testing.T) {
	t.Parallel()

	t.Run("explicit endpoint wins", func(t *testing.T) {
		opts := agent.ParseScriptTag(map[string]string{
			"data-site": "site-1",
			"data-api":  "https://collector.example.com/v1/track",
		}, "https://cdn.example.com/agent.js")
		assert.Equal(t, "site-1", opts.SiteID)
		assert.Equal(t, "https://collector.example.com/v1/track", opts.Endpoint)
	})

	t.Run("endpoint inferred from script origin", func(t *testing.T) {
		opts := agent.ParseScriptTag(map[string]string{
			"data-site": "site-1",
		}, "https://sitepulse.example.com/agent.js?v=3")
		assert.Equal(t, "https://sitepulse.example.com/v1/track", opts.Endpoint)
	})

	t.Run("no source leaves endpoint empty", func(t *testing.T) {
		opts := agent.ParseScriptTag(map[string]string{"data-site": "site-1"}, "")
		assert.Empty(t, opts.Endpoint)
	})

	t.Run("cross domains split and trimmed", func(t *testing.T) {
		opts := agent.ParseScriptTag(map[string]string{
			"data-site":         "site-1",
			"data-cross-domain": "partner.com, shop.example.net ,,",
		}, "https://cdn.example.com/agent.js")
		assert.Equal(t, []string{"partner.com", "shop.example.net"}, opts.CrossDomains)
	})
}
