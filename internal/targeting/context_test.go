package targeting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadstack/adselect/internal/geoip"
)

func writeGeoFixture(t *testing.T) *geoip.GeoIP {
	t.Helper()
	entries := []map[string]string{
		{"net": "203.0.113.0/24", "country": "US"},
		{"net": "198.51.100.0/24", "country": "DE"},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "geo.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	g, err := geoip.Init(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestResolveRequestContextFromUA(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		wantDevice string
	}{
		{
			name:       "desktop chrome",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			wantDevice: "desktop",
		},
		{
			name:       "iphone safari",
			userAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			wantDevice: "mobile",
		},
		{
			name:       "ipad safari",
			userAgent:  "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
			wantDevice: "tablet",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rc := ResolveRequestContext("cust-1", "M1", tc.userAgent, "", nil)
			assert.Equal(t, "cust-1", rc.CustomerID)
			assert.Equal(t, "M1", rc.MarketplaceID)
			assert.Equal(t, tc.wantDevice, rc.DeviceType)
			assert.NotEmpty(t, rc.OS)
			assert.NotEmpty(t, rc.Browser)
		})
	}
}

func TestResolveRequestContextWithoutUA(t *testing.T) {
	rc := ResolveRequestContext("", "M1", "", "", nil)
	assert.Empty(t, rc.DeviceType)
	assert.Empty(t, rc.OS)
	assert.Empty(t, rc.Browser)
	assert.Empty(t, rc.Country)
	assert.False(t, rc.Recognized())
}

func TestResolveRequestContextGeo(t *testing.T) {
	g := writeGeoFixture(t)

	rc := ResolveRequestContext("cust-1", "M1", "", "203.0.113.7", g)
	assert.Equal(t, "US", rc.Country)

	rc = ResolveRequestContext("cust-1", "M1", "", "198.51.100.9", g)
	assert.Equal(t, "DE", rc.Country)

	rc = ResolveRequestContext("cust-1", "M1", "", "192.0.2.1", g)
	assert.Empty(t, rc.Country)

	rc = ResolveRequestContext("cust-1", "M1", "", "not-an-ip", g)
	assert.Empty(t, rc.Country)
}
