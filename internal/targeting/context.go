package targeting

import (
	"fmt"
	"net"

	"github.com/avct/uasurfer"

	"github.com/openadstack/adselect/internal/geoip"
	"github.com/openadstack/adselect/internal/models"
)

// ResolveRequestContext builds the RequestContext for one selection call.
// Device, OS and browser come from parsing the User-Agent with uasurfer;
// country from the client IP via GeoIP. Contextual fields stay empty when
// the inputs are missing, which makes the corresponding predicates
// indeterminate rather than wrong.
func ResolveRequestContext(customerID, marketplaceID, userAgent, ipString string, g *geoip.GeoIP) models.RequestContext {
	rc := models.RequestContext{CustomerID: customerID, MarketplaceID: marketplaceID}

	if userAgent != "" {
		u := uasurfer.Parse(userAgent)

		switch u.DeviceType {
		case uasurfer.DeviceComputer:
			rc.DeviceType = "desktop"
		case uasurfer.DevicePhone:
			rc.DeviceType = "mobile"
		case uasurfer.DeviceTablet:
			rc.DeviceType = "tablet"
		default:
			rc.DeviceType = "other"
		}

		v := u.OS.Version
		rc.OS = fmt.Sprintf("%s %s %d.%d.%d", u.OS.Platform.String(), u.OS.Name.String(), v.Major, v.Minor, v.Patch)

		bv := u.Browser.Version
		rc.Browser = fmt.Sprintf("%s %d.%d.%d", u.Browser.Name.String(), bv.Major, bv.Minor, bv.Patch)
	}

	if ip := net.ParseIP(ipString); ip != nil && g != nil {
		rc.Country = g.Country(ip)
	}

	return rc
}
