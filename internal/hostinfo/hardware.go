package hostinfo

import (
	"strings"

	"github.com/jaypipes/ghw"
)

// hardwareNames collects product and GPU identifiers via ghw. ghw
// reads DMI and PCI data that may be absent or unreadable in
// containers, so every probe failure yields nothing.
func hardwareNames() []string {
	var lines []string

	if product, err := ghw.Product(); err == nil && product != nil {
		name := strings.TrimSpace(product.Vendor + " " + product.Name)
		if name != "" && !strings.EqualFold(name, "unknown") {
			lines = append(lines, "product: "+name)
		}
	}

	if gpu, err := ghw.GPU(); err == nil && gpu != nil {
		var names []string
		for _, card := range gpu.GraphicsCards {
			if card.DeviceInfo == nil {
				continue
			}
			var parts []string
			if card.DeviceInfo.Vendor != nil {
				parts = append(parts, card.DeviceInfo.Vendor.Name)
			}
			if card.DeviceInfo.Product != nil {
				parts = append(parts, card.DeviceInfo.Product.Name)
			}
			if name := strings.TrimSpace(strings.Join(parts, " ")); name != "" {
				names = append(names, name)
			}
		}
		lines = append(lines, formatNames("gpu", sortedUnique(names))...)
	}

	return lines
}
