package catalog

import (
	"net/url"
	"strings"
)

// PlaceholderImage is shown for products without an image.
const PlaceholderImage = "/placeholder-food.png"

// URLs resolves asset and viewer links.
type URLs struct {
	AssetBase string
	Frontend  string
}

// Image resolves a product image reference. Absolute URLs are kept,
// server-relative paths are joined to the asset origin.
func (u URLs) Image(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return PlaceholderImage
	}
	if parsed, err := url.Parse(ref); err == nil && parsed.IsAbs() {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	base := strings.TrimRight(u.AssetBase, "/")
	if base == "" {
		return ref
	}
	return base + "/" + strings.TrimLeft(ref, "/")
}

// Viewer returns the public 3D viewer page for a product.
func (u URLs) Viewer(productID string) string {
	return strings.TrimRight(u.Frontend, "/") + "/view-3d/" + url.PathEscape(productID)
}
