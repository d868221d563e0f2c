package models

import "strings"

// Category is one storefront entry. Folder doubles as the storage pool
// key; Flag is set for proxy entries only.
type Category struct {
	Name   string
	Folder string
	Price  int64
	Kind   ItemKind
	Flag   string
}

// The catalog is static configuration; changing it is a redeploy.
// Accounts are enumerated before proxies on purpose: the upload matching
// rule depends on this order.
var Accounts = []Category{
	{Name: "FB Marketplace", Folder: "fb_marketplace", Price: 5, Kind: KindAccount},
	{Name: "eBay", Folder: "ebay", Price: 20, Kind: KindAccount},
	{Name: "Kleinanzeigen", Folder: "kleinanzeigen", Price: 20, Kind: KindAccount},
	{Name: "Etsy", Folder: "etsy", Price: 10, Kind: KindAccount},
	{Name: "Vinted", Folder: "vinted", Price: 20, Kind: KindAccount},
	{Name: "Wallapop", Folder: "wallapop", Price: 20, Kind: KindAccount},
}

var Proxies = []Category{
	{Name: "SOCKS5 Germany", Folder: "proxy_de", Price: 3, Kind: KindProxy, Flag: "🇩🇪"},
	{Name: "SOCKS5 Canada", Folder: "proxy_ca", Price: 3, Kind: KindProxy, Flag: "🇨🇦"},
	{Name: "SOCKS5 Hungary", Folder: "proxy_hu", Price: 3, Kind: KindProxy, Flag: "🇭🇺"},
	{Name: "SOCKS5 USA", Folder: "proxy_us", Price: 3, Kind: KindProxy, Flag: "🇺🇸"},
	{Name: "SOCKS5 Singapore", Folder: "proxy_sg", Price: 3, Kind: KindProxy, Flag: "🇸🇬"},
}

// AllCategories returns accounts first, then proxies.
func AllCategories() []Category {
	out := make([]Category, 0, len(Accounts)+len(Proxies))
	out = append(out, Accounts...)
	out = append(out, Proxies...)
	return out
}

// CategoryByFolder resolves a catalog entry by its folder key.
func CategoryByFolder(folder string) (Category, bool) {
	for _, c := range AllCategories() {
		if c.Folder == folder {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryForFilename assigns an uploaded .txt file to the first category
// whose folder key appears as a substring of the lowercased filename,
// accounts before proxies.
func CategoryForFilename(filename string) (Category, bool) {
	name := strings.ToLower(filename)
	if !strings.HasSuffix(name, ".txt") {
		return Category{}, false
	}
	for _, c := range AllCategories() {
		if strings.Contains(name, c.Folder) {
			return c, true
		}
	}
	return Category{}, false
}
