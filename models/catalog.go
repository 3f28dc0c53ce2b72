package models

// Product is a sellable catalog entry. Prices are whole cents.
type Product struct {
	Ref        string `json:"ref"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Type       string `json:"type"`
	Category   string `json:"category"`
}

var catalog = []Product{
	{Ref: "dark-roast-ui-kit", Name: "Backdoor Audit", PriceCents: 19900, Type: "Digital Download", Category: "Audits (Services)"},
	{Ref: "espresso-landing-template", Name: "Surface Scan", PriceCents: 29900, Type: "Digital Download", Category: "Scanning Tools (Services)"},
	{Ref: "cold-brew-icon-pack", Name: "Logs Analyzer", PriceCents: 15000, Type: "Digital Download", Category: "Beans Logs (Assets)"},
	{Ref: "latte-copy-pack", Name: "Silent Patch", PriceCents: 10000, Type: "Digital Download", Category: "Bug-fix & cleanup service"},
	{Ref: "beans-and-bugs-audit", Name: "Beans & SMTP setup", PriceCents: 40000, Type: "Digital Download", Category: "Brew SMTP Tools (Services)"},
	{Ref: "mocha-resume-template", Name: "Mocha Encrypted beans", PriceCents: 25000, Type: "Digital Download", Category: "Roasts (Keys & Assets)"},
}

// Catalog returns a copy of the fixed product list in display order.
func Catalog() []Product {
	out := make([]Product, len(catalog))
	copy(out, catalog)
	return out
}

// FindProduct looks a product up by its ref.
func FindProduct(ref string) (Product, bool) {
	for _, p := range catalog {
		if p.Ref == ref {
			return p, true
		}
	}
	return Product{}, false
}
