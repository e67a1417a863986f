// Package content loads the site copy that parametrizes the storefront
// sections: hero, navigation, promo banner, modal texts and the promo-type
// priority list used when ranking products. The file may be YAML or JSON;
// JSON documents are read through the YAML decoder.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Button is a hero call to action.
type Button struct {
	Label  string `json:"label"  yaml:"label"`
	Action string `json:"action" yaml:"action"` // scrollTo | redirect
	Target string `json:"target" yaml:"target"`
}

// Hero is the landing section copy. Title and Subtitle may contain the
// {businessName} placeholder.
type Hero struct {
	Title                    string   `json:"title"                      yaml:"title"`
	Subtitle                 string   `json:"subtitle"                   yaml:"subtitle"`
	BackgroundImageURL       string   `json:"background_image_url,omitempty" yaml:"background_image_url"`
	BackgroundOverlayOpacity float64  `json:"background_overlay_opacity" yaml:"background_overlay_opacity"`
	Buttons                  []Button `json:"buttons"                    yaml:"buttons"`
}

// NavItem is one header link.
type NavItem struct {
	Label string `json:"label" yaml:"label"`
	Href  string `json:"href"  yaml:"href"`
}

// PromoBanner configures the promo carousel.
type PromoBanner struct {
	Title           string `json:"title"             yaml:"title"`
	Subtitle        string `json:"subtitle"          yaml:"subtitle"`
	AutoplayDelayMS int    `json:"autoplay_delay_ms" yaml:"autoplay_delay_ms"`
}

// Modals holds the texts of the voucher and review dialogs.
type Modals struct {
	VoucherTitle      string `json:"voucher_title"      yaml:"voucher_title"`
	VoucherProcessing string `json:"voucher_processing" yaml:"voucher_processing"`
	VoucherSuccess    string `json:"voucher_success"    yaml:"voucher_success"`
	VoucherTimedOut   string `json:"voucher_timed_out"  yaml:"voucher_timed_out"`
	VoucherFailed     string `json:"voucher_failed"     yaml:"voucher_failed"`
	ReviewTitle       string `json:"review_title"       yaml:"review_title"`
	ReviewSuccess     string `json:"review_success"     yaml:"review_success"`
}

// Site is the whole content document.
type Site struct {
	Hero            Hero        `json:"hero"             yaml:"hero"`
	Navigation      []NavItem   `json:"navigation"       yaml:"navigation"`
	PromoBanner     PromoBanner `json:"promo_banner"     yaml:"promo_banner"`
	Modals          Modals      `json:"modals"           yaml:"modals"`
	PromoPriorities []string    `json:"promo_priorities" yaml:"promo_priorities"`
}

// Default returns the content served when no file is configured.
func Default() *Site {
	return &Site{
		Hero: Hero{
			Title:    "Welcome to {businessName}",
			Subtitle: "Claim exclusive vouchers on the gear you love.",
			Buttons: []Button{
				{Label: "Browse products", Action: "scrollTo", Target: "products"},
				{Label: "Read testimonials", Action: "redirect", Target: "/testimonials"},
			},
		},
		Navigation: []NavItem{
			{Label: "Home", Href: "/"},
			{Label: "Products", Href: "/products"},
			{Label: "Testimonials", Href: "/testimonials"},
		},
		PromoBanner: PromoBanner{Title: "Hot deals", AutoplayDelayMS: 5000},
		Modals: Modals{
			VoucherTitle:      "Claim your voucher",
			VoucherProcessing: "Processing your voucher claim.",
			VoucherSuccess:    "Your voucher is in your inbox!",
			VoucherTimedOut:   "This is taking longer than usual. Check your email later.",
			VoucherFailed:     "We could not deliver the email. Check the address and try again.",
			ReviewTitle:       "Rate this product",
			ReviewSuccess:     "Thank you for your review!",
		},
		PromoPriorities: []string{"black friday", "cyber monday", "christmas", "summer sale", "flash deal", "clearance"},
	}
}

// Load reads and validates the document at path. An empty path or a
// missing file yields Default().
func Load(path string) (*Site, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML or JSON document. Sections left out of the document
// keep their defaults.
func Parse(raw []byte) (*Site, error) {
	s := Default()
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("content: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the values the front-end relies on.
func (s *Site) Validate() error {
	for _, b := range s.Hero.Buttons {
		if b.Action != "scrollTo" && b.Action != "redirect" {
			return fmt.Errorf("content: hero button %q: unknown action %q", b.Label, b.Action)
		}
	}
	if s.Hero.BackgroundOverlayOpacity < 0 || s.Hero.BackgroundOverlayOpacity > 1 {
		return fmt.Errorf("content: background_overlay_opacity must be within [0,1]")
	}
	for _, n := range s.Navigation {
		if !strings.HasPrefix(n.Href, "/") && !strings.HasPrefix(n.Href, "#") &&
			!strings.HasPrefix(n.Href, "https://") && !strings.HasPrefix(n.Href, "http://") {
			return fmt.Errorf("content: navigation %q: href %q must be absolute", n.Label, n.Href)
		}
	}
	if s.PromoBanner.AutoplayDelayMS < 0 {
		return fmt.Errorf("content: autoplay_delay_ms must be >= 0")
	}
	return nil
}

// WithBusinessName returns a copy whose hero texts have the {businessName}
// placeholder filled.
func (s Site) WithBusinessName(name string) Site {
	if name == "" {
		name = "VoucherVerse"
	}
	s.Hero.Title = strings.ReplaceAll(s.Hero.Title, "{businessName}", name)
	s.Hero.Subtitle = strings.ReplaceAll(s.Hero.Subtitle, "{businessName}", name)
	return s
}

// AllowsPath reports whether a front-end page path is reachable from the
// navigation. The home page is always allowed.
func (s *Site) AllowsPath(path string) bool {
	if path == "/" {
		return true
	}
	for _, n := range s.Navigation {
		if n.Href == path {
			return true
		}
	}
	return false
}

// PromoRank returns the position of the first priority keyword contained in
// promoType (case-insensitive), or len(PromoPriorities) when none matches
// or promoType is empty.
func (s *Site) PromoRank(promoType string) int {
	t := strings.ToLower(strings.TrimSpace(promoType))
	if t == "" {
		return len(s.PromoPriorities)
	}
	for i, kw := range s.PromoPriorities {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(t, kw) {
			return i
		}
	}
	return len(s.PromoPriorities)
}
