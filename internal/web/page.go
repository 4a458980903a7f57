package web

import (
	"embed"
	"html/template"

	"github.com/lightbounty/booking-site/internal/booking"
	"github.com/lightbounty/booking-site/internal/submission"
)

const (
	defaultContactURL = "https://instagram.com/lightbounty"
	studioEmail       = "lightbountyy@gmail.com"
	studioLocation    = "Digital Studio, Global"

	submitLabel     = "Submit Booking Request"
	processingLabel = "Processing..."
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// Tier is one pricing card.
type Tier struct {
	Name        string
	Price       string
	Description string
	Note        string
	Features    []string
	Services    []string
	Recommended bool
}

// Tiers are the pricing cards in display order.
var Tiers = []Tier{
	{
		Name:        "Essential Pack",
		Price:       "99",
		Description: "Perfect for single product launches.",
		Note:        "One-time payment",
		Features: []string{
			"Up to 3 product SKUs",
			"5 high-quality AI visuals",
			"Clean studio look",
			"E-commerce ready",
			"48–72 hours delivery",
			"Standard support",
		},
		Services: []string{"Studio", "E-com"},
	},
	{
		Name:        "Brand Growth",
		Price:       "149",
		Description: "Ideal for growing catalogs.",
		Note:        "Most popular choice",
		Features: []string{
			"Up to 6 product SKUs",
			"6 high-end visuals",
			"Studio + Lifestyle",
			"Custom AI Model",
			"48–72 hours delivery",
			"Priority support",
			"Unlimited revisions",
		},
		Services:    []string{"Lifestyle", "Custom", "Studio"},
		Recommended: true,
	},
	{
		Name:        "Signature Pack",
		Price:       "299",
		Description: "Full campaign-grade production.",
		Note:        "Custom project scope",
		Features: []string{
			"Up to 10 product SKUs",
			"8 high-end visuals",
			"Studio + Lifestyle",
			"Ad concept frames",
			"3–5 working days",
			"Fast support",
			"Unlimited revisions",
			"Art direction included",
		},
		Services: []string{"Campaign", "Ads", "Premium"},
	},
}

type option struct {
	Value    string
	Selected bool
}

type pageData struct {
	Form           booking.Request
	Categories     []option
	Plans          []option
	Tiers          []Tier
	Submitting     bool
	Error          string
	ShowConfirm    bool
	SubmitLabel    string
	ContactURL     string
	StudioEmail    string
	StudioLocation string
}

// newPageData maps the submission state onto what the page shows.
func newPageData(st submission.State, contactURL string) pageData {
	d := pageData{
		Form:           st.Fields,
		Tiers:          Tiers,
		Submitting:     st.Busy(),
		ShowConfirm:    st.ConfirmationOpen(),
		SubmitLabel:    submitLabel,
		ContactURL:     contactURL,
		StudioEmail:    studioEmail,
		StudioLocation: studioLocation,
	}
	if st.Phase == submission.PhaseFailed {
		d.Error = st.LastError
	}
	if d.Submitting {
		d.SubmitLabel = processingLabel
	}
	for _, c := range booking.Categories {
		d.Categories = append(d.Categories, option{Value: string(c), Selected: c == st.Fields.Category})
	}
	for _, p := range booking.Plans {
		d.Plans = append(d.Plans, option{Value: string(p), Selected: p == st.Fields.Plan})
	}
	return d
}
