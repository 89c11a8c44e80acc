package nurture

import "math/rand"

// ContentItem is side content attached to a touchpoint: a case study or a
// practical tip, tagged with the niche it speaks to.
type ContentItem struct {
	Niche string `json:"niche"`
	Kind  string `json:"kind"` // case_study, tip
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Static content catalog. Loaded once; never mutated at runtime.
var contentCatalog = []ContentItem{
	{Niche: "retail", Kind: "case_study", Title: "How a boutique retailer doubled repeat purchases", URL: "https://example.com/cases/retail-repeat"},
	{Niche: "retail", Kind: "tip", Title: "Win-back emails that actually get opened", URL: "https://example.com/tips/winback"},
	{Niche: "saas", Kind: "case_study", Title: "Cutting SaaS churn with onboarding sequences", URL: "https://example.com/cases/saas-churn"},
	{Niche: "saas", Kind: "tip", Title: "Three activation emails every trial needs", URL: "https://example.com/tips/activation"},
	{Niche: "services", Kind: "case_study", Title: "A consultancy's referral engine, rebuilt", URL: "https://example.com/cases/referrals"},
	{Niche: "services", Kind: "tip", Title: "Follow-up cadence for proposal season", URL: "https://example.com/tips/proposals"},
	{Niche: "hospitality", Kind: "case_study", Title: "Filling quiet weeknights with past guests", URL: "https://example.com/cases/weeknights"},
	{Niche: "hospitality", Kind: "tip", Title: "Pre-arrival messages guests reply to", URL: "https://example.com/tips/pre-arrival"},
}

// pickContent selects content for a lead's niche. With no niche match it
// falls back to a pseudo-random entry from the whole catalog, so callers that
// need determinism must seed rng.
func pickContent(niche, kind string, rng *rand.Rand) ContentItem {
	var matches []ContentItem
	for _, item := range contentCatalog {
		if item.Niche == niche && item.Kind == kind {
			matches = append(matches, item)
		}
	}
	if len(matches) > 0 {
		return matches[0]
	}

	var anyKind []ContentItem
	for _, item := range contentCatalog {
		if item.Kind == kind {
			anyKind = append(anyKind, item)
		}
	}
	if len(anyKind) == 0 {
		anyKind = contentCatalog
	}
	return anyKind[rng.Intn(len(anyKind))]
}
