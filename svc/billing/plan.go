package billing

// Plan is the entitlement tier attached to a user. Every user carries one;
// paid tiers come from an activated subscription and fall back to PlanFree
// on expiration.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// Unlimited indicates no limit for a resource.
const Unlimited int64 = -1

// PlanSpec describes a plan tier's price, duration, and posting limits.
type PlanSpec struct {
	Plan             Plan
	PriceIDR         int64 // price in whole rupiah; 0 for the free tier
	DurationDays     int
	JobLimit         int64 // max open job postings, Unlimited for no cap
	FeaturedJobLimit int64 // max open featured postings, Unlimited for no cap
}

// Purchasable reports whether the plan can be bought through the gateway.
func (s PlanSpec) Purchasable() bool {
	return s.PriceIDR > 0
}

// planCatalog is the static plan table. Prices are in IDR, durations in
// days. The free tier exists only as the default entitlement and is never
// sold.
var planCatalog = map[Plan]PlanSpec{
	PlanFree:       {Plan: PlanFree, PriceIDR: 0, DurationDays: 0, JobLimit: 1, FeaturedJobLimit: 0},
	PlanBasic:      {Plan: PlanBasic, PriceIDR: 49000, DurationDays: 30, JobLimit: 3, FeaturedJobLimit: 1},
	PlanPremium:    {Plan: PlanPremium, PriceIDR: 89000, DurationDays: 30, JobLimit: Unlimited, FeaturedJobLimit: Unlimited},
	PlanEnterprise: {Plan: PlanEnterprise, PriceIDR: 149000, DurationDays: 30, JobLimit: Unlimited, FeaturedJobLimit: Unlimited},
}

// LookupPlan returns the spec for a plan tier.
func LookupPlan(p Plan) (PlanSpec, bool) {
	spec, ok := planCatalog[p]
	return spec, ok
}

// JobLimit returns the open-postings cap for a plan. Unknown plans get the
// free tier's cap so a corrupted user record fails closed, not open.
func JobLimit(p Plan) int64 {
	if spec, ok := planCatalog[p]; ok {
		return spec.JobLimit
	}
	return planCatalog[PlanFree].JobLimit
}

// FeaturedJobLimit returns the open-featured-postings cap for a plan.
func FeaturedJobLimit(p Plan) int64 {
	if spec, ok := planCatalog[p]; ok {
		return spec.FeaturedJobLimit
	}
	return planCatalog[PlanFree].FeaturedJobLimit
}
