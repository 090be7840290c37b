package models

// Tier is the quote freshness tier to request, driven by the market state:
// live ticks while the market is open, the frozen (last settled) snapshot
// while it is closed, and the delayed fallback when the state is unknown.
type Tier string

const (
	// TierLive requests real-time ticks from the primary source.
	TierLive Tier = "live"
	// TierFrozen requests the last settled snapshot from the primary source.
	TierFrozen Tier = "frozen"
	// TierDelayed routes straight to the fallback delayed source.
	TierDelayed Tier = "delayed"
)

// SourceTag returns the provenance tag a quote served at this tier carries.
func (t Tier) SourceTag() QuoteSource {
	switch t {
	case TierLive:
		return SourcePrimaryLive
	case TierFrozen:
		return SourcePrimaryFrozen
	default:
		return SourceFallbackDelayed
	}
}
