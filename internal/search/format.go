package search

// FormatMatches derives the externally visible result list from ranked
// matches. Pure and order-preserving: one MatchResult per Match, in the same
// order, with the internal distance dropped. CapturedAt stays null, Drive
// listings provide no capture-time source.
func (s *Service) FormatMatches(matches []Match) []MatchResult {
	results := make([]MatchResult, len(matches))
	for i, m := range matches {
		results[i] = MatchResult{
			PhotoID:    m.File.ID,
			ViewURL:    s.links.ViewURL(m.File.ID),
			ThumbURL:   s.links.ThumbnailURL(m.File.ID),
			CapturedAt: nil,
		}
	}
	return results
}
