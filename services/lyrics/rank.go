package lyrics

// Score rates how much information a parse result carries. Synced beats
// unsynced, word timing and translations add to it.
func Score(s SemanticLyrics) int {
	switch v := s.(type) {
	case *SyncedLyrics:
		score := 2
		if v.HasWords() {
			score += 2
		}
		if v.HasTranslation() {
			score++
		}
		return score
	case *UnsyncedLyrics:
		return 1
	default:
		return 0
	}
}

// Best returns the highest scoring candidate. Candidates are expected
// best-first, so ties keep the earlier one.
func Best(candidates []SemanticLyrics) SemanticLyrics {
	var best SemanticLyrics
	bestScore := 0
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if score := Score(c); best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}
