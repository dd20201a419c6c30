package config

import "git.home.luguber.info/inful/echopipe/internal/quality"

// Policy converts the configured constants into a quality.Scoring.
func (s ScoringConfig) Policy() quality.Scoring {
	return quality.Scoring{
		Base:                 s.Base,
		MinLength:            s.MinLength,
		ShortPenalty:         s.ShortPenalty,
		MaxLength:            s.MaxLength,
		LongPenalty:          s.LongPenalty,
		UnknownFormat:        s.UnknownFormat,
		MissingHeading:       s.MissingHeading,
		MissingBold:          s.MissingBold,
		InvalidHTMLStructure: s.InvalidHTMLStructure,
		MissingHTMLHeading:   s.MissingHTMLHeading,
		InvalidJSONLD:        s.InvalidJSONLD,
		Irrelevant:           s.Irrelevant,
	}
}

// ScoringFromPolicy is the inverse of Policy.
func ScoringFromPolicy(p quality.Scoring) ScoringConfig {
	return ScoringConfig{
		Base:                 p.Base,
		MinLength:            p.MinLength,
		ShortPenalty:         p.ShortPenalty,
		MaxLength:            p.MaxLength,
		LongPenalty:          p.LongPenalty,
		UnknownFormat:        p.UnknownFormat,
		MissingHeading:       p.MissingHeading,
		MissingBold:          p.MissingBold,
		InvalidHTMLStructure: p.InvalidHTMLStructure,
		MissingHTMLHeading:   p.MissingHTMLHeading,
		InvalidJSONLD:        p.InvalidJSONLD,
		Irrelevant:           p.Irrelevant,
	}
}
