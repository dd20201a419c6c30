// Package quality scores renderings with structural heuristics and derives a
// cross-format consistency score.
//
// Scoring is deterministic. Every format starts at a base score, each
// violated rule subtracts its penalty and the result is clamped to [0,1].
// The penalties are policy and come from Scoring.
package quality
