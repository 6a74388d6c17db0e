// Package cardid detects likely credit-card numbers in free-form text and
// annotates them in place.
//
// Detection runs in four steps:
//  1. Fragmentation: the text is broken into suspected fragments, either
//     strict digit runs ([LevelStrict]) or digit runs interrupted by
//     non-letter separators ([LevelLoose]).
//  2. Extraction: each fragment is reduced to a digits-only candidate.
//  3. Scoring: candidates that are possible card numbers are scored from
//     four signals (known test numbers, Luhn checksum, issuer prefix,
//     length) weighted by [Weights].
//  4. Annotation: fragments whose score clears a threshold are wrapped as
//     {{fragment}[LABEL]}.
//
// Use [New] to build an [Identifier], then [Identifier.Inspect] for alert-only
// marking or [Identifier.InspectWithNotices] for two-tier marking.
// Markers already present in the input are left untouched, so inspecting the
// output of a previous call is a no-op.
package cardid
