// Cardmark is a CLI that finds credit card numbers in text and marks, masks
// or reports them.
//
// It scans files, standard input and the lines added by git changes, scoring
// each digit fragment by Luhn validity, known test numbers, issuer prefixes
// and length. Exit codes are deterministic, so it fits CI gating and git hooks.
//
// Usage:
//
//	cardmark scan notes.txt               # print notes.txt with card numbers marked
//	cat dump.log | cardmark scan --mode mask   # mask card numbers on stdin
//	cardmark scan --mode report --format sarif ./logs/*.log
//	cardmark diff staged                  # scan lines added in the index
//	cardmark diff range origin/main..HEAD # scan a revision range
//	cardmark score 4111111111111111       # print the score breakdown
//	cardmark hook install                 # block commits that add card numbers
package main
