// Package gitctx extracts diffs from a git repository and reduces them to the
// lines they add.
//
// It supports the unstaged, staged, commit and range modes by shelling out
// to git. Only added lines are scanned: a card number that a change removes
// is not a new leak. Results are filtered by exclude glob patterns.
package gitctx
