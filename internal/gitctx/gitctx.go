package gitctx

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dshills/cardmark/internal/redact"
)

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	Exclude []string
}

// DiffResult holds the collected diff and metadata.
type DiffResult struct {
	Diff  string
	Files []string
	Mode  string
	Range string
	Repo  RepoMeta
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// Line is a line added by a diff.
type Line struct {
	Path   string
	Number int
	Text   string
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta() (RepoMeta, error) {
	root, err := gitOutput("rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Unstaged returns the diff of working tree vs index.
func Unstaged(opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput("diff", "-U0", "--no-color")
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return buildResult(diff, "unstaged", "", opts), nil
}

// Staged returns the diff of index vs HEAD.
func Staged(opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput("diff", "--cached", "-U0", "--no-color")
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return buildResult(diff, "staged", "", opts), nil
}

// Commit returns the diff introduced by a single commit.
func Commit(sha string, opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput("show", "--format=", "-U0", "--no-color", sha)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git show %s: %w", sha, err)
	}
	return buildResult(diff, "commit", sha, opts), nil
}

// Range returns the combined diff for a revision range.
func Range(revRange string, mergeBase bool, opts DiffOptions) (DiffResult, error) {
	diffRange := revRange
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		diffRange = strings.Replace(revRange, "..", "...", 1)
	}
	diff, err := gitOutput("diff", "-U0", "--no-color", diffRange)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return buildResult(diff, "range", revRange, opts), nil
}

func buildResult(diff, mode, rangeStr string, opts DiffOptions) DiffResult {
	meta, err := GetRepoMeta()
	if err != nil {
		meta = RepoMeta{}
	}
	if len(opts.Exclude) > 0 {
		diff = filterExcluded(diff, opts.Exclude)
	}
	return DiffResult{
		Diff:  diff,
		Files: extractFiles(diff),
		Mode:  mode,
		Range: rangeStr,
		Repo:  meta,
	}
}

// AddedLines returns every line the diff adds, with its path and line
// number in the new version of the file. File headers are only recognised
// between hunks, so added text that itself starts with "++ " stays content.
func AddedLines(diff string) []Line {
	var lines []Line
	var path string
	var h hunk
	for _, raw := range strings.Split(diff, "\n") {
		if h.open() {
			switch {
			case strings.HasPrefix(raw, "+"):
				if path != "" {
					lines = append(lines, Line{Path: path, Number: h.next, Text: raw[1:]})
				}
				h.next++
				h.newLeft--
			case strings.HasPrefix(raw, "-"):
				h.oldLeft--
			case strings.HasPrefix(raw, " "):
				h.next++
				h.newLeft--
				h.oldLeft--
			}
			// "\ No newline at end of file" consumes nothing.
			continue
		}
		switch {
		case strings.HasPrefix(raw, "+++ "):
			path = strings.TrimPrefix(strings.TrimPrefix(raw, "+++ "), "b/")
			if path == "/dev/null" {
				path = ""
			}
		case strings.HasPrefix(raw, "@@"):
			h = parseHunk(raw)
		}
	}
	return lines
}

// hunk tracks the lines still expected in the current hunk.
type hunk struct {
	next    int
	oldLeft int
	newLeft int
}

func (h hunk) open() bool {
	return h.oldLeft > 0 || h.newLeft > 0
}

// parseHunk parses "@@ -a,b +c,d @@". An omitted count means 1.
func parseHunk(header string) hunk {
	fields := strings.Fields(header)
	if len(fields) < 3 || !strings.HasPrefix(fields[1], "-") || !strings.HasPrefix(fields[2], "+") {
		return hunk{}
	}
	_, oldCount, ok := parseRange(fields[1][1:])
	if !ok {
		return hunk{}
	}
	start, newCount, ok := parseRange(fields[2][1:])
	if !ok {
		return hunk{}
	}
	return hunk{next: start, oldLeft: oldCount, newLeft: newCount}
}

func parseRange(s string) (start, count int, ok bool) {
	startStr, countStr, hasCount := strings.Cut(s, ",")
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, false
	}
	count = 1
	if hasCount {
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return 0, 0, false
		}
	}
	return start, count, true
}

func extractFiles(diff string) []string {
	var files []string
	seen := make(map[string]bool)
	for _, section := range splitDiffSections(diff) {
		f := extractPathFromSection(section)
		if f != "" && !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	return files
}

func filterExcluded(diff string, excludes []string) string {
	sections := splitDiffSections(diff)
	var kept []string
	for _, section := range sections {
		path := extractPathFromSection(section)
		if path == "" || !redact.ShouldSkipPath(path, excludes) {
			kept = append(kept, section)
		}
	}
	return strings.Join(kept, "")
}

func splitDiffSections(diff string) []string {
	var sections []string
	var current strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "diff --git") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

// extractPathFromSection returns the new path from the first "+++ b/"
// header, which always precedes the section's hunks.
func extractPathFromSection(section string) string {
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "@@") {
			break
		}
		if strings.HasPrefix(line, "+++ b/") {
			return strings.TrimPrefix(line, "+++ b/")
		}
	}
	return ""
}

func gitOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}
