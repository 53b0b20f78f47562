// Package gitmeta extracts per-file change-frequency metrics from git,
// used to annotate persisted method/PDG rows with churn information.
package gitmeta

import (
	"os/exec"
	"strconv"
	"strings"

	"pdgtool/internal/progress"
)

// FileHistory holds per-file git change metrics.
type FileHistory struct {
	RelFile     string
	CommitCount int
	AuthorCount int
	LastAuthor  string
	LastDate    string // ISO 8601
	Insertions  int
	Deletions   int
}

// RunHistory extracts per-file change frequency via `git log --numstat`
// for source files matching ext (e.g. ".java", ".src"). git runs in dir
// with no path filter, so it covers the whole repository containing dir,
// and file paths are relative to that repository's root.
func RunHistory(dir, ext string, prog *progress.Progress) []FileHistory {
	prog.Log("Running git log for file history in %s...", dir)

	cmd := exec.Command("git", "log", "--format=%H %aI %aN", "--numstat", "--no-merges", "-n", "500")
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		prog.Verbose("git history for %s: failed: %v", dir, err)
		return nil
	}

	type fileStats struct {
		commits    map[string]bool
		authors    map[string]bool
		lastAuthor string
		lastDate   string
		ins, del   int
	}
	files := make(map[string]*fileStats)

	var currentAuthor, currentDate string
	var currentCommit string

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Commit header: "abc123 2024-01-01T00:00:00+00:00 Author Name"
		if len(line) > 40 && line[40] == ' ' {
			parts := strings.SplitN(line, " ", 3)
			if len(parts) == 3 {
				currentCommit = parts[0][:12]
				currentDate = parts[1]
				currentAuthor = parts[2]
			}
			continue
		}

		// Numstat line: "123\t456\tpath/to/file"
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		ins, err1 := strconv.Atoi(parts[0])
		del, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue // binary file
		}
		relFile := parts[2]
		if ext != "" && !strings.HasSuffix(relFile, ext) {
			continue
		}

		fs, ok := files[relFile]
		if !ok {
			fs = &fileStats{
				commits: make(map[string]bool),
				authors: make(map[string]bool),
			}
			files[relFile] = fs
		}
		fs.commits[currentCommit] = true
		fs.authors[currentAuthor] = true
		fs.ins += ins
		fs.del += del
		// First commit encountered is most recent (git log is newest-first).
		if fs.lastAuthor == "" {
			fs.lastAuthor = currentAuthor
			fs.lastDate = currentDate
		}
	}

	var results []FileHistory
	for file, fs := range files {
		results = append(results, FileHistory{
			RelFile:     file,
			CommitCount: len(fs.commits),
			AuthorCount: len(fs.authors),
			LastAuthor:  fs.lastAuthor,
			LastDate:    fs.lastDate,
			Insertions:  fs.ins,
			Deletions:   fs.del,
		})
	}

	prog.Log("git history: %d files with change data", len(results))
	return results
}
