package gitlib

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LogPrettyFormat is the pretty format handed to `git log`; the header
// regexp below matches it.
const LogPrettyFormat = "--pretty=format:<%ad> <%H> <%aN> <%aE>"

var (
	commitInfoRegexp   = regexp.MustCompile(`<(.*?)> <(.*)> <(.*)> <(.*?)>`)
	commitChangeRegexp = regexp.MustCompile(`([0-9-]+)\t([0-9-]+)\t(.*)`)
)

// ErrInvalidCommitFormat indicates the commit header line did not match the
// expected pretty format.
var ErrInvalidCommitFormat = errors.New("invalid commit format")

// ErrInvalidChangeFormat indicates a numstat row did not match the expected
// tab-separated format.
var ErrInvalidChangeFormat = errors.New("invalid change format")

// rfc2822Layout matches the output of `git log --date=rfc`.
const rfc2822Layout = "Mon, 2 Jan 2006 15:04:05 -0700"

// ToRFC3339 normalizes an RFC 2822 git datetime to RFC 3339. Malformed
// inputs yield the empty string rather than an error so a single bad
// commit never aborts the pipeline.
func ToRFC3339(datetime string) string {
	t, err := time.Parse(rfc2822Layout, datetime)
	if err != nil {
		return ""
	}

	return t.Format(time.RFC3339)
}

// NormalizeExt extracts the normalized extension from a path: the text
// after the final dot, with one trailing non-alphanumeric character
// stripped (numstat rename braces leave punctuation behind). Paths without
// an extension yield the empty string; a dotfile whose only dot is the
// leading one (".gitignore") is extensionless.
func NormalizeExt(path string) string {
	base := filepath.Base(path)

	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return ""
	}

	ext = ext[1:]
	if ext == "" {
		return ""
	}

	last := ext[len(ext)-1]
	if !isASCIIAlphanumeric(last) {
		ext = ext[:len(ext)-1]
	}

	return ext
}

func isASCIIAlphanumeric(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// ParseCommit parses one commit block: a header line followed by zero or
// more numstat rows. Author mappings are applied on exact (name, email)
// match; the first match wins. Changes are grouped by normalized extension.
func ParseCommit(lines []string, mappings []AuthorMapping) (*Commit, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidCommitFormat)
	}

	commit := &Commit{}

	headerErr := parseCommitInfo(commit, lines[0], mappings)
	if headerErr != nil {
		return nil, headerErr
	}

	changesErr := parseCommitChanges(commit, lines[1:])
	if changesErr != nil {
		return nil, changesErr
	}

	return commit, nil
}

func parseCommitInfo(commit *Commit, line string, mappings []AuthorMapping) error {
	caps := commitInfoRegexp.FindStringSubmatch(line)
	if caps == nil {
		return fmt.Errorf("%w: %s", ErrInvalidCommitFormat, line)
	}

	commit.Datetime = caps[1]
	commit.Hash = caps[2]
	commit.Author.Name = caps[3]
	commit.Author.Email = caps[4]

	for _, mapping := range mappings {
		if commit.Author == mapping.Source {
			commit.Author = mapping.Destination

			break
		}
	}

	return nil
}

func parseCommitChanges(commit *Commit, lines []string) error {
	changes := make(map[string]*FileExtChange)
	count := 0

	for _, line := range lines {
		count++

		caps := commitChangeRegexp.FindStringSubmatch(line)
		if caps == nil {
			return fmt.Errorf("%w: %s", ErrInvalidChangeFormat, line)
		}

		// A "-" field marks binary content; it counts as zero.
		insertion, _ := strconv.Atoi(caps[1])
		deletion, _ := strconv.Atoi(caps[2])
		ext := NormalizeExt(caps[3])

		change, ok := changes[ext]
		if !ok {
			change = &FileExtChange{Ext: ext}
			changes[ext] = change
		}

		change.Insertion += insertion
		change.Deletion += deletion
	}

	grouped := make([]FileExtChange, 0, len(changes))
	for _, change := range changes {
		grouped = append(grouped, *change)
	}

	sort.Slice(grouped, func(i, j int) bool { return grouped[i].Ext < grouped[j].Ext })

	commit.Changes = grouped
	commit.ChangeFiles = count

	return nil
}

// submoduleMode is the ls-tree entry mode of a gitlink; such entries carry
// no blob size and are skipped.
const submoduleMode = "106000"

// lsTreeFieldCount is the minimum field count of a `ls-tree -r -l -z` entry:
// mode, type, hash, size, path.
const lsTreeFieldCount = 5

// ParseFileExtStats aggregates `git ls-tree -r -l -z` entries into
// per-extension size and file counters. Submodule entries and entries
// without an extension are skipped.
func ParseFileExtStats(lines []string) []FileExtStat {
	stats := make(map[string]*FileExtStat)

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < lsTreeFieldCount {
			continue
		}

		if fields[0] == submoduleMode {
			continue
		}

		ext := NormalizeExt(fields[4])
		if ext == "" {
			continue
		}

		size, _ := strconv.ParseInt(fields[3], 10, 64)

		stat, ok := stats[ext]
		if !ok {
			stat = &FileExtStat{Ext: ext}
			stats[ext] = stat
		}

		stat.Size += size
		stat.Files++
	}

	aggregated := make([]FileExtStat, 0, len(stats))
	for _, stat := range stats {
		aggregated = append(aggregated, *stat)
	}

	sort.Slice(aggregated, func(i, j int) bool { return aggregated[i].Ext < aggregated[j].Ext })

	return aggregated
}

// SplitCommitBlocks groups raw `git log --numstat` lines into per-commit
// blocks, each starting at a pretty-format header line.
func SplitCommitBlocks(lines []string) [][]string {
	var indexes []int

	for idx, line := range lines {
		if strings.HasPrefix(line, "<") {
			indexes = append(indexes, idx)
		}
	}

	indexes = append(indexes, len(lines))

	blocks := make([][]string, 0, len(indexes))
	for i := 1; i < len(indexes); i++ {
		blocks = append(blocks, lines[indexes[i-1]:indexes[i]])
	}

	return blocks
}
