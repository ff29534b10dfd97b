// Package artifact persists generated content as .md files in a flat output
// directory, one file per request, named deterministically from the goal.
//
// Files carry a YAML frontmatter block with generation metadata and are
// written atomically (write .tmp then rename) so a crash mid-write never
// leaves a partial artifact visible under the final name. The directory
// listing is the catalog; nothing here deletes or rewrites.
package artifact

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/hazyhaar/plume/horosafe"
)

// SlugLen is how many characters of the goal feed the filename slug.
const SlugLen = 60

// Artifact describes one persisted file.
type Artifact struct {
	Filename  string
	Path      string
	Content   string
	CreatedAt time.Time
}

// Meta is the frontmatter recorded with each artifact.
type Meta struct {
	GoalHash  string
	Kind      string
	Tone      string
	SourceURL string
	TraceID   string
}

// Writer deposits artifacts into a single flat directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a Writer targeting dir. The directory is created on
// first write if it does not exist.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Persist writes content under a filename derived from the goal. Two goals
// that slugify identically still get distinct names through the content
// hash suffix.
func (w *Writer) Persist(ctx context.Context, meta Meta, goal, content string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: mkdir %s: %w", w.dir, err)
	}

	createdAt := w.now().UTC()
	filename := Filename(goal, content)

	target, err := horosafe.SafePath(w.dir, filename)
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	tmp := target + ".tmp"

	body := formatFrontmatter(meta, createdAt) + content + "\n"

	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("artifact: write tmp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("artifact: rename: %w", err)
	}

	return &Artifact{
		Filename:  filename,
		Path:      target,
		Content:   content,
		CreatedAt: createdAt,
	}, nil
}

// Filename is the pure naming function: <slug>-<hash8>.md.
func Filename(goal, content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s-%x.md", Slug(goal, SlugLen), h[:4])
}

// Slug lowercases the first maxLen runes of s and maps runs of
// non-alphanumerics to single hyphens.
func Slug(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	var sb strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		case !lastHyphen:
			sb.WriteByte('-')
			lastHyphen = true
		}
	}

	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		return "goal"
	}
	return slug
}

func formatFrontmatter(m Meta, createdAt time.Time) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "goal_hash: %s\n", m.GoalHash)
	fmt.Fprintf(&sb, "kind: %s\n", m.Kind)
	fmt.Fprintf(&sb, "tone: %s\n", m.Tone)
	if m.SourceURL != "" {
		fmt.Fprintf(&sb, "source_url: %s\n", m.SourceURL)
	}
	if m.TraceID != "" {
		fmt.Fprintf(&sb, "trace_id: %s\n", m.TraceID)
	}
	fmt.Fprintf(&sb, "created_at: %s\n", createdAt.Format(time.RFC3339))
	sb.WriteString("---\n\n")
	return sb.String()
}
