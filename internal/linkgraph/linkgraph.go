// Package linkgraph implements the Link Parser (§4.6): scanning a Page's
// markdown body for `[[title]]` references, resolving them against a
// Library's saved Pages, and persisting the resulting directed edges.
package linkgraph

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/flabwick/papyrus/internal/models"
	"github.com/flabwick/papyrus/internal/store"
)

// linkPattern matches `[[title]]`; the title itself may not contain `]` or a
// newline, matching how headings and hashtags are kept out of link text.
var linkPattern = regexp.MustCompile(`\[\[([^\]\n]+)\]\]`)

// ParsedLink is one `[[title]]` occurrence found in a body, before
// resolution against the Metadata Store.
type ParsedLink struct {
	Title    string
	Position int
}

// Parse scans body and returns every `[[title]]` occurrence in order, with
// Title trimmed of surrounding whitespace. Empty titles ("[[]]") are
// skipped.
func Parse(body string) []ParsedLink {
	matches := linkPattern.FindAllStringSubmatchIndex(body, -1)
	out := make([]ParsedLink, 0, len(matches))
	for _, m := range matches {
		title := strings.TrimSpace(body[m[2]:m[3]])
		if title == "" {
			continue
		}
		out = append(out, ParsedLink{Title: title, Position: m[0]})
	}
	return out
}

// Graph ties link parsing to the Metadata Store's LinkStore and PageStore.
type Graph struct {
	links store.LinkStore
	pages store.PageStore
}

// New constructs a Graph over the given stores.
func New(links store.LinkStore, pages store.PageStore) *Graph {
	return &Graph{links: links, pages: pages}
}

// Reparse replaces sourcePageID's outgoing links with those parsed from
// body, resolving each title against libraryID's saved Pages. Unresolvable
// titles are persisted with a nil TargetPageID ("broken link") so they can
// be repaired later by ReresolveBrokenLinksTo once a matching Page is
// created (§4.6).
func (g *Graph) Reparse(ctx context.Context, libraryID, sourcePageID, body string) error {
	parsed := Parse(body)
	links := make([]models.PageLink, 0, len(parsed))

	for _, p := range parsed {
		var target *string
		if id, ok, err := g.links.ResolveTitle(ctx, libraryID, p.Title); err != nil {
			return fmt.Errorf("resolve link title %q: %w", p.Title, err)
		} else if ok {
			target = &id
		}
		links = append(links, models.PageLink{
			SourcePageID: sourcePageID,
			TargetPageID: target,
			LinkText:     p.Title,
			Position:     p.Position,
		})
	}

	if err := g.links.ReplaceLinks(ctx, sourcePageID, links); err != nil {
		return fmt.Errorf("replace links: %w", err)
	}
	return nil
}

// OnPageSaved repairs any broken links in libraryID whose text matches the
// newly saved page's title, re-pointing them at pageID. Called after a Page
// is created or renamed to a non-empty title (§4.6, §4.7).
func (g *Graph) OnPageSaved(ctx context.Context, libraryID, title, pageID string) error {
	if err := g.links.ReresolveBrokenLinksTo(ctx, libraryID, title, pageID); err != nil {
		return fmt.Errorf("reresolve broken links to %q: %w", title, err)
	}
	return nil
}

// Forward returns the outgoing links of pageID, in body order.
func (g *Graph) Forward(ctx context.Context, pageID string) ([]models.PageLink, error) {
	links, err := g.links.ForwardLinks(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("forward links: %w", err)
	}
	return links, nil
}

// Backlinks returns the incoming links to pageID.
func (g *Graph) Backlinks(ctx context.Context, pageID string) ([]models.PageLink, error) {
	links, err := g.links.Backlinks(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("backlinks: %w", err)
	}
	return links, nil
}

// Health reports a Page's link health: the fraction of its outgoing links
// that resolve to an existing Page. A Page with no outgoing links reports a
// health of 1.0.
func Health(links []models.PageLink) float64 {
	if len(links) == 0 {
		return 1.0
	}
	resolved := 0
	for _, l := range links {
		if l.TargetPageID != nil {
			resolved++
		}
	}
	return float64(resolved) / float64(len(links))
}
