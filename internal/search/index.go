// Package search narrows a story collection to the stories matching a
// free-text query, using a throwaway in-memory bleve index.
package search

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/snooze/internal/model"
)

// MinQueryLength is the shortest query that filters anything.
const MinQueryLength = 2

// field boosts, highest first
var fieldBoosts = []struct {
	name  string
	boost float64
}{
	{"title", 4.0},
	{"author", 2.0},
	{"host", 1.5},
	{"username", 1.0},
	{"url", 0.5},
}

type Index struct {
	idx  bleve.Index
	size int
}

// NewIndex indexes every story of c in memory.
func NewIndex(c *model.StoryCollection) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	batch := idx.NewBatch()
	for _, s := range c.Stories() {
		if err := batch.Index(s.ID, storyDocument(s)); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("indexing story %s: %w", s.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("indexing stories: %w", err)
	}

	return &Index{idx: idx, size: c.Len()}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()
	for _, f := range fieldBoosts {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.Store = false
		dm.AddFieldMappingsAt(f.name, fm)
	}

	im.DefaultMapping = dm
	return im
}

func storyDocument(s *model.Story) map[string]any {
	return map[string]any{
		"title":    s.Title,
		"author":   s.Author,
		"host":     s.Host(),
		"username": s.Username,
		"url":      s.URL,
	}
}

// Search returns the ids of matching stories, best match first. Queries
// shorter than MinQueryLength match nothing.
func (x *Index) Search(query string) ([]string, error) {
	if len(strings.TrimSpace(query)) < MinQueryLength || x.size == 0 {
		return []string{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, f := range fieldBoosts {
			mq := bleve.NewMatchQuery(tok)
			mq.SetField(f.name)
			mq.SetBoost(f.boost)
			qs = append(qs, mq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f.name)
			pq.SetBoost(f.boost * 0.8)
			qs = append(qs, pq)
		}
	}
	if len(qs) == 0 {
		return []string{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), x.size, 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// DocCount reports how many stories are indexed.
func (x *Index) DocCount() (int, error) {
	n, err := x.idx.DocCount()
	return int(n), err
}

func (x *Index) Close() error {
	return x.idx.Close()
}

// Filter returns the stories of c matching query, in collection order.
// A query too short to search returns c unchanged.
func Filter(c *model.StoryCollection, query string) (*model.StoryCollection, error) {
	if len(strings.TrimSpace(query)) < MinQueryLength {
		return c, nil
	}

	idx, err := NewIndex(c)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	n, err := idx.DocCount()
	if err != nil {
		return nil, err
	}
	if n != c.Len() {
		return nil, fmt.Errorf("indexed %d of %d stories", n, c.Len())
	}

	ids, err := idx.Search(query)
	if err != nil {
		return nil, err
	}
	return c.Filter(ids), nil
}

// tokenize splits text into lowercase terms of at least two characters.
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	flush := func() {
		if current.Len() > 1 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return terms
}
