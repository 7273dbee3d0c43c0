package model

// StoryCollection maps story ids to stories while keeping the order the
// server returned them in. Collections are rebuilt on every fetch and are
// never merged; methods that narrow a collection return a new one.
type StoryCollection struct {
	order []string
	byID  map[string]*Story
}

func NewStoryCollection(stories []*Story) *StoryCollection {
	c := &StoryCollection{
		order: make([]string, 0, len(stories)),
		byID:  make(map[string]*Story, len(stories)),
	}
	for _, s := range stories {
		if s == nil {
			continue
		}
		if _, dup := c.byID[s.ID]; !dup {
			c.order = append(c.order, s.ID)
		}
		c.byID[s.ID] = s
	}
	return c
}

func (c *StoryCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

func (c *StoryCollection) Has(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byID[id]
	return ok
}

func (c *StoryCollection) Get(id string) (*Story, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.byID[id]
	return s, ok
}

// Stories returns the stories in collection order.
func (c *StoryCollection) Stories() []*Story {
	if c == nil {
		return nil
	}
	out := make([]*Story, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *StoryCollection) IDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

// Without returns a copy of the collection minus the given story.
func (c *StoryCollection) Without(id string) *StoryCollection {
	stories := c.Stories()
	kept := stories[:0]
	for _, s := range stories {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	return NewStoryCollection(kept)
}

// Filter returns the stories whose ids are in ids, in collection order.
func (c *StoryCollection) Filter(ids []string) *StoryCollection {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var kept []*Story
	for _, s := range c.Stories() {
		if _, ok := want[s.ID]; ok {
			kept = append(kept, s)
		}
	}
	return NewStoryCollection(kept)
}
