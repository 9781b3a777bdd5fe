package wave

import (
	"fmt"
	"strings"
)

// ActivityType identifies an entry in the activity catalog, e.g. "run".
type ActivityType string

// Activity describes one kind of wave.
type Activity struct {
	Type             ActivityType `json:"type"`
	Label            string       `json:"label"`
	Emoji            string       `json:"emoji"`
	DefaultThreshold int          `json:"default_threshold"`
	RequiresLocation bool         `json:"requires_location"`
}

// Catalog is an immutable set of activities. It is built once from
// configuration and handed to whoever needs it.
type Catalog struct {
	byType map[ActivityType]Activity
	order  []ActivityType
}

// NewCatalog validates activities and returns a catalog preserving their order.
func NewCatalog(activities []Activity) (*Catalog, error) {
	if len(activities) == 0 {
		return nil, fmt.Errorf("activity catalog is empty")
	}

	c := &Catalog{
		byType: make(map[ActivityType]Activity, len(activities)),
		order:  make([]ActivityType, 0, len(activities)),
	}
	for _, a := range activities {
		a.Type = ActivityType(strings.ToLower(strings.TrimSpace(string(a.Type))))
		if a.Type == "" {
			return nil, fmt.Errorf("activity with empty type")
		}
		if _, dup := c.byType[a.Type]; dup {
			return nil, fmt.Errorf("duplicate activity %q", a.Type)
		}
		if a.DefaultThreshold < MinThreshold {
			return nil, fmt.Errorf("activity %q: default threshold %d below %d", a.Type, a.DefaultThreshold, MinThreshold)
		}
		if a.Label == "" {
			a.Label = string(a.Type)
		}
		c.byType[a.Type] = a
		c.order = append(c.order, a.Type)
	}
	return c, nil
}

// Lookup finds an activity. Matching is case-insensitive.
func (c *Catalog) Lookup(t ActivityType) (Activity, bool) {
	a, ok := c.byType[ActivityType(strings.ToLower(strings.TrimSpace(string(t))))]
	return a, ok
}

// All returns the activities in declaration order.
func (c *Catalog) All() []Activity {
	out := make([]Activity, len(c.order))
	for i, t := range c.order {
		out[i] = c.byType[t]
	}
	return out
}

// Len returns the number of activities.
func (c *Catalog) Len() int {
	return len(c.order)
}
