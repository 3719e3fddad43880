package dashboard

import (
	"sync"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// Bar colors for the daily histogram.
const (
	BarAccent = "#2563eb"
	BarEmpty  = "rgba(37, 99, 235, 0.08)"
)

// ChartState is a copy of the chart dataset. Revision increases on every
// redraw; a front end re-renders when it sees a new revision.
type ChartState struct {
	Created  bool     `json:"created"`
	Revision int      `json:"revision"`
	Labels   []string `json:"labels"`
	Keys     []string `json:"keys"`
	Data     []int    `json:"data"`
	Colors   []string `json:"colors"`
}

// Chart is the daily-counts bar chart dataset.
type Chart struct {
	mu    sync.Mutex
	state ChartState
}

// Update replaces labels, data and colors from buckets. The first call
// creates the chart.
func (c *Chart) Update(buckets []domain.DailyBucket) {
	st := ChartState{
		Labels: make([]string, len(buckets)),
		Keys:   make([]string, len(buckets)),
		Data:   make([]int, len(buckets)),
		Colors: make([]string, len(buckets)),
	}
	for i, b := range buckets {
		st.Labels[i] = b.Label
		st.Keys[i] = b.Key
		st.Data[i] = b.Count
		st.Colors[i] = BarEmpty
		if b.Count > 0 {
			st.Colors[i] = BarAccent
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	st.Created = true
	st.Revision = c.state.Revision + 1
	c.state = st
}

// State returns a copy of the dataset.
func (c *Chart) State() ChartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Labels = append([]string(nil), st.Labels...)
	st.Keys = append([]string(nil), st.Keys...)
	st.Data = append([]int(nil), st.Data...)
	st.Colors = append([]string(nil), st.Colors...)
	return st
}
