package thermostat

// History returns a copy of the retained readings, oldest first.
func (c *Controller) History() []Reading {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Reading, len(c.readings))
	copy(out, c.readings)
	return out
}

// RecentHistory returns the retained readings inside the history window.
func (c *Controller) RecentHistory() []Reading {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recentLocked()
}

func (c *Controller) recentLocked() []Reading {
	cutoff := c.now().Add(-c.params.HistoryWindow)
	out := make([]Reading, 0, len(c.readings))
	for _, r := range c.readings {
		if !r.Time.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// AvgTempChange averages the change between consecutive readings inside the
// history window. Returns 0 with fewer than two readings in the window.
func (c *Controller) AvgTempChange() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recent := c.recentLocked()
	if len(recent) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(recent); i++ {
		total += recent[i].Value - recent[i-1].Value
	}
	return total / float64(len(recent)-1)
}
