package tagger

// Result reports the outcome of one tagger operation.
type Result struct {
	// Updated counts record updates written. Always 0 for a dry run.
	Updated int `json:"updated"`

	// Matched counts distinct records matched by any rule.
	Matched int `json:"matched"`

	// Entries lists the uuids of matched records in first-match order.
	Entries []string `json:"entries"`

	// Rules maps each applied rule to the number of distinct records it matched.
	Rules map[string]int `json:"rules"`
}

// collector accumulates a Result across rules.
type collector struct {
	res     Result
	seen    map[string]bool
	perRule map[string]map[string]bool
}

func newCollector() *collector {
	return &collector{
		res:     Result{Entries: []string{}, Rules: map[string]int{}},
		seen:    map[string]bool{},
		perRule: map[string]map[string]bool{},
	}
}

// rule registers a rule so it shows up in the result even without matches.
func (c *collector) rule(name string) {
	if _, ok := c.perRule[name]; !ok {
		c.perRule[name] = map[string]bool{}
		c.res.Rules[name] = 0
	}
}

func (c *collector) matched(name string, uuids []string) {
	c.rule(name)
	for _, id := range uuids {
		if !c.perRule[name][id] {
			c.perRule[name][id] = true
			c.res.Rules[name]++
		}
		if !c.seen[id] {
			c.seen[id] = true
			c.res.Entries = append(c.res.Entries, id)
		}
	}
	c.res.Matched = len(c.res.Entries)
}

func (c *collector) updated(n int) {
	c.res.Updated += n
}

func (c *collector) result() Result {
	return c.res
}
