package store

// Inserted reports how many records an insert wrote.
type Inserted struct {
	Inserted int `json:"inserted"`
}

// Updated reports how many records an update changed.
type Updated struct {
	Updated int `json:"updated"`
}

// Deleted reports how many records a delete or truncate removed.
type Deleted struct {
	Deleted int `json:"deleted"`
}

// Stats summarizes the numeric values of one field.
// Min and Max are nil when Count is zero.
type Stats struct {
	Field string   `json:"field"`
	Count int      `json:"count"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
}
