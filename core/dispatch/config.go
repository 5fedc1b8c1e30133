package dispatch

// Config defines engine-level settings.
type Config struct {
	// ReplanCadenceSeconds is the fixed replanning interval.
	ReplanCadenceSeconds int `json:"replan_cadence_seconds"`
	// PlanTimeoutSeconds caps one planning pass; on expiry the best
	// solution found so far is applied.
	PlanTimeoutSeconds int `json:"plan_timeout_seconds"`
	// ReactOnDetection triggers an immediate replan when a detection
	// creates a previously unseen victim.
	ReactOnDetection bool `json:"react_on_detection"`

	MergeRadiusM        float64 `json:"merge_radius_m"`
	MaxVictimAgeMinutes int     `json:"max_victim_age_minutes"`
	RetentionMinutes    int     `json:"retention_minutes"`

	MaxRouteDurationMinutes int     `json:"max_route_duration_minutes"`
	MaxVictimsPerRoute      int     `json:"max_victims_per_route"`
	SpeedMS                 float64 `json:"speed_m_s"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ReplanCadenceSeconds <= 0 {
		c.ReplanCadenceSeconds = 15
	}
	if c.PlanTimeoutSeconds <= 0 {
		c.PlanTimeoutSeconds = 30
	}
	if c.MergeRadiusM <= 0 {
		c.MergeRadiusM = 50
	}
	if c.MaxVictimAgeMinutes <= 0 {
		c.MaxVictimAgeMinutes = 12 * 60
	}
	if c.RetentionMinutes <= 0 {
		c.RetentionMinutes = 24 * 60
	}
	if c.MaxRouteDurationMinutes <= 0 {
		c.MaxRouteDurationMinutes = 5 * 60
	}
	if c.MaxVictimsPerRoute <= 0 {
		c.MaxVictimsPerRoute = 5
	}
}
