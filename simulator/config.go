package simulator

// Config drives the drone swarm generator.
type Config struct {
	Broker        string  `json:"broker"`
	Drones        int     `json:"drones"`
	Responders    int     `json:"responders"`
	EpicentreLat  float64 `json:"epicentre_lat"`
	EpicentreLon  float64 `json:"epicentre_lon"`
	IntervalMS    int     `json:"interval_ms"`
	DetectionRate float64 `json:"detection_rate"`
	Seed          int64   `json:"seed"`
}

// SetDefaults places the swarm over downtown Los Angeles, matching the
// historical earthquake drill dataset. The broker is left empty so callers
// can fall back to the engine's broker.
func (c *Config) SetDefaults() {
	if c.Drones <= 0 {
		c.Drones = 20
	}
	if c.Responders <= 0 {
		c.Responders = 5
	}
	if c.EpicentreLat == 0 && c.EpicentreLon == 0 {
		c.EpicentreLat = 34.0522
		c.EpicentreLon = -118.2437
	}
	if c.IntervalMS <= 0 {
		c.IntervalMS = 1000
	}
	if c.DetectionRate <= 0 {
		c.DetectionRate = 0.05
	}
}
