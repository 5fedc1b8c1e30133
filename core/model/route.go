package model

// RouteSolution is an ordered assignment of victims to one responder produced
// by a single planning pass. Every victim id referenced was active at
// solution-generation time and appears in at most one solution per pass.
type RouteSolution struct {
	ResponderID              string   `json:"responder_id"`
	OrderedVictimIDs         []string `json:"ordered_victim_ids"`
	TotalDistanceMeters      float64  `json:"total_distance_m"`
	EstimatedDurationSeconds float64  `json:"estimated_duration_s"`
}
