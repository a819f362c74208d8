package aggregator

// Weights are the tunable constants of the health index and the solo-developer adjustment
type Weights struct {
	Consistency   float64
	Collaboration float64
	Architecture  float64
	Maintenance   float64
	Documentation float64

	// HealthBaseline is added to every health index before clamping
	HealthBaseline float64

	LargeVolumeAdditions  int
	LargeVolumeBonus      float64
	MediumVolumeAdditions int
	MediumVolumeBonus     float64

	SoloCollaborationAdditions int
	SoloCollaborationFloor     float64
	SoloConsistencyAdditions   int
	SoloConsistencyFloor       float64
}

// DefaultWeights returns the solo-developer-friendly weighting
func DefaultWeights() Weights {
	return Weights{
		Consistency:   0.25,
		Collaboration: 0.10,
		Architecture:  0.15,
		Maintenance:   0.15,
		Documentation: 0.15,

		HealthBaseline: 20,

		LargeVolumeAdditions:  10000,
		LargeVolumeBonus:      20,
		MediumVolumeAdditions: 2000,
		MediumVolumeBonus:     10,

		SoloCollaborationAdditions: 2000,
		SoloCollaborationFloor:     85,
		SoloConsistencyAdditions:   1000,
		SoloConsistencyFloor:       80,
	}
}
