package skill

// Weights are the blend coefficients of the assessment scores
type Weights struct {
	DepthDominantLanguage float64
	DepthMultiLanguage    float64
	DepthConsistency      float64
	DepthAdditions        float64
	DepthCommits          float64
	AdditionsForFullDepth float64
	CommitsForFullDepth   float64

	CollabMergeRate       float64
	CollabIssueResolution float64
	CollabContributors    float64

	SoloCollaborationAdditions int
	SoloCollaborationFloor     float64

	OverallDepth         float64
	OverallCollaboration float64
	OverallConsistency   float64
	OverallArchitecture  float64
	OverallMaturity      float64

	CareerOverall       float64
	CareerGitWorkflow   float64
	CareerTesting       float64
	CareerCICD          float64
	CareerCollaboration float64
}

// DefaultWeights returns the solo-developer-friendly weighting
func DefaultWeights() Weights {
	return Weights{
		DepthDominantLanguage: 0.2,
		DepthMultiLanguage:    0.1,
		DepthConsistency:      0.1,
		DepthAdditions:        0.4,
		DepthCommits:          0.2,
		AdditionsForFullDepth: 5000,
		CommitsForFullDepth:   50,

		CollabMergeRate:       0.4,
		CollabIssueResolution: 0.3,
		CollabContributors:    0.3,

		SoloCollaborationAdditions: 2000,
		SoloCollaborationFloor:     85,

		OverallDepth:         0.35,
		OverallCollaboration: 0.15,
		OverallConsistency:   0.15,
		OverallArchitecture:  0.15,
		OverallMaturity:      0.20,

		CareerOverall:       0.5,
		CareerGitWorkflow:   0.1,
		CareerTesting:       0.1,
		CareerCICD:          0.1,
		CareerCollaboration: 0.2,
	}
}
