package domain

import "time"

// SkillAssessment is the persisted skill evaluation derived from one RepositoryAnalytics
type SkillAssessment struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`

	TechnicalDepthScore float64 `json:"technicalDepthScore"`
	CollaborationScore  float64 `json:"collaborationScore"`
	ConsistencyScore    float64 `json:"consistencyScore"`
	ArchitectureScore   float64 `json:"architectureScore"`
	MaturityScore       float64 `json:"maturityScore"`

	LanguageSkills    []LanguageSkill   `json:"languageSkills"`
	EngineeringSkills EngineeringSkills `json:"engineeringSkills"`

	Gaps             []string `json:"gaps"`
	Strengths        []string `json:"strengths"`
	ImprovementAreas []string `json:"improvementAreas"`

	OverallScore         float64 `json:"overallScore"`
	OverallLevel         int     `json:"overallLevel"`
	CareerReadinessIndex float64 `json:"careerReadinessIndex"`
	ConfidenceScore      float64 `json:"confidenceScore"`

	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// LanguageSkill is the skill level inferred for one language
type LanguageSkill struct {
	SkillName     string  `json:"skillName"`
	Level         int     `json:"level"`
	Confidence    float64 `json:"confidence"`
	WeightedScore float64 `json:"weightedScore"`
}

// EngineeringSkills are ordinal (1-5) engineering practice levels
type EngineeringSkills struct {
	GitWorkflowLevel   int `json:"gitWorkflowLevel"`
	TestingLevel       int `json:"testingLevel"`
	CICDLevel          int `json:"ciCdLevel"`
	CodeQualityLevel   int `json:"codeQualityLevel"`
	CollaborationLevel int `json:"collaborationLevel"`
}
