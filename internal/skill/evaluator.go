// Package skill derives a skill assessment from repository analytics.
package skill

import (
	"math"
	"time"

	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
	"github.com/kurihiro0119/github-skill-analytics/internal/scoring"
)

const (
	GapTesting       = "Add automated tests"
	GapCICD          = "Set up CI/CD pipeline"
	GapGitWorkflow   = "Adopt a branching workflow"
	GapDocumentation = "Improve documentation"

	StrengthTesting       = "Tests implemented"
	StrengthCICD          = "CI/CD configured"
	StrengthGitWorkflow   = "Structured Git workflow"
	StrengthDocumentation = "Well documented"
	StrengthCollaboration = "Active collaboration"
	StrengthConsistency   = "Consistent commit history"
	StrengthDepth         = "Strong technical depth"

	ImproveCollaboration = "Increase collaboration through pull requests and issues"
	ImproveConsistency   = "Commit more consistently"
	ImproveDepth         = "Build larger, more substantial projects"
	ImproveLanguages     = "Explore additional languages"
)

// Evaluator turns analytics into a skill assessment
type Evaluator interface {
	Evaluate(analytics *domain.RepositoryAnalytics) *domain.SkillAssessment
}

// Option configures an evaluator
type Option func(*evaluator)

// WithWeights overrides the default weights
func WithWeights(w Weights) Option {
	return func(e *evaluator) {
		e.weights = w
	}
}

// WithClock overrides the time source used for EvaluatedAt
func WithClock(now func() time.Time) Option {
	return func(e *evaluator) {
		e.now = now
	}
}

type evaluator struct {
	weights Weights
	now     func() time.Time
}

// NewEvaluator creates a new evaluator
func NewEvaluator(opts ...Option) Evaluator {
	e := &evaluator{
		weights: DefaultWeights(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate computes the assessment. The result has no ID and no user; the caller assigns both.
func (e *evaluator) Evaluate(a *domain.RepositoryAnalytics) *domain.SkillAssessment {
	if a == nil {
		a = &domain.RepositoryAnalytics{}
	}
	w := e.weights

	commits := float64(a.CommitStats.TotalCommits)
	additions := float64(a.CommitStats.TotalAdditions)
	contributors := a.CollaborationStats.TotalContributors

	technicalDepth := w.DepthDominantLanguage*a.LanguageStats.DominantLanguagePercent +
		w.DepthMultiLanguage*a.LanguageStats.MultiLanguageScore +
		w.DepthConsistency*a.CommitStats.ConsistencyScore +
		w.DepthAdditions*math.Min(scoring.Ratio(additions, w.AdditionsForFullDepth)*100, 100) +
		w.DepthCommits*math.Min(scoring.Ratio(commits, w.CommitsForFullDepth)*100, 100)

	collaboration := w.CollabMergeRate*a.CollaborationStats.PRMergeRate*100 +
		w.CollabIssueResolution*a.CollaborationStats.IssueResolutionRate*100 +
		w.CollabContributors*math.Min(float64(contributors)*20, 100)
	if a.IsSolo() && a.CommitStats.TotalAdditions > w.SoloCollaborationAdditions {
		collaboration = math.Max(collaboration, w.SoloCollaborationFloor)
	}

	consistency := a.CommitStats.ConsistencyScore
	architecture := 0.7*a.ArchitectureStats.ArchitectureScore + 0.3*a.ArchitectureStats.DocumentationScore
	maturity := float64(a.MaturityLevel) * 20

	technicalDepth = scoring.Clamp100(technicalDepth)
	collaboration = scoring.Clamp100(collaboration)
	consistency = scoring.Clamp100(consistency)
	architecture = scoring.Clamp100(architecture)
	maturity = scoring.Clamp100(maturity)

	languages := languageSkills(a)
	eng := engineeringSkills(a)

	overall := math.Min(
		w.OverallDepth*technicalDepth+
			w.OverallCollaboration*collaboration+
			w.OverallConsistency*consistency+
			w.OverallArchitecture*architecture+
			w.OverallMaturity*maturity,
		100)

	career := math.Min(
		overall*w.CareerOverall+
			float64(eng.GitWorkflowLevel)*20*w.CareerGitWorkflow+
			float64(eng.TestingLevel)*20*w.CareerTesting+
			float64(eng.CICDLevel)*20*w.CareerCICD+
			float64(eng.CollaborationLevel)*20*w.CareerCollaboration,
		100)

	confidence := math.Min(
		scoring.Ratio(commits, 500)*0.5+
			float64(len(languages))/5*0.25+
			float64(contributors)/10*0.25,
		1)

	labels := newLabeler()
	if eng.TestingLevel < 3 {
		labels.gap(GapTesting)
	} else {
		labels.strength(StrengthTesting)
	}
	if eng.CICDLevel < 3 {
		labels.gap(GapCICD)
	} else {
		labels.strength(StrengthCICD)
	}
	if eng.GitWorkflowLevel < 3 {
		labels.gap(GapGitWorkflow)
	} else {
		labels.strength(StrengthGitWorkflow)
	}
	if eng.CodeQualityLevel < 3 {
		labels.gap(GapDocumentation)
	} else {
		labels.strength(StrengthDocumentation)
	}
	if collaboration < 50 {
		labels.improve(ImproveCollaboration)
	} else {
		labels.strength(StrengthCollaboration)
	}
	if consistency < 50 {
		labels.improve(ImproveConsistency)
	} else {
		labels.strength(StrengthConsistency)
	}
	if technicalDepth < 50 {
		labels.improve(ImproveDepth)
	} else {
		labels.strength(StrengthDepth)
	}
	if a.LanguageStats.TotalLanguagesUsed < 2 {
		labels.improve(ImproveLanguages)
	}

	return &domain.SkillAssessment{
		ProjectID:            a.ID,
		ProjectName:          a.RepoName,
		TechnicalDepthScore:  scoring.Round(technicalDepth, 2),
		CollaborationScore:   scoring.Round(collaboration, 2),
		ConsistencyScore:     scoring.Round(consistency, 2),
		ArchitectureScore:    scoring.Round(architecture, 2),
		MaturityScore:        scoring.Round(maturity, 2),
		LanguageSkills:       languages,
		EngineeringSkills:    eng,
		Gaps:                 labels.gaps,
		Strengths:            labels.strengths,
		ImprovementAreas:     labels.improvements,
		OverallScore:         scoring.Round(scoring.Clamp100(overall), 2),
		OverallLevel:         overallLevel(overall),
		CareerReadinessIndex: scoring.Round(scoring.Clamp100(career), 2),
		ConfidenceScore:      scoring.Round(scoring.Clamp(confidence, 0, 1), 4),
		EvaluatedAt:          e.now(),
	}
}

// languageSkills grades every language of the breakdown, keeping breakdown order.
// Each language is gated on its own bytes and the repository's dominant-language percentage.
func languageSkills(a *domain.RepositoryAnalytics) []domain.LanguageSkill {
	commits := a.CommitStats.TotalCommits
	dominant := a.LanguageStats.DominantLanguagePercent
	skills := make([]domain.LanguageSkill, 0, len(a.LanguageStats.Breakdown))
	for _, share := range a.LanguageStats.Breakdown {
		level := languageLevel(commits, share.Bytes, dominant)
		skills = append(skills, domain.LanguageSkill{
			SkillName:     share.Name,
			Level:         level,
			Confidence:    scoring.Round(0.8+math.Min(float64(commits)/50, 0.2), 4),
			WeightedScore: float64(level * 20),
		})
	}
	return skills
}

func languageLevel(commits int, bytes int64, dominantPercent float64) int {
	switch {
	case (commits > 100 || bytes > 50000) && dominantPercent > 50:
		return 5
	case (commits > 50 || bytes > 20000) && dominantPercent > 40:
		return 4
	case (commits > 20 || bytes > 5000) && dominantPercent > 20:
		return 3
	case commits > 5 || bytes > 1000:
		return 2
	default:
		return 1
	}
}

func engineeringSkills(a *domain.RepositoryAnalytics) domain.EngineeringSkills {
	commits := a.CommitStats.TotalCommits
	additions := a.CommitStats.TotalAdditions
	arch := a.ArchitectureStats
	collab := a.CollaborationStats

	var git int
	switch {
	case arch.BranchCount >= 3 && collab.TotalPRs >= 5:
		git = 5
	case arch.BranchCount >= 2 && collab.TotalPRs >= 1:
		git = 4
	case arch.BranchCount >= 2 || commits >= 50:
		git = 3
	case commits >= 10:
		git = 2
	default:
		git = 1
	}

	var testing int
	switch {
	case arch.HasTests && arch.HasCI && commits >= 50:
		testing = 5
	case arch.HasTests && arch.HasCI:
		testing = 4
	case arch.HasTests:
		testing = 3
	case additions > 5000:
		testing = 2
	default:
		testing = 1
	}

	var cicd int
	switch {
	case arch.HasCI && arch.ReleaseCount > 0:
		cicd = 5
	case arch.HasCI:
		cicd = 4
	case arch.ReleaseCount > 0:
		cicd = 3
	case arch.BranchCount > 1:
		cicd = 2
	default:
		cicd = 1
	}

	avgSize := a.CommitStats.AverageCommitSize
	var quality int
	switch {
	case arch.DocumentationScore >= 70 && avgSize > 0 && avgSize <= 500:
		quality = 5
	case arch.DocumentationScore >= 70:
		quality = 4
	case arch.DocumentationScore >= 40:
		quality = 3
	case avgSize > 0:
		quality = 2
	default:
		quality = 1
	}

	var practice int
	switch {
	case collab.TotalContributors >= 5 && collab.PRMergeRate >= 0.7:
		practice = 5
	case collab.TotalContributors >= 3 || collab.TotalPRs >= 10:
		practice = 4
	case collab.TotalContributors >= 2 || collab.TotalPRs >= 1 || (a.IsSolo() && additions > 2000):
		practice = 3
	case commits >= 10:
		practice = 2
	default:
		practice = 1
	}

	return domain.EngineeringSkills{
		GitWorkflowLevel:   git,
		TestingLevel:       testing,
		CICDLevel:          cicd,
		CodeQualityLevel:   quality,
		CollaborationLevel: practice,
	}
}

func overallLevel(overall float64) int {
	switch {
	case overall >= 80:
		return 5
	case overall >= 60:
		return 4
	case overall >= 40:
		return 3
	case overall >= 20:
		return 2
	default:
		return 1
	}
}

// labeler collects labels in detection order without duplicates
type labeler struct {
	seen         map[string]struct{}
	gaps         []string
	strengths    []string
	improvements []string
}

func newLabeler() *labeler {
	return &labeler{
		seen:         make(map[string]struct{}),
		gaps:         []string{},
		strengths:    []string{},
		improvements: []string{},
	}
}

func (l *labeler) add(list *[]string, label string) {
	if _, ok := l.seen[label]; ok {
		return
	}
	l.seen[label] = struct{}{}
	*list = append(*list, label)
}

func (l *labeler) gap(label string)      { l.add(&l.gaps, label) }
func (l *labeler) strength(label string) { l.add(&l.strengths, label) }
func (l *labeler) improve(label string)  { l.add(&l.improvements, label) }
