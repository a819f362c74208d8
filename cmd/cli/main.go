package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-skill-analytics/internal/analysis"
	"github.com/kurihiro0119/github-skill-analytics/internal/auth"
)

var (
	outputJSON bool
	remote     bool
	apiToken   string
	force      bool
	page       int
	limit      int
	search     string
)

var rootCmd = &cobra.Command{
	Use:   "skill-analytics",
	Short: "GitHub repository analytics and skill scoring tool",
	Long: `A CLI tool for analyzing GitHub repositories and scoring the skills they show.

Repositories are fetched with the user's linked GitHub token, aggregated into
analytics snapshots and evaluated into skill assessments. Commands run against
the local database, or against a running API server with --remote.`,
	SilenceUsage: true,
}

var linkCmd = &cobra.Command{
	Use:   "link [user] [github-login]",
	Short: "Link a GitHub account to a user",
	Long:  `Store GITHUB_TOKEN as the GitHub credential of a user in the local database.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runLink,
}

var tokenCmd = &cobra.Command{
	Use:   "token [user]",
	Short: "Issue an API bearer token",
	Long:  `Sign a bearer token for a user with JWT_SECRET.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [user] [owner/repo]",
	Short: "Analyze a repository",
	Long:  `Analyze a repository unless it was analyzed before. --force replaces the stored snapshot.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyze,
}

var reposCmd = &cobra.Command{
	Use:   "repos [user]",
	Short: "List the user's GitHub repositories",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepos,
}

var projectsCmd = &cobra.Command{
	Use:   "projects [user]",
	Short: "List analyzed repositories",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjects,
}

var skillsCmd = &cobra.Command{
	Use:   "skills [user] [project-id]",
	Short: "Show the skill assessment of an analyzed repository",
	Args:  cobra.ExactArgs(2),
	RunE:  runSkills,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&remote, "remote", false, "call the API server at API_ENDPOINT instead of the local database")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "bearer token for --remote (default: signed with JWT_SECRET)")

	analyzeCmd.Flags().BoolVar(&force, "force", false, "re-analyze even if a snapshot exists")

	for _, cmd := range []*cobra.Command{reposCmd, projectsCmd} {
		cmd.Flags().IntVar(&page, "page", 1, "page number")
		cmd.Flags().IntVar(&limit, "limit", 10, "items per page (max 100)")
		cmd.Flags().StringVar(&search, "search", "", "case-insensitive name filter")
	}

	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(skillsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func listQuery() analysis.ListQuery {
	return analysis.ListQuery{Page: page, Limit: limit, Search: search}
}

func runLink(cmd *cobra.Command, args []string) error {
	userID, login := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required to link an account")
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	profile, err := newService(cfg, store).LinkGitHub(cmd.Context(), userID, login, cfg.GitHubToken)
	if err != nil {
		return fmt.Errorf("failed to link GitHub account: %w", err)
	}

	if outputJSON {
		return printJSON(map[string]any{"userId": profile.UserID, "githubLogin": profile.GitHubLogin, "connected": profile.GitHubConnected})
	}
	fmt.Printf("Linked GitHub account %s to user %s\n", profile.GitHubLogin, profile.UserID)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}
	token, err := tokens.Generate(args[0])
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	if outputJSON {
		return printJSON(map[string]string{"token": token})
	}
	fmt.Println(token)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	b, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	if !outputJSON {
		fmt.Printf("Analyzing %s...\n", args[1])
	}
	res, err := b.Analyze(cmd.Context(), args[1], force)
	if err != nil {
		return fmt.Errorf("failed to analyze repository: %w", err)
	}

	if outputJSON {
		return printJSON(res)
	}
	if res.AlreadyAnalyzed {
		fmt.Printf("Repository already analyzed (project %s). Use --force to refresh.\n", res.ProjectID)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Project ID", res.ProjectID})
	table.Append([]string{"Name", res.ProjectName})
	table.Append([]string{"URL", res.RepoURL})
	table.Render()
	return nil
}

func runRepos(cmd *cobra.Command, args []string) error {
	b, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	result, err := b.Repositories(cmd.Context(), listQuery())
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Repository", "Language", "Stars", "Forks", "Private", "Updated"})
	for _, r := range result.Items {
		table.Append([]string{
			r.FullName,
			r.Language,
			fmt.Sprintf("%d", r.Stars),
			fmt.Sprintf("%d", r.Forks),
			fmt.Sprintf("%t", r.Private),
			r.UpdatedAt.Format("2006-01-02"),
		})
	}
	table.Render()
	printPageFooter(result.Page, result.TotalPages, result.Total)
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	b, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	result, err := b.Projects(cmd.Context(), listQuery())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Project ID", "Repository", "Language", "Health", "Maturity", "Analyzed"})
	for _, p := range result.Items {
		table.Append([]string{
			p.ID,
			p.RepoFullName,
			p.LanguageStats.PrimaryLanguage,
			fmt.Sprintf("%d", p.HealthIndex),
			fmt.Sprintf("%d", p.MaturityLevel),
			p.AnalyzedAt.Format("2006-01-02"),
		})
	}
	table.Render()
	printPageFooter(result.Page, result.TotalPages, result.Total)
	return nil
}

func runSkills(cmd *cobra.Command, args []string) error {
	b, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.Skills(cmd.Context(), args[1])
	if err != nil {
		return fmt.Errorf("failed to evaluate skills: %w", err)
	}

	if outputJSON {
		return printJSON(res)
	}

	a := res.Assessment
	fmt.Printf("\nSkill Assessment: %s\n\n", a.ProjectName)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Technical Depth", fmt.Sprintf("%.1f", a.TechnicalDepthScore)})
	table.Append([]string{"Collaboration", fmt.Sprintf("%.1f", a.CollaborationScore)})
	table.Append([]string{"Consistency", fmt.Sprintf("%.1f", a.ConsistencyScore)})
	table.Append([]string{"Architecture", fmt.Sprintf("%.1f", a.ArchitectureScore)})
	table.Append([]string{"Maturity", fmt.Sprintf("%.1f", a.MaturityScore)})
	table.Append([]string{"Overall", fmt.Sprintf("%.1f (level %d)", a.OverallScore, a.OverallLevel)})
	table.Append([]string{"Career Readiness", fmt.Sprintf("%.1f", a.CareerReadinessIndex)})
	table.Append([]string{"Confidence", fmt.Sprintf("%.2f", a.ConfidenceScore)})
	table.Render()

	if len(a.LanguageSkills) > 0 {
		fmt.Println()
		langs := tablewriter.NewWriter(os.Stdout)
		langs.SetHeader([]string{"Language", "Level", "Confidence"})
		for _, l := range a.LanguageSkills {
			langs.Append([]string{l.SkillName, fmt.Sprintf("%d", l.Level), fmt.Sprintf("%.2f", l.Confidence)})
		}
		langs.Render()
	}

	printList("Strengths", a.Strengths)
	printList("Gaps", a.Gaps)
	printList("Improvement areas", a.ImprovementAreas)
	return nil
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n  - %s\n", title, strings.Join(items, "\n  - "))
}

func printPageFooter(page, totalPages, total int) {
	fmt.Printf("Page %d/%d (%d total)\n", page, totalPages, total)
}
