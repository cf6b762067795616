package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/config"
	"github.com/moolen/flare/internal/correlation"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/guidance"
	"github.com/moolen/flare/internal/imagecheck"
	"github.com/moolen/flare/internal/logging"
)

var (
	diagnoseApp      string
	diagnoseSymptoms string
	diagnoseOutput   string
)

// Status colors for the terminal report
var (
	diagnoseSuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981")) // Green
	diagnoseWarningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B")) // Yellow/Orange
	diagnoseErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")) // Red
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run a one-shot deployment diagnosis",
	Long: `Run the troubleshooting guidance engine once against an application
and print the assessment with the recommended diagnostic path.

The markdown output is rendered for the terminal when stdout is a TTY;
use --output json or --output yaml for machine consumption.`,
	Run: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseApp, "app", "", "Name of the application/stack to diagnose (required)")
	diagnoseCmd.Flags().StringVar(&diagnoseSymptoms, "symptoms", "", "Free-text description of the observed symptoms")
	diagnoseCmd.Flags().StringVarP(&diagnoseOutput, "output", "o", "markdown", "Output format: markdown, json or yaml")
	diagnoseCmd.Flags().StringVar(&awsRegion, "region", "", "AWS region to query (defaults to the SDK resolution chain)")
	diagnoseCmd.Flags().StringVar(&awsProfile, "profile", "", "AWS shared-config profile to use")

	_ = diagnoseCmd.MarkFlagRequired("app")
}

func runDiagnose(cmd *cobra.Command, args []string) {
	if err := setupLog(logLevelFlags); err != nil {
		HandleError(err, "Failed to setup logging")
	}
	logger := logging.GetLogger("diagnose")

	cfg, err := config.Load(configFilePath)
	if err != nil {
		HandleError(err, "Failed to load configuration")
	}
	if awsRegion != "" {
		cfg.Region = awsRegion
	}
	if awsProfile != "" {
		cfg.Profile = awsProfile
	}

	// Cancel outstanding AWS calls on Ctrl+C
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clients, err := awsapi.NewClients(ctx, awsapi.Options{
		Region:   cfg.Region,
		Profile:  cfg.Profile,
		Endpoint: cfg.Endpoint,
	})
	if err != nil {
		logger.Fatal("Failed to create AWS clients: %v", err)
	}

	cache, err := awsapi.NewTaskDefinitionCache(clients.ECS, awsapi.DefaultTaskDefinitionCacheConfig(), logging.GetLogger("awsapi"))
	if err != nil {
		logger.Fatal("Failed to create task definition cache: %v", err)
	}
	correlator := correlation.New(clients.ECS, clients.ELB, cache, cfg.MaxConcurrency)
	validator := imagecheck.New(clients.ECR, cfg.MaxConcurrency)
	engine := guidance.NewEngine(clients.CloudFormation, clients.ECS, correlator, validator)

	result := engine.Troubleshoot(ctx, diagnoseApp, diagnoseSymptoms)

	switch diagnoseOutput {
	case "json":
		out, err := json.MarshalIndent(result, "", "  ")
		HandleError(err, "Failed to format result")
		fmt.Println(string(out))
	case "yaml":
		out, err := yaml.Marshal(result)
		HandleError(err, "Failed to format result")
		fmt.Print(string(out))
	case "markdown":
		printDiagnosisReport(result)
	default:
		HandleError(fmt.Errorf("unknown format %q", diagnoseOutput), "Invalid --output")
	}

	if result.Status == diagnosis.StatusError {
		os.Exit(1)
	}
}

// printDiagnosisReport renders the markdown report, styled when stdout
// is a terminal and plain otherwise.
func printDiagnosisReport(result *guidance.Result) {
	md := diagnosisMarkdown(result)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(md)
		return
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || width > 100 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		fmt.Print(md)
		return
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}

	fmt.Println(styledStatusLine(result.Status))
	fmt.Print(rendered)
}

func styledStatusLine(status diagnosis.Status) string {
	label := fmt.Sprintf("Status: %s", status)
	switch status {
	case diagnosis.StatusSuccess:
		return diagnoseSuccessStyle.Render(label)
	case diagnosis.StatusWarning, diagnosis.StatusNotFound:
		return diagnoseWarningStyle.Render(label)
	default:
		return diagnoseErrorStyle.Render(label)
	}
}

// diagnosisMarkdown builds the markdown body of the report.
func diagnosisMarkdown(result *guidance.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Deployment diagnosis: %s\n\n", diagnoseApp)
	fmt.Fprintf(&b, "%s\n\n", result.Assessment)

	if len(result.DiagnosticPath) > 0 {
		b.WriteString("## Recommended next steps\n\n")
		steps := append([]guidance.Step{}, result.DiagnosticPath...)
		sort.SliceStable(steps, func(i, j int) bool { return steps[i].Rank < steps[j].Rank })
		for _, step := range steps {
			fmt.Fprintf(&b, "%d. **%s** — %s\n", step.Rank+1, step.Tool, step.Reason)
			if len(step.Args) > 0 {
				args, err := json.Marshal(step.Args)
				if err == nil {
					fmt.Fprintf(&b, "   - args: `%s`\n", string(args))
				}
			}
		}
		b.WriteString("\n")
	}

	symptomSections := []struct {
		name     string
		evidence []string
	}{
		{"Infrastructure", result.DetectedSymptoms.Infrastructure},
		{"Service", result.DetectedSymptoms.Service},
		{"Task", result.DetectedSymptoms.Task},
		{"Application", result.DetectedSymptoms.Application},
		{"Network", result.DetectedSymptoms.Network},
	}
	hasSymptoms := false
	for _, section := range symptomSections {
		if len(section.evidence) > 0 {
			hasSymptoms = true
		}
	}
	if hasSymptoms {
		b.WriteString("## Detected symptoms\n\n")
		for _, section := range symptomSections {
			for _, evidence := range section.evidence {
				fmt.Fprintf(&b, "- %s: %s\n", section.name, evidence)
			}
		}
		b.WriteString("\n")
	}

	if related := result.RawData.RelatedResources; related != nil {
		b.WriteString("## Related resources\n\n")
		fmt.Fprintf(&b, "- Clusters: %s\n", formatNameList(related.Clusters))
		fmt.Fprintf(&b, "- Services: %s\n", formatNameList(related.Services))
		fmt.Fprintf(&b, "- Task definitions: %s\n", formatNameList(related.TaskDefinitions))
		fmt.Fprintf(&b, "- Load balancers: %s\n", formatNameList(related.LoadBalancers))
		b.WriteString("\n")
	}

	if failing := imagecheck.FailingManagedImages(result.RawData.ImageCheckResults); len(failing) > 0 {
		b.WriteString("## Failing container images\n\n")
		for _, image := range failing {
			fmt.Fprintf(&b, "- `%s`\n", image)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatNameList(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
