package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"kaizencoach/plan-service/internal/api"
	"kaizencoach/plan-service/internal/config"
	"kaizencoach/plan-service/internal/domain"
	"kaizencoach/plan-service/internal/plan"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// errInvalid marks a run whose input was read fine but did not pass; the report is already printed.
var errInvalid = errors.New("input is not a valid plan")

type outputFormat string

const (
	formatYAML     outputFormat = "yaml"
	formatJSON     outputFormat = "json"
	formatMarkdown outputFormat = "markdown"
)

func rootCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:           "plancli",
		Short:         "Offline tools for coaching plan documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat(format) {
			case formatYAML, formatJSON, formatMarkdown:
				return nil
			}
			return fmt.Errorf("--output must be yaml, json or markdown, got %q", format)
		},
	}
	cmd.PersistentFlags().StringVarP(&format, "output", "o", string(formatYAML), "Output format (yaml, json, markdown)")

	out := func() outputFormat { return outputFormat(format) }
	cmd.AddCommand(validateCmd(out), extractCmd(out), mergeCmd(out), tokenCmd())
	return cmd
}

func validateCmd(format func() outputFormat) *cobra.Command {
	var disciplined bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a plan JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := plan.Validate(raw, plan.ValidateOptions{ScheduleDisciplined: disciplined})
			if err != nil {
				var vErr *plan.ValidationError
				if !errors.As(err, &vErr) {
					return err
				}
				if werr := writeViolations(cmd.OutOrStdout(), format(), vErr.Violations); werr != nil {
					return werr
				}
				return errInvalid
			}
			return writePlan(cmd.OutOrStdout(), format(), p)
		},
	}
	cmd.Flags().BoolVar(&disciplined, "schedule-disciplined", false, "Allow weekday-specific day assignments")
	return cmd
}

type extractReport struct {
	Tier           string               `json:"tier"`
	ChangeSummary  string               `json:"change_summary,omitempty"`
	NarrativeField string               `json:"narrative_field,omitempty"`
	Narrative      string               `json:"narrative,omitempty"`
	Error          string               `json:"error,omitempty"`
	Violations     []plan.Violation     `json:"violations,omitempty"`
	Plan           *domain.TrainingPlan `json:"plan,omitempty"`
}

func extractCmd(format func() outputFormat) *cobra.Command {
	var disciplined, payloadOnly bool
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract a plan and narrative from raw generator output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if payloadOnly {
				payload := plan.ExtractJSON(string(raw))
				if payload == nil {
					return errors.New("no generator payload found")
				}
				var generic any
				if err := json.Unmarshal(payload, &generic); err != nil {
					return err
				}
				return encode(cmd.OutOrStdout(), format(), generic)
			}

			ext, extErr := plan.Extract(string(raw), plan.ValidateOptions{ScheduleDisciplined: disciplined})
			report := extractReport{
				Tier:           ext.Tier.String(),
				ChangeSummary:  ext.ChangeSummary,
				NarrativeField: ext.NarrativeField,
				Narrative:      ext.Narrative,
				Plan:           ext.Plan,
			}
			var xErr *plan.ExtractionError
			if errors.As(extErr, &xErr) {
				report.Error = xErr.Error()
				report.Violations = xErr.Violations()
			} else if extErr != nil {
				return extErr
			}

			if format() == formatMarkdown {
				if ext.Plan != nil {
					_, err = io.WriteString(cmd.OutOrStdout(), ext.Plan.Markdown())
					return err
				}
				if ext.HasNarrative() {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), ext.Narrative)
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "No plan extracted: %s\n", report.Error)
				return err
			}
			return encode(cmd.OutOrStdout(), format(), report)
		},
	}
	cmd.Flags().BoolVar(&disciplined, "schedule-disciplined", false, "Allow weekday-specific day assignments")
	cmd.Flags().BoolVar(&payloadOnly, "payload", false, "Print the located JSON payload without validating it")
	return cmd
}

func mergeCmd(format func() outputFormat) *cobra.Command {
	var (
		completed int
		asOf      string
	)
	cmd := &cobra.Command{
		Use:   "merge <previous> <incoming>",
		Short: "Merge an incoming plan onto the completed weeks of a previous plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			previous, err := readPlan(cmd, args[0])
			if err != nil {
				return fmt.Errorf("previous plan: %w", err)
			}
			incoming, err := readPlan(cmd, args[1])
			if err != nil {
				return fmt.Errorf("incoming plan: %w", err)
			}

			if !cmd.Flags().Changed("completed") {
				when := time.Now()
				if asOf != "" {
					if when, err = time.Parse("2006-01-02", asOf); err != nil {
						return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
					}
				}
				completed = plan.CompletedWeekCount(previous, when)
			}

			merged, err := plan.Merge(previous, incoming, completed)
			if err != nil {
				return err
			}
			return writePlan(cmd.OutOrStdout(), format(), merged)
		},
	}
	cmd.Flags().IntVar(&completed, "completed", 0, "Number of completed weeks to preserve (overrides --as-of)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Count completed weeks as of this date (YYYY-MM-DD, default today)")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		uid, role, secret string
		ttl               time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(".")
			if err != nil {
				return err
			}
			if secret == "" {
				secret = cfg.JWT.Secret
			}
			if secret == "" {
				return errors.New("no signing secret: pass --secret or set JWT_SECRET")
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.JWT.Expiration
			}
			r := domain.Role(role)
			if r != domain.RoleAdmin && r != domain.RoleAthlete {
				return fmt.Errorf("--role must be %s or %s", domain.RoleAdmin, domain.RoleAthlete)
			}
			tok, err := api.GenerateToken(secret, uid, r, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "User (athlete) ID")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAthlete), "Role (athlete, admin)")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (default from config)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime (default from config)")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func readPlan(cmd *cobra.Command, path string) (*domain.TrainingPlan, error) {
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	return plan.Validate(raw, plan.ValidateOptions{ScheduleDisciplined: true})
}

func writePlan(w io.Writer, format outputFormat, p *domain.TrainingPlan) error {
	if format == formatMarkdown {
		_, err := io.WriteString(w, p.Markdown())
		return err
	}
	return encode(w, format, p)
}

func writeViolations(w io.Writer, format outputFormat, violations []plan.Violation) error {
	if format == formatMarkdown {
		for _, v := range violations {
			if _, err := fmt.Fprintf(w, "- %s\n", v); err != nil {
				return err
			}
		}
		return nil
	}
	return encode(w, format, map[string]any{"valid": false, "violations": violations})
}

// encode writes v as indented JSON or as YAML. YAML goes through JSON first so
// field names follow the json tags of the domain types.
func encode(w io.Writer, format outputFormat, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format == formatJSON {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
