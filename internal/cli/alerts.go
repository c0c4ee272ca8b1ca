package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	alertAdd   api.AlertRuleInput
	alertAddOn bool
	alertRmYes bool
)

var alertsCmd = &cobra.Command{
	Use:     "alerts",
	Aliases: []string{"alert"},
	Short:   "Manage alert rules",
	Long: `List and manage alert rules.

Examples:
  fleetwatch alerts list
  fleetwatch alerts add --name "High CPU" --metric cpu --op ">" --threshold 90 --for 300
  fleetwatch alerts disable alert-0002`,
}

var alertsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List alert rules",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return listAlerts(ctx, cmd.OutOrStdout(), env.client, time.Now())
		})
	},
}

var alertsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an alert rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			in := alertAdd
			in.Enabled = alertAddOn
			return addAlert(ctx, cmd.OutOrStdout(), env.client, in)
		})
	},
}

var alertsRmCmd = &cobra.Command{
	Use:     "rm <alert-id>",
	Aliases: []string{"delete", "remove"},
	Short:   "Delete an alert rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			rule, err := findAlert(ctx, env.client, args[0])
			if err != nil {
				return err
			}
			ok, err := confirmAction(alertRmYes, fmt.Sprintf("Delete alert '%s'?", rule.Name), rule.Condition())
			if err != nil || !ok {
				if err == nil {
					cmd.Println("Cancelled.")
				}
				return err
			}
			return deleteAlert(ctx, cmd.OutOrStdout(), env.client, *rule)
		})
	},
}

var alertsEnableCmd = &cobra.Command{
	Use:   "enable <alert-id>",
	Short: "Turn an alert rule on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return setAlertEnabled(ctx, cmd.OutOrStdout(), env.client, args[0], true)
		})
	},
}

var alertsDisableCmd = &cobra.Command{
	Use:   "disable <alert-id>",
	Short: "Turn an alert rule off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return setAlertEnabled(ctx, cmd.OutOrStdout(), env.client, args[0], false)
		})
	},
}

func init() {
	f := alertsAddCmd.Flags()
	f.StringVar(&alertAdd.Name, "name", "", "rule name")
	f.StringVar(&alertAdd.AgentID, "agent", "", "only watch this agent (default: every agent)")
	f.StringVar(&alertAdd.Metric, "metric", "", "metric: "+strings.Join(api.AlertMetrics, ", "))
	f.StringVar(&alertAdd.Operator, "op", ">", "comparison: >, >=, < or <=")
	f.Float64Var(&alertAdd.Threshold, "threshold", 0, "value that trips the rule")
	f.IntVar(&alertAdd.DurationSeconds, "for", 60, "seconds the condition must hold")
	f.StringVar(&alertAdd.WebhookURL, "webhook", "", "URL to POST to when the rule fires")
	f.BoolVar(&alertAddOn, "enabled", true, "create the rule enabled")
	_ = alertsAddCmd.MarkFlagRequired("name")
	_ = alertsAddCmd.MarkFlagRequired("metric")

	alertsRmCmd.Flags().BoolVarP(&alertRmYes, "yes", "y", false, "skip the confirmation prompt")

	alertsCmd.AddCommand(alertsListCmd, alertsAddCmd, alertsRmCmd, alertsEnableCmd, alertsDisableCmd)
	rootCmd.AddCommand(alertsCmd)
}

func listAlerts(ctx context.Context, w io.Writer, client *api.Client, now time.Time) error {
	rules, err := client.ListAlerts(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })

	return printResult(w, rules, func() error {
		rows := make([]ui.StatusTableRow, 0, len(rules))
		for _, r := range rules {
			status := "disabled"
			if r.Enabled {
				status = "live"
			}
			scope := r.AgentID
			if scope == "" {
				scope = "all agents"
			}
			fired := "never"
			if !r.LastFired.IsZero() {
				fired = timefmt.Relative(r.LastFired.Time, now)
			}
			rows = append(rows, ui.StatusTableRow{
				Status:  status,
				Columns: []string{r.ID, r.Name, scope, fired, r.Condition()},
			})
		}
		fmt.Fprint(w, ui.RenderStatusTable(
			[]string{"ID", "NAME", "SCOPE", "FIRED", "CONDITION"},
			[]int{10, 18, 12, 10, 30},
			rows, "No alert rules yet. Add one with 'fleetwatch alerts add'."))
		return nil
	})
}

// findAlert looks a rule up by id. The backend has no single-rule endpoint.
func findAlert(ctx context.Context, client *api.Client, id string) (*api.AlertRule, error) {
	id, err := requireArgID("alert", id)
	if err != nil {
		return nil, err
	}
	rules, err := client.ListAlerts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		if rules[i].ID == id {
			return &rules[i], nil
		}
	}
	return nil, errors.New(errors.ErrValidation,
		fmt.Sprintf("Alert '%s' not found", id),
		"List rules with 'fleetwatch alerts list'.")
}

func addAlert(ctx context.Context, w io.Writer, client *api.Client, in api.AlertRuleInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Metric = strings.ToLower(strings.TrimSpace(in.Metric))
	in.AgentID = strings.TrimSpace(in.AgentID)

	rule, err := client.CreateAlert(ctx, in)
	if err != nil {
		return err
	}
	return printResult(w, rule, func() error {
		fmt.Fprintf(w, "%s Created alert %s (%s): %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), rule.Name, rule.ID, rule.Condition())
		return nil
	})
}

func deleteAlert(ctx context.Context, w io.Writer, client *api.Client, rule api.AlertRule) error {
	if err := client.DeleteAlert(ctx, rule.ID); err != nil {
		return err
	}
	return printResult(w, map[string]string{"id": rule.ID, "deleted": "true"}, func() error {
		fmt.Fprintf(w, "%s Deleted alert %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), rule.Name)
		return nil
	})
}

func setAlertEnabled(ctx context.Context, w io.Writer, client *api.Client, id string, enabled bool) error {
	rule, err := findAlert(ctx, client, id)
	if err != nil {
		return err
	}

	updated := rule
	if rule.Enabled != enabled {
		updated, err = client.SetAlertEnabled(ctx, *rule, enabled)
		if err != nil {
			return err
		}
	}

	return printResult(w, updated, func() error {
		state := "Disabled"
		if enabled {
			state = "Enabled"
		}
		fmt.Fprintf(w, "%s %s alert %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), state, updated.Name)
		return nil
	})
}
