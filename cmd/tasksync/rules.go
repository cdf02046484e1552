package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"tasksync-hq/tasksync/pkg/cli"
	"tasksync-hq/tasksync/pkg/config"
	"tasksync-hq/tasksync/pkg/workflow"
	"tasksync-hq/tasksync/pkg/workflow/store"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage stored workflow rules",
	Long: `Inspect and manage workflow rules stored in the database.

These commands operate on the database rule store. Deployments that
serve rules from YAML files (workflow.rules_path) edit the files
instead and rely on hot reload.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored rules",
	RunE:  listRules,
}

var rulesAddFlags struct {
	eventType  string
	conditions string
	actions    string
	disabled   bool
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rule",
	Long: `Add a workflow rule to the database rule store.

Examples:
  # Notify the manager whenever a critical task is created
  tasksync rules add --event TASK_CREATED \
    --conditions '{"priority": "CRITICAL"}' \
    --actions '{"notify": ["MANAGER"]}'

  # Escalate every SLA breach
  tasksync rules add --event TASK_SLA_BREACHED --actions '{"escalate": true}'`,
	RunE: addRule,
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(cmd, args[0], true)
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(cmd, args[0], false)
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteRule,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesEnableCmd, rulesDisableCmd, rulesDeleteCmd)

	rulesAddCmd.Flags().StringVarP(&rulesAddFlags.eventType, "event", "e", "", "event type the rule fires on")
	rulesAddCmd.Flags().StringVar(&rulesAddFlags.conditions, "conditions", "", "JSON condition object (empty matches every event)")
	rulesAddCmd.Flags().StringVar(&rulesAddFlags.actions, "actions", "", "JSON action descriptor")
	rulesAddCmd.Flags().BoolVar(&rulesAddFlags.disabled, "disabled", false, "create the rule disabled")
	_ = rulesAddCmd.MarkFlagRequired("event")
	_ = rulesAddCmd.MarkFlagRequired("actions")
}

func openRuleStore() (*store.SQLiteStore, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return store.NewSQLiteStore(cfg.Storage.Path, cfg.Storage.BusyTimeout)
}

func listRules(cmd *cobra.Command, args []string) error {
	rs, err := openRuleStore()
	if err != nil {
		return err
	}
	defer rs.Close()

	rules, err := rs.List(cmd.Context())
	if err != nil {
		return cli.NewCommandError("rules list", err)
	}
	if len(rules) == 0 {
		fmt.Println("No rules stored")
		return nil
	}

	for _, r := range rules {
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		conditions := r.Conditions
		if conditions == "" {
			conditions = "{}"
		}
		fmt.Printf("%d\t%s\t%s\t%s\t%s\n", r.ID, r.EventType, state, conditions, r.Actions)
	}
	return nil
}

func addRule(cmd *cobra.Command, args []string) error {
	eventType, err := workflow.ParseEventType(rulesAddFlags.eventType)
	if err != nil {
		return err
	}
	// Reject malformed payloads at creation instead of at dispatch
	if _, err := workflow.ParseConditions(rulesAddFlags.conditions); err != nil {
		return err
	}
	if _, err := workflow.ParseActions(rulesAddFlags.actions); err != nil {
		return err
	}

	rs, err := openRuleStore()
	if err != nil {
		return err
	}
	defer rs.Close()

	rule := &workflow.Rule{
		EventType:  eventType,
		Conditions: rulesAddFlags.conditions,
		Actions:    rulesAddFlags.actions,
		Enabled:    !rulesAddFlags.disabled,
	}
	if err := rs.Create(cmd.Context(), rule); err != nil {
		return cli.NewCommandError("rules add", err)
	}

	fmt.Printf("✓ Rule %d created\n", rule.ID)
	return nil
}

func setRuleEnabled(cmd *cobra.Command, arg string, enabled bool) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id %q", arg)
	}

	rs, err := openRuleStore()
	if err != nil {
		return err
	}
	defer rs.Close()

	if err := rs.SetEnabled(cmd.Context(), id, enabled); err != nil {
		return cli.NewCommandError("rules", err)
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("✓ Rule %d %s\n", id, state)
	return nil
}

func deleteRule(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id %q", args[0])
	}

	rs, err := openRuleStore()
	if err != nil {
		return err
	}
	defer rs.Close()

	if err := rs.Delete(cmd.Context(), id); err != nil {
		return cli.NewCommandError("rules delete", err)
	}

	fmt.Printf("✓ Rule %d deleted\n", id)
	return nil
}
