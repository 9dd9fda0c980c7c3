package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage rule sets in the catalog",
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <name> <file>",
	Short: "Compile a rule document and store it under name",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulesImport,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rule sets",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored rule document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesShow,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored rule set",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesDelete,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesImportCmd, rulesListCmd, rulesShowCmd, rulesDeleteCmd)
	rulesImportCmd.Flags().String("description", "", "free-form description")
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read rules: %w", err)
	}

	cat, closeDB, err := e.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	description, _ := cmd.Flags().GetString("description")
	rs, err := cat.Save(ctx, args[0], description, data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tcomplexity %d\n", rs.Name, rs.ID, rs.Complexity)
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	cat, closeDB, err := e.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	sets, err := cat.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOMPLEXITY\tUPDATED\tDESCRIPTION")
	for _, rs := range sets {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", rs.Name, rs.Complexity, rs.UpdatedAt.Format("2006-01-02 15:04:05"), rs.Description)
	}
	return tw.Flush()
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	cat, closeDB, err := e.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	rs, err := cat.Get(ctx, args[0])
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(rs.Document), "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

func runRulesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	cat, closeDB, err := e.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	return cat.Delete(ctx, args[0])
}
