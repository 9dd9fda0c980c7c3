package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/condmatch/internal/rules"
)

// evalChunk is how many subjects are evaluated in parallel before results are
// written.
const evalChunk = 256

var evalCmd = &cobra.Command{
	Use:   "eval [subjects-file]",
	Short: "Evaluate rules against JSON subjects",
	Long: `Evaluate a rule document against a stream of JSON subjects read from a file
or stdin (one document, JSONL, or concatenated documents). One JSON result
line is written per subject.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().String("rules", "", "rule document file")
	evalCmd.Flags().String("rule-set", "", "catalog rule set name")
	evalCmd.Flags().Bool("detailed", false, "include per-condition results")
	evalCmd.Flags().Bool("only-matching", false, "write results for matching subjects only")
}

// evalResult is one output line.
type evalResult struct {
	Index      int               `json:"index"`
	Matched    bool              `json:"matched"`
	Error      string            `json:"error,omitempty"`
	Conditions []conditionOutput `json:"conditions,omitempty"`
}

type conditionOutput struct {
	Description string `json:"description"`
	Passed      bool   `json:"passed"`
	Error       string `json:"error,omitempty"`
}

type evalOptions struct {
	detailed     bool
	onlyMatching bool
	workers      int
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	rulesFile, _ := cmd.Flags().GetString("rules")
	ruleSet, _ := cmd.Flags().GetString("rule-set")

	var m rules.Evaluator
	switch {
	case rulesFile != "" && ruleSet != "":
		return fmt.Errorf("use either --rules or --rule-set, not both")
	case rulesFile != "":
		data, err := os.ReadFile(rulesFile)
		if err != nil {
			return fmt.Errorf("failed to read rules: %w", err)
		}
		engine, err := e.engine()
		if err != nil {
			return err
		}
		jm, err := rules.FromJSON(data, rules.WithEngine(engine))
		if err != nil {
			return fmt.Errorf("%s: %w", rulesFile, err)
		}
		m = jm
	case ruleSet != "":
		cat, closeDB, err := e.openCatalog(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		jm, err := cat.Matcher(ctx, ruleSet)
		if err != nil {
			return err
		}
		m = jm
	default:
		return fmt.Errorf("--rules or --rule-set required")
	}

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open subjects: %w", err)
		}
		defer f.Close()
		in = f
	}

	opts := evalOptions{workers: e.cfg.Engine.Workers}
	opts.detailed, _ = cmd.Flags().GetBool("detailed")
	opts.onlyMatching, _ = cmd.Flags().GetBool("only-matching")

	matched, total, err := evaluateStream(ctx, m, in, cmd.OutOrStdout(), opts)
	if err != nil {
		return err
	}
	e.logger.Info("evaluation complete", zap.Int("subjects", total), zap.Int("matched", matched))
	return nil
}

// evaluateStream reads JSON subjects from in and writes one result line per
// subject to out. Subjects are evaluated in chunks so output order follows
// input order.
func evaluateStream(ctx context.Context, m rules.Evaluator, in io.Reader, out io.Writer, opts evalOptions) (matched, total int, err error) {
	dec := json.NewDecoder(bufio.NewReader(in))
	w := bufio.NewWriter(out)
	defer func() {
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("failed to write results: %w", ferr)
		}
	}()
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	chunk := make([]*rules.JSONDocument, 0, evalChunk)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		results, err := rules.ParallelRunDetailed(ctx, m, chunk, opts.workers)
		if err != nil {
			return err
		}
		base := total - len(chunk)
		for i, r := range results {
			if r.IsMatch {
				matched++
			} else if opts.onlyMatching {
				continue
			}
			if err := enc.Encode(toEvalResult(base+i, r, opts.detailed)); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
		}
		chunk = chunk[:0]
		return nil
	}
	// stop writes results for the subjects read before a bad one, so the
	// output covers every subject preceding the reported index.
	stop := func(cause error) error {
		if err := flush(); err != nil {
			return errors.Join(cause, err)
		}
		return cause
	}

	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return matched, total, stop(fmt.Errorf("subject %d: %w", total, err))
		}
		doc, err := rules.ParseJSONDocument(raw)
		if err != nil {
			return matched, total, stop(fmt.Errorf("subject %d: %w", total, err))
		}
		chunk = append(chunk, doc)
		total++

		if len(chunk) == evalChunk {
			if err := flush(); err != nil {
				return matched, total, err
			}
		}
	}
	if err := flush(); err != nil {
		return matched, total, err
	}
	return matched, total, nil
}

func toEvalResult(index int, r rules.MatchResult, detailed bool) evalResult {
	res := evalResult{Index: index, Matched: r.IsMatch}
	if errs := r.Errors(); len(errs) > 0 {
		res.Error = errs[0].Error()
	}
	if !detailed {
		return res
	}
	for _, leaf := range r.AllConditionResults() {
		c := conditionOutput{Description: leaf.Description, Passed: leaf.Passed}
		if leaf.Error != nil {
			c.Error = leaf.Error.Error()
		}
		res.Conditions = append(res.Conditions, c)
	}
	return res
}
