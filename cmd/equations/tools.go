package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/equations/pkg/expr"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "eval <equation>",
		Short:        "Evaluate an equation once and print the result",
		Example:      `  equations eval "3x + 2y - z" --var x=2 --var y=3 --var z=1`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := expr.Parse(args[0])
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetStringArray("var")
			vars, err := parseVars(raw)
			if err != nil {
				return err
			}
			result, err := expr.Evaluate(tree, vars)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(result, 'g', -1, 64))
			return nil
		},
	}
	cmd.Flags().StringArray("var", nil, "Variable binding name=value (repeatable)")
	return cmd
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "render <equation>",
		Short:        "Print the canonical infix form of an equation",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := expr.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), expr.Render(tree))
			return nil
		},
	}
}

func newPostfixCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "postfix <equation>",
		Short:        "Print the postfix tokens of an equation",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := expr.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(expr.Postfix(tree), " "))
			return nil
		},
	}
}

// parseVars turns name=value pairs into bindings.
func parseVars(pairs []string) (expr.Bindings, error) {
	vars := expr.Bindings{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --var %q: %w", p, err)
		}
		vars[name] = f
	}
	return vars, nil
}
