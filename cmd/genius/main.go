// Command genius runs the marketing suggestion engine from the command line.
package main

import (
	"encoding/json"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/genius"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "genius",
		Short:        "Marketing suggestions for a business URL",
		SilenceUsage: true,
	}
	root.AddCommand(newAnalyzeCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	var (
		employees int
		rulesPath string
		seed      uint64
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Print the full analysis report for a URL as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop()
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer l.Sync()
				logger = l
			}

			opts := []genius.Option{
				genius.WithLogger(logger),
				genius.WithRateLimiter(genius.NewRateLimiter(0)),
			}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, genius.WithRand(rand.New(rand.NewPCG(seed, seed))))
			}
			engine := genius.New(genius.LoadRules(rulesPath, logger), opts...)

			var count *int
			if cmd.Flags().Changed("employees") {
				count = &employees
			}
			report, err := engine.Analyze(args[0], count)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().IntVarP(&employees, "employees", "e", 0, "employee count used to pick the business size")
	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "rules file (YAML or JSON)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for reproducible output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
	return cmd
}
