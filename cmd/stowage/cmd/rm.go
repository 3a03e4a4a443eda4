package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove payloads",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) (err error) {
	target, err := currentTarget()
	if err != nil {
		return err
	}
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer closeSession(cmd.Context(), sess, &err)

	// file removals go through the worker pool together
	type result struct {
		key  string
		wait func() error
	}
	results := make([]result, 0, len(args))
	for _, key := range args {
		p := sess.RemoveAsync(cmd.Context(), key, target)
		results = append(results, result{key: key, wait: func() error {
			_, err := p.Wait(cmd.Context())
			return err
		}})
	}

	var failed int
	for _, r := range results {
		if err := r.wait(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "rm %s: %v\n", r.key, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("rm failed for %d of %d keys", failed, len(args))
	}
	return nil
}
