package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <key> [file]",
	Short: "Store a payload",
	Long:  "Store the contents of file (or stdin) under key in the selected target.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPut,
}

func init() {
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) (err error) {
	key := args[0]

	var data []byte
	if len(args) == 2 {
		data, err = os.ReadFile(args[1])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	target, err := currentTarget()
	if err != nil {
		return err
	}
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer closeSession(cmd.Context(), sess, &err)

	path, err := sess.Store(cmd.Context(), key, data, target)
	if err != nil {
		return fmt.Errorf("put failed: %w", err)
	}

	if path != "" {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Stored %d bytes as %q in %s\n", len(data), key, target)
	return nil
}
