package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/stowage"
)

var errNotFound = errors.New("not found")

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Fetch a payload",
	Long:  "Write the payload stored under key to stdout, or to --out.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) (err error) {
	key := args[0]

	target, err := currentTarget()
	if err != nil {
		return err
	}
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer closeSession(cmd.Context(), sess, &err)

	data, ok, err := sess.Retrieve(cmd.Context(), key, target)
	var ioErr *stowage.IOError
	switch {
	case errors.As(err, &ioErr) && ioErr.NotFound():
		return fmt.Errorf("%q: %w", key, errNotFound)
	case err != nil:
		return fmt.Errorf("get failed: %w", err)
	case !ok:
		return fmt.Errorf("%q: %w", key, errNotFound)
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return os.WriteFile(out, data, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
