package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/stowage/imagecodec"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Store and fetch images",
	Long:  "Convert images to a chosen representation on the way in and decode them on the way out.",
}

var imagePutCmd = &cobra.Command{
	Use:   "put <key> <file>",
	Short: "Re-encode an image file and store it",
	Args:  cobra.ExactArgs(2),
	RunE:  runImagePut,
}

var imageGetCmd = &cobra.Command{
	Use:   "get <key> <file>",
	Short: "Fetch an image and write it in the format implied by file's extension",
	Args:  cobra.ExactArgs(2),
	RunE:  runImageGet,
}

func init() {
	imagePutCmd.Flags().String("format", "png", "png, jpeg, heic or qoi")
	imagePutCmd.Flags().Float64("quality", 0.9, "lossy quality, 0..1")
	imageGetCmd.Flags().String("format", "", "override the output format")

	imageCmd.AddCommand(imagePutCmd, imageGetCmd)
	rootCmd.AddCommand(imageCmd)
}

func runImagePut(cmd *cobra.Command, args []string) (err error) {
	key, file := args[0], args[1]

	name, _ := cmd.Flags().GetString("format")
	format, err := imagecodec.ParseFormat(name)
	if err != nil {
		return err
	}
	quality, _ := cmd.Flags().GetFloat64("quality")

	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	img, _, err := imagecodec.Decode(raw)
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

	repr := imagecodec.Representation{Format: format, Quality: quality}
	path, err := imagecodec.Store(cmd.Context(), sess, key, img, target, repr)
	if err != nil {
		return fmt.Errorf("image put failed: %w", err)
	}
	if path != "" {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	b := img.Bounds()
	fmt.Fprintf(cmd.ErrOrStderr(), "Stored %dx%d image as %q (%s)\n", b.Dx(), b.Dy(), key, format)
	return nil
}

func runImageGet(cmd *cobra.Command, args []string) (err error) {
	key, file := args[0], args[1]

	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(file), ".")
	}
	format, err := imagecodec.ParseFormat(name)
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

	img, err := imagecodec.Load(cmd.Context(), sess, key, target)
	if err != nil {
		return fmt.Errorf("image get failed: %w", err)
	}
	if img == nil {
		return fmt.Errorf("%q: %w", key, errNotFound)
	}

	data, err := imagecodec.Encode(img, imagecodec.Representation{Format: format, Quality: 0.9})
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0o644)
}
