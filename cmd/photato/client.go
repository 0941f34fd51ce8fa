package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vbonduro/photato/internal/gallery"
)

const defaultAPI = "http://localhost:3001"

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the URL of every photo in the gallery",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := newGallery(cmd)
		if err != nil {
			return err
		}
		g.Refresh(cmd.Context())
		printItems(cmd, g.Photos())
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Uploads a photo and prints the refreshed gallery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := newGallery(cmd)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open photo: %w", err)
		}
		defer f.Close()

		uploadErr := g.SelectPhoto(cmd.Context(), filepath.Base(args[0]), f)
		printItems(cmd, g.Photos())
		return uploadErr
	},
}

func newGallery(cmd *cobra.Command) (*gallery.Gallery, error) {
	api, err := cmd.Flags().GetString("api")
	if err != nil {
		return nil, err
	}
	logger := slog.Default()
	return gallery.New(gallery.NewClient(api, logger), gallery.LogNotifier{Logger: logger}), nil
}

func printItems(cmd *cobra.Command, items []gallery.Item) {
	for _, item := range items {
		fmt.Fprintln(cmd.OutOrStdout(), item.Src)
	}
}

func init() {
	for _, c := range []*cobra.Command{listCmd, uploadCmd} {
		c.Flags().String("api", defaultAPI, "Base URL of the photo API")
		rootCmd.AddCommand(c)
	}
}
