package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facesearch",
	Short: "Face search for photobooth galleries stored in Google Drive",
	Long: `Facesearch lets event guests find their own photos: given a selfie and a
Google Drive folder of event photos, it compares face embeddings and returns
the photos containing a matching face.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
