package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"InterviewBot/internal/backend"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the Ollama server",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	endpoint := ""
	if v.GetString("provider") == backend.Ollama {
		endpoint = v.GetString("provider_endpoint")
	}

	models, err := backend.ListOllamaModels(cmd.Context(), nil, endpoint)
	if err != nil {
		return err
	}

	current := v.GetString("provider_model")
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available Ollama models:")
	for i, model := range models {
		sizeGB := float64(model.Size) / (1024 * 1024 * 1024)
		marker := ""
		if model.Name == current {
			marker = " (current)"
		}
		fmt.Fprintf(out, "%d. %s - %.2f GB%s\n", i+1, model.Name, sizeGB, marker)
	}
	return nil
}
