// Command finqa is the terminal client for the question-answering
// service. It talks to a running server over HTTP.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/render"
)

var (
	serverURL    string
	outputFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finqa",
		Short: "Ask questions about company annual filings",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "orchestrator base URL")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", render.FormatText, "output format: text, json, or markdown")

	rootCmd.AddCommand(newAskCmd(), newBatchCmd(), newStatsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			var answer domain.Answer
			if err := postJSON("/v1/qa/answer", map[string]string{"query": query}, &answer); err != nil {
				return err
			}

			rendered, err := render.Format(&answer, outputFormat)
			if err != nil {
				return err
			}
			fmt.Println(rendered)
			return nil
		},
	}
}

func newBatchCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Answer a batch of questions, one per line of a file or as arguments",
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := args
			if file != "" {
				content, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read batch file: %w", err)
				}
				for _, line := range strings.Split(string(content), "\n") {
					if line = strings.TrimSpace(line); line != "" {
						queries = append(queries, line)
					}
				}
			}
			if len(queries) == 0 {
				return fmt.Errorf("no queries given: pass arguments or --file")
			}

			var resp struct {
				Answers []*domain.Answer `json:"answers"`
			}
			if err := postJSON("/v1/qa/batch", map[string][]string{"queries": queries}, &resp); err != nil {
				return err
			}

			for i, answer := range resp.Answers {
				rendered, err := render.Format(answer, outputFormat)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Println("---")
				}
				fmt.Println(rendered)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file with one question per line")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index and pipeline statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := httpClient().Get(serverURL + "/v1/qa/stats")
			if err != nil {
				return fmt.Errorf("call stats: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("stats returned status %d", resp.StatusCode)
			}

			var pretty bytes.Buffer
			var raw json.RawMessage
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return fmt.Errorf("decode stats: %w", err)
			}
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				return fmt.Errorf("format stats: %w", err)
			}
			fmt.Println(pretty.String())
			return nil
		},
	}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

func postJSON(path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := httpClient().Post(serverURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
