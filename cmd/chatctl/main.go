// chatctl is a small CLI for talking to a running chatqna-orchestrator.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	stream    bool
	maxTokens int
	topN      int
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Chat with a running chatqna-orchestrator",
	Long: `chatctl sends questions to a chatqna-orchestrator instance.

Example usage:
  chatctl ask "What does the manual say about setup?"
  chatctl ask --stream "Summarize the installation steps"
  chatctl ready`,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question through the RAG pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Check orchestrator and stage service readiness",
	RunE:  runReady,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8888", "orchestrator base URL")
	askCmd.Flags().BoolVar(&stream, "stream", false, "stream the answer token by token")
	askCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "override max_tokens (0 uses the server default)")
	askCmd.Flags().IntVar(&topN, "top-n", 0, "override rerank top_n (0 uses the server default)")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(readyCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	if stream {
		return askStreaming(ctx, question)
	}
	return askBuffered(ctx, question)
}

// askBuffered uses the OpenAI-compatible surface directly.
func askBuffered(ctx context.Context, question string) error {
	cfg := openai.DefaultConfig("unused")
	cfg.BaseURL = strings.TrimRight(serverURL, "/") + "/v1"
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model: "chatqna",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("empty response from orchestrator")
	}
	fmt.Println(resp.Choices[0].Message.Content)
	return nil
}

// askStreaming reads the orchestrator's SSE dialect: data: {"content": ...}
// frames terminated by data: [DONE].
func askStreaming(ctx context.Context, question string) error {
	body := map[string]any{
		"messages": question,
		"stream":   true,
	}
	if maxTokens > 0 {
		body["max_tokens"] = maxTokens
	}
	if topN > 0 {
		body["top_n"] = topN
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(serverURL, "/")+"/v1/chat/completions", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orchestrator returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var frame struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			continue
		}
		fmt.Print(frame.Content)
	}
	fmt.Println()
	return scanner.Err()
}

func runReady(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(serverURL, "/")+"/readyz", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("readiness check failed: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		Ready  bool              `json:"ready"`
		Stages map[string]string `json:"stages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode readiness response: %w", err)
	}

	for stage, state := range status.Stages {
		fmt.Printf("%-10s %s\n", stage, state)
	}
	if !status.Ready {
		return fmt.Errorf("orchestrator is not ready")
	}
	fmt.Println("ready")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
