package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var dlqAddr string

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and replay dead-lettered deliveries",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-letter entries on a running instance",
	RunE: func(_ *cobra.Command, _ []string) error {
		body, err := adminRequest(http.MethodGet, "/v1/deadletters")
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry <index>",
	Short: "Replay one dead-letter entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if _, err := strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("index must be an integer: %s", args[0])
		}
		body, err := adminRequest(http.MethodPost, "/v1/deadletters/"+args[0]+"/retry")
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

var dlqClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every dead-letter entry",
	RunE: func(_ *cobra.Command, _ []string) error {
		body, err := adminRequest(http.MethodDelete, "/v1/deadletters")
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil
	},
}

func init() {
	dlqCmd.PersistentFlags().StringVar(&dlqAddr, "addr", "http://localhost:8480", "Admin address of the running instance")

	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	dlqCmd.AddCommand(dlqClearCmd)
	rootCmd.AddCommand(dlqCmd)
}

func adminRequest(method, path string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest(method, dlqAddr+path, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", dlqAddr, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, string(data))
	}

	var pretty any
	if err := json.Unmarshal(data, &pretty); err == nil {
		if formatted, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			return string(formatted), nil
		}
	}
	return string(data), nil
}
