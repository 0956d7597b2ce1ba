package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
	token   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fxledger-cli",
		Short: "fxledger CLI tool",
		Long:  `A command line interface for interacting with the fxledger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the fxledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token for authenticated deployments")

	rootCmd.AddCommand(
		balanceCmd(),
		tradeCmd(),
		undoCmd(),
		redoCmd(),
		overrideCmd(),
		logCmd(),
		statsCmd(),
		rateCmd(),
		valuationCmd(),
		historyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/balance")
		},
	}
}

func tradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trade PAIR AMOUNT RATE",
		Short: "Execute a trade (negative amount sells the base currency)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{
				"currency_pair": args[0],
				"amount":        args[1],
				"rate":          args[2],
			}
			return postAndPrint("/api/v1/trades", payload)
		},
	}
}

func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Reverse the most recent active trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint("/api/v1/trades/undo", nil)
		},
	}
}

func redoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Re-apply the most recently reversed trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint("/api/v1/trades/redo", nil)
		},
	}
}

func overrideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "override CURRENCY AMOUNT",
		Short: "Force a currency balance to an absolute amount (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{"amount": args[1]}
			return doAndPrint(http.MethodPut, "/api/v1/balance/"+args[0], payload)
		},
	}
}

func logCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint(fmt.Sprintf("/api/v1/trades?limit=%d", limit))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of transactions")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the transaction log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/trades/statistics")
		},
	}
}

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate PAIR",
		Short: "Quote the current exchange rate for a pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/rates/" + args[0])
		},
	}
}

func valuationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "valuation",
		Short: "Value the balance in the home currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/balance/valuation")
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent balance snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint(fmt.Sprintf("/api/v1/balance/history?limit=%d", limit))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of snapshots")
	return cmd
}

func getAndPrint(path string) error {
	return doAndPrint(http.MethodGet, path, nil)
}

func postAndPrint(path string, payload any) error {
	return doAndPrint(http.MethodPost, path, payload)
}

func doAndPrint(method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	printJSON(decoded)
	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(data))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
