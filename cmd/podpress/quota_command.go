package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podpress/internal/quota"
)

type quotaReport struct {
	Usage   quota.Usage          `json:"usage"`
	History map[string]quota.Day `json:"history"`
}

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	var (
		client     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show today's usage and the retained history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ledger, err := quota.Open(cfg, ctx.log())
			if err != nil {
				return fmt.Errorf("open quota ledger: %w", err)
			}
			defer ledger.Close()

			usage, err := ledger.UsageInfo(cmd.Context(), client)
			if err != nil {
				return err
			}
			history, err := ledger.History(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, quotaReport{Usage: usage, History: history})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Today (%s): %d/%d used, %d remaining\n", usage.Day, usage.Used, usage.Limit, usage.Remaining)
			if client != "" {
				fmt.Fprintf(out, "Client %s: %d\n", client, usage.ClientUsed)
			}
			fmt.Fprintf(out, "Next reset: %s\n", usage.NextResetLabel())
			if len(history) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, renderTable(out,
				[]string{"Day", "Runs", "Clients"},
				historyRows(history),
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "Also report usage for this client")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// historyRows lists days newest first, clients by descending count.
func historyRows(history map[string]quota.Day) [][]string {
	days := make([]string, 0, len(history))
	for day := range history {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	rows := make([][]string, 0, len(days))
	for _, day := range days {
		record := history[day]
		clients := make([]string, 0, len(record.Clients))
		for name := range record.Clients {
			clients = append(clients, name)
		}
		sort.Slice(clients, func(i, j int) bool {
			ci, cj := record.Clients[clients[i]], record.Clients[clients[j]]
			if ci != cj {
				return ci > cj
			}
			return clients[i] < clients[j]
		})
		parts := make([]string, 0, len(clients))
		for _, name := range clients {
			parts = append(parts, fmt.Sprintf("%s=%d", name, record.Clients[name]))
		}
		rows = append(rows, []string{day, strconv.Itoa(record.Total), strings.Join(parts, " ")})
	}
	return rows
}
