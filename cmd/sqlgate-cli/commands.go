package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sqlgate/sqlgate/pkg/adapter"
)

func setupCommands() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(shellCmd)
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables visible on the connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openAdapter()
		if err != nil {
			return err
		}
		defer a.Close()

		tables, err := a.ListTables(cmd.Context())
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Println(t)
		}
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <sql> [param...]",
	Short: "Execute a single statement",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openAdapter()
		if err != nil {
			return err
		}
		defer a.Close()

		params := make([]interface{}, len(args)-1)
		for i, p := range args[1:] {
			params[i] = p
		}
		return runStatement(cmd.Context(), a, args[0], params...)
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive SQL shell",
	Long: "Reads statements from stdin and executes them on one connection. " +
		"Meta commands: \\begin \\commit \\rollback \\tables \\quit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openAdapter()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		scanner := bufio.NewScanner(os.Stdin)
		for {
			prompt := "sql> "
			if a.InTransaction() {
				prompt = "sql*> "
			}
			fmt.Print(prompt)
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "\\") {
				if done, err := runMeta(ctx, a, line); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				} else if done {
					return nil
				}
				continue
			}
			if err := runStatement(ctx, a, line); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		}
	},
}

// runMeta handles shell meta commands. It reports whether the shell should
// exit.
func runMeta(ctx context.Context, a *adapter.Adapter, line string) (bool, error) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "\\q", "\\quit", "\\exit":
		return true, nil
	case "\\begin":
		return false, a.Begin(ctx)
	case "\\commit":
		done, err := a.Commit(ctx)
		if err == nil && !done {
			fmt.Println("no open transaction")
		}
		return false, err
	case "\\rollback":
		done, err := a.Rollback(ctx)
		if err == nil && !done {
			fmt.Println("no open transaction")
		}
		return false, err
	case "\\tables":
		tables, err := a.ListTables(ctx)
		if err != nil {
			return false, err
		}
		for _, t := range tables {
			fmt.Println(t)
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q", line)
	}
}

// runStatement executes one statement, printing rows for queries and the
// affected count for everything else.
func runStatement(ctx context.Context, a *adapter.Adapter, query string, params ...interface{}) error {
	if isQuery(query) {
		st, err := a.Execute(ctx, query, params...)
		if err != nil {
			return err
		}
		defer st.Close()
		rows, err := st.GetAll()
		if err != nil {
			return err
		}
		printRows(rows)
		return nil
	}

	affected, err := a.Exec(ctx, query, params...)
	if err != nil {
		return err
	}
	fmt.Printf("%d row(s) affected\n", affected)
	return nil
}

func isQuery(query string) bool {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "SHOW", "WITH", "EXPLAIN", "DESCRIBE":
		return true
	}
	return false
}

func printRows(rows []map[string]interface{}) {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return
	}

	// Stable column order from the first row.
	cols := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, col := range cols {
			vals[i] = fmt.Sprint(row[col])
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	w.Flush()
	fmt.Printf("(%d row(s))\n", len(rows))
}
