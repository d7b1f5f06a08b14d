// Command promptctl inspects the instructions the chat service would send.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"therapy-companion/internal/domain"
	"therapy-companion/internal/prompt"
	"therapy-companion/internal/repository"
	"therapy-companion/internal/router"
)

// turnReader is the part of the turn log promptctl reads.
type turnReader interface {
	GetConversationTurnCount(ctx context.Context, conversationID string) (int, error)
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]domain.TurnRecord, error)
}

type openTurnsFunc func(ctx context.Context, table string) (turnReader, error)

func openDynamoTurns(ctx context.Context, table string) (turnReader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	c, err := repository.New(awsdynamodb.NewFromConfig(cfg), table)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func main() {
	if err := newRootCmd(openDynamoTurns).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(openTurns openTurnsFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "promptctl",
		Short:        "Inspect chat instructions, routing and the turn log",
		SilenceUsage: true,
	}
	root.AddCommand(newModesCmd(), newRouteCmd(), newBuildCmd(), newTurnsCmd(openTurns))
	return root
}

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List modes and analytic submodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "modes:")
			for _, m := range domain.Modes() {
				fmt.Fprintf(out, "  %s\n", m)
			}
			fmt.Fprintln(out, "submodes:")
			for _, sm := range domain.Submodes() {
				fmt.Fprintf(out, "  %s\n", sm)
			}
			return nil
		},
	}
}

func newRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <text>",
		Short: "Print the analytic submode chosen for a user message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), router.Route(strings.Join(args, " ")))
			return nil
		},
	}
}

type buildOptions struct {
	mode      string
	messages  []string
	overrides string
	submode   string
	explain   bool
}

func newBuildCmd() *cobra.Command {
	var o buildOptions
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Print the full system instruction for a mode and user messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().StringVar(&o.mode, "mode", string(domain.ModeSupport), "conversation mode")
	cmd.Flags().StringArrayVar(&o.messages, "message", nil, "user message, repeatable, oldest first")
	cmd.Flags().StringVar(&o.overrides, "overrides", "", "YAML prompt overrides file")
	cmd.Flags().StringVar(&o.submode, "submode", "", "force an analytic submode instead of routing")
	cmd.Flags().BoolVar(&o.explain, "explain", false, "print the resolved mode and submode before the instruction")
	return cmd
}

func runBuild(out io.Writer, o buildOptions) error {
	store, err := prompt.LoadStore(o.overrides)
	if err != nil {
		return err
	}
	a, err := prompt.NewAssembler(store)
	if err != nil {
		return err
	}

	var asm prompt.Assembly
	if o.submode != "" {
		sm, ok := domain.ParseSubmode(o.submode)
		if !ok {
			return fmt.Errorf("unknown submode %q", o.submode)
		}
		asm = a.BuildWithSubmode(sm)
	} else {
		messages := make([]domain.Message, 0, len(o.messages))
		for _, m := range o.messages {
			messages = append(messages, domain.Message{Role: domain.RoleUser, Content: m})
		}
		asm = a.Explain(domain.ParseMode(o.mode), messages)
	}

	if o.explain {
		fmt.Fprintf(out, "mode: %s\n", asm.Mode)
		if asm.Submode != "" {
			fmt.Fprintf(out, "submode: %s\n", asm.Submode)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, asm.Instruction)
	return nil
}

func newTurnsCmd(openTurns openTurnsFunc) *cobra.Command {
	var (
		table string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "turns <conversation-id>",
		Short: "Show recorded turn metadata for a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if table == "" {
				table = os.Getenv("STATE_TABLE")
			}
			if table == "" {
				return errors.New("--table or STATE_TABLE is required")
			}
			turns, err := openTurns(cmd.Context(), table)
			if err != nil {
				return err
			}
			return printTurns(cmd.Context(), cmd.OutOrStdout(), turns, args[0], limit)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "DynamoDB table (defaults to STATE_TABLE)")
	cmd.Flags().IntVar(&limit, "limit", 20, "most recent turns to show")
	return cmd
}

func printTurns(ctx context.Context, out io.Writer, turns turnReader, conversationID string, limit int) error {
	count, err := turns.GetConversationTurnCount(ctx, conversationID)
	if err != nil {
		return err
	}
	recent, err := turns.RecentTurns(ctx, conversationID, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "conversation %s: %d turn(s)\n", conversationID, count)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tMODE\tSUBMODE\tDEGRADED\tERROR")
	for _, t := range recent {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			strings.TrimPrefix(t.SK, "TURN#"), t.Mode, dash(t.Submode), t.Degraded, dash(t.ErrorCode))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
