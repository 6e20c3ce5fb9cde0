package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/foomo/gitdb/pkg/store"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewLogCommand(root *viper.Viper) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "log <file>",
		Short: "Print the snapshots that changed a document, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				snapshots, err := s.History(ctx, args[0], limitFlag(v))
				if err != nil {
					return err
				}
				for _, snap := range snapshots {
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
						snap.ID, snap.Time.UTC().Format(time.RFC3339), snap.Author, snap.Message,
					); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	addLimitFlag(cmd.Flags(), v)

	return cmd
}

func NewDiffCommand(root *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <file> <from> [to]",
		Short: "Show the record changes of a document between two snapshots",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := ""
			if len(args) == 3 {
				to = args[2]
			}
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				changes, err := s.Diff(ctx, args[0], args[1], to)
				if err != nil {
					return err
				}
				return renderChanges(cmd.OutOrStdout(), changes)
			})
		},
	}
}

func NewHeadCommand(root *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "head",
		Short: "Print the id of the latest snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				rev, err := s.Head(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rev)
				return err
			})
		},
	}
}

var (
	colorHeader = color.New(color.FgCyan)
	colorInsert = color.New(color.FgGreen)
	colorDelete = color.New(color.FgRed)
)

// renderChanges prints a line diff of the indented values of every change
func renderChanges(w io.Writer, changes []store.Change) error {
	dmp := diffmatchpatch.New()
	for _, change := range changes {
		before, err := indentOrEmpty(change.Before)
		if err != nil {
			return err
		}
		after, err := indentOrEmpty(change.After)
		if err != nil {
			return err
		}

		if _, err := colorHeader.Fprintf(w, "@@ %s (%s) @@\n", change.ID, change.Kind); err != nil {
			return err
		}
		a, b, lines := dmp.DiffLinesToChars(before, after)
		diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
		for _, d := range diffs {
			for _, line := range strings.SplitAfter(d.Text, "\n") {
				if line == "" {
					continue
				}
				switch d.Type {
				case diffmatchpatch.DiffInsert:
					_, err = colorInsert.Fprint(w, "+"+line)
				case diffmatchpatch.DiffDelete:
					_, err = colorDelete.Fprint(w, "-"+line)
				default:
					_, err = fmt.Fprint(w, " "+line)
				}
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func indentOrEmpty(value []byte) (string, error) {
	if len(value) == 0 {
		return "", nil
	}
	out, err := indentJSON(value)
	return string(out), err
}
