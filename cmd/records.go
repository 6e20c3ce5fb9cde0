package cmd

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"io"

	"github.com/foomo/gitdb/pkg/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewCreateCommand(root *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "create <file> <id> <json|->",
		Short:   "Add a new record",
		Example: `  gitdb create users.json user1 '{"name":"Alice","age":30}'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := valueArg(cmd, args[2])
			if err != nil {
				return err
			}
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				rev, err := s.Create(ctx, args[0], args[1], value)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rev)
				return err
			})
		},
	}
}

func NewReadCommand(root *viper.Viper) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "read <file> <id>",
		Short: "Print the value of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				value, err := s.Read(ctx, args[0], args[1], snapshotFlag(v))
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFlag(v), value)
			})
		},
	}

	flags := cmd.Flags()
	addSnapshotFlag(flags, v)
	addOutputFlag(flags, v)

	return cmd
}

func NewUpdateCommand(root *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "update <file> <id> <json|->",
		Short: "Replace the value of an existing record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := valueArg(cmd, args[2])
			if err != nil {
				return err
			}
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				rev, err := s.Update(ctx, args[0], args[1], value)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rev)
				return err
			})
		},
	}
}

func NewPatchCommand(root *viper.Viper) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:     "patch <file> <id> <merge-patch|->",
		Short:   "Apply a JSON merge patch to an existing record",
		Example: `  gitdb patch users.json user1 '{"age":31}'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := valueArg(cmd, args[2])
			if err != nil {
				return err
			}
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				value, _, err := s.Patch(ctx, args[0], args[1], patch)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFlag(v), value)
			})
		},
	}

	addOutputFlag(cmd.Flags(), v)

	return cmd
}

func NewDeleteCommand(root *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file> <id>",
		Short: "Remove an existing record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				rev, err := s.Delete(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rev)
				return err
			})
		},
	}
}

func NewListCommand(root *viper.Viper) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "Print the record ids of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(ctx context.Context, s *store.Store) error {
				ids, err := s.List(ctx, args[0], snapshotFlag(v))
				if err != nil {
					return err
				}
				for _, id := range ids {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	addSnapshotFlag(cmd.Flags(), v)

	return cmd
}

// valueArg returns arg as raw JSON, reading stdin for "-"
func valueArg(cmd *cobra.Command, arg string) (stdjson.RawMessage, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
			return nil, errors.Wrap(err, "failed to read stdin")
		}
	}
	if !stdjson.Valid(data) {
		return nil, errors.Wrapf(store.ErrSerialization, "invalid JSON value %q", string(data))
	}
	return data, nil
}
