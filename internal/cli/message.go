package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baedrik/skulls2/internal/api"
	"github.com/baedrik/skulls2/internal/traits"
)

// messageBody returns the message from the single argument, or from --file.
func messageBody(cmd *cobra.Command, args []string, file string) ([]byte, error) {
	switch {
	case file != "" && len(args) > 0:
		return nil, fmt.Errorf("%w: pass the message as an argument or with --file, not both", errUsage)
	case file != "":
		return readInput(cmd.InOrStdin(), file)
	case len(args) == 1:
		return []byte(args[0]), nil
	default:
		return nil, fmt.Errorf("%w: no message given", errUsage)
	}
}

func newExecuteCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "execute [message]",
		Short: "Apply an execute message to the registry",
		Long: `Execute applies one administrative message, the same JSON accepted by
POST /v1/execute, and prints the answer.

Example:
  skulls execute '{"modify_category":{"name":"eyes","new_skip":true}}'
  skulls execute --file add_hats.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := messageBody(cmd, args, file)
			if err != nil {
				return err
			}
			op, err := api.DecodeExecute(bytes.NewReader(body))
			if err != nil {
				return err
			}
			return a.withRegistry(func(reg *traits.Registry) error {
				answer, err := api.Execute(reg, op)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), answer)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the message from a file (- for stdin)")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "query [message]",
		Short: "Answer a query message from the registry",
		Long: `Query answers one read-only message, the same JSON accepted by
POST /v1/query, and prints the answer.

Example:
  skulls query '{"state":{}}'
  skulls query '{"transmute":{"current":[0,0],"new_layers":[{"category":"eyes","variant":"cyclops"}]}}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := messageBody(cmd, args, file)
			if err != nil {
				return err
			}
			op, err := api.DecodeQuery(bytes.NewReader(body))
			if err != nil {
				return err
			}
			return a.withRegistry(func(reg *traits.Registry) error {
				answer, err := api.Query(reg, op)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), answer)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the message from a file (- for stdin)")
	return cmd
}
