package inventory

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crucial707/hci-inventory/cmd/cli/client"
	"github.com/crucial707/hci-inventory/cmd/cli/config"
	"github.com/crucial707/hci-inventory/cmd/cli/output"
	inv "github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// Init Inventory
// ==========================
func InitInventory(rootCmd *cobra.Command, opts *config.Options) {
	rootCmd.AddCommand(
		listCmd(opts),
		getCmd(opts),
		addCmd(opts),
		updateCmd(opts),
		patchCmd(opts),
		deleteCmd(opts),
		importCmd(opts),
		exportCmd(opts),
		sampleCmd(opts),
	)
}

func newClient(opts *config.Options) (*client.Client, error) {
	token, err := opts.ResolveToken()
	if err != nil {
		return nil, err
	}
	return client.New(opts.ResolveAPIURL(), token), nil
}

// recordFlags binds one string flag per non-id field.
type recordFlags map[string]*string

func bindRecordFlags(cmd *cobra.Command) recordFlags {
	f := recordFlags{}
	for _, name := range models.Columns[1:] {
		f[name] = cmd.Flags().String(name, "", "record "+name)
	}
	return f
}

// changed returns only the flags the user actually passed, so an explicit
// --status "" is sent while an omitted flag is not.
func (f recordFlags) changed(cmd *cobra.Command) map[string]string {
	out := map[string]string{}
	for name, v := range f {
		if cmd.Flags().Changed(name) {
			out[name] = *v
		}
	}
	return out
}

func printRecord(cmd *cobra.Command, opts *config.Options, rec models.Record) error {
	if opts.JSON {
		return output.RenderJSON(cmd.OutOrStdout(), rec)
	}
	output.RenderRecords(cmd.OutOrStdout(), []models.Record{rec})
	return nil
}

// ==========================
// LIST / GET
// ==========================
func listCmd(opts *config.Options) *cobra.Command {
	var q string
	var offset, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inventory records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			records, err := c.List(cmd.Context(), q, offset, limit)
			if err != nil {
				return err
			}
			if opts.JSON {
				return output.RenderJSON(cmd.OutOrStdout(), records)
			}
			output.RenderRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&q, "query", "q", "", "case-insensitive substring filter")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to return (server caps at 500)")
	return cmd
}

func getCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			rec, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd, opts, rec)
		},
	}
}

// ==========================
// ADD / UPDATE / PATCH
// ==========================
func addCmd(opts *config.Options) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record (the server assigns an id when --id is empty)",
		Args:  cobra.NoArgs,
	}
	fields := bindRecordFlags(cmd)
	cmd.Flags().StringVar(&id, "id", "", "record id")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := newClient(opts)
		if err != nil {
			return err
		}
		payload := fields.changed(cmd)
		if id != "" {
			payload["id"] = id
		}
		rec, err := c.Create(cmd.Context(), payload)
		if err != nil {
			return err
		}
		return printRecord(cmd, opts, rec)
	}
	return cmd
}

func updateCmd(opts *config.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Replace a record; fields not given are cleared",
		Args:  cobra.ExactArgs(1),
	}
	fields := bindRecordFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := newClient(opts)
		if err != nil {
			return err
		}
		payload := map[string]string{}
		for name, v := range fields {
			payload[name] = *v
		}
		rec, err := c.Update(cmd.Context(), args[0], payload)
		if err != nil {
			return err
		}
		return printRecord(cmd, opts, rec)
	}
	return cmd
}

func patchCmd(opts *config.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch [id]",
		Short: "Change only the given fields of a record",
		Args:  cobra.ExactArgs(1),
	}
	fields := bindRecordFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		payload := fields.changed(cmd)
		if len(payload) == 0 {
			return errors.New("nothing to change: pass at least one field flag")
		}
		c, err := newClient(opts)
		if err != nil {
			return err
		}
		rec, err := c.Patch(cmd.Context(), args[0], payload)
		if err != nil {
			return err
		}
		return printRecord(cmd, opts, rec)
	}
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete one or more records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				if err := c.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			}

			res, err := c.BulkDelete(cmd.Context(), args)
			if err != nil {
				return err
			}
			if opts.JSON {
				return output.RenderJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d record(s)\n", len(res.Deleted))
			if len(res.Missing) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Not found: %s\n", strings.Join(res.Missing, ", "))
			}
			return nil
		},
	}
}

// ==========================
// IMPORT
// ==========================
func importCmd(opts *config.Options) *cobra.Command {
	var mode string
	var yes bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a CSV, XLSX or JSON file",
		Long: `Import records from a file. In merge mode (default) rows are upserted by id.
In replace mode the whole inventory is discarded first; you are asked to
confirm unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := inv.ParseImportMode(mode)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			if m == inv.ModeReplace && !yes {
				ok, err := confirm(cmd, "Replace the whole inventory with "+filepath.Base(args[0])+"?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
					return nil
				}
			}

			c, err := newClient(opts)
			if err != nil {
				return err
			}
			res, err := c.Import(cmd.Context(), filepath.Base(args[0]), data, m, m == inv.ModeReplace)
			if err != nil {
				return err
			}
			if opts.JSON {
				return output.RenderJSON(cmd.OutOrStdout(), res)
			}
			output.RenderTable(cmd.OutOrStdout(),
				[]string{"added", "updated", "skipped", "total"},
				[][]interface{}{{res.Added, res.Updated, res.Skipped, res.Total}})
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "merge", "merge or replace")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before a replace import")
	return cmd
}

func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s Type 'yes' to continue: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes"), nil
}

// ==========================
// EXPORT / SAMPLE
// ==========================
func exportCmd(opts *config.Options) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the inventory as CSV, JSON or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := inv.ParseFormat(format)
			if err != nil {
				return err
			}
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			data, err := c.Export(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, "inventory."+string(f), data)
		},
	}

	cmd.Flags().StringVar(&format, "fmt", "csv", "csv, json or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file ("-" for stdout; default inventory.<fmt>)`)
	return cmd
}

func sampleCmd(opts *config.Options) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Download an import template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := inv.ParseFormat(format)
			if err != nil {
				return err
			}
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			data, err := c.Sample(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, "inventory_sample."+string(f), data)
		},
	}

	cmd.Flags().StringVar(&format, "fmt", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file ("-" for stdout)`)
	return cmd
}

func writeOutput(cmd *cobra.Command, path, fallback string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if path == "" {
		path = fallback
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(data))
	return nil
}
