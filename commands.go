package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/netgateway-provider/internal/netgateway"
)

// app is the state shared by all commands.
type app struct {
	v        *viper.Viper
	log      zerolog.Logger
	provider *netgateway.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper(), log: zerolog.Nop()}
	var cfgFile string

	root := &cobra.Command{
		Use:   "netgateway",
		Short: "Manage network gateways and gateway connections",
		Long: `netgateway applies templates of OS::Neutron::NetworkGateway and
OS::Neutron::NetworkGatewayConnection resources to an OpenStack network
service, records the resulting stack state, and tears stacks down again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := readConfigFile(a.v, cfgFile); err != nil {
				return err
			}
			log, err := newLogger(a.v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.log = log
			a.provider = netgateway.NewProvider(netgateway.WithLogger(log))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./netgateway.yaml or $HOME/.netgateway/netgateway.yaml)")
	pf.String("state", "", "state store: a bbolt file path or s3://bucket/prefix")
	pf.String("stack", "", "stack name")
	pf.String("schema-revision", "", "gateway extension revision (v1 or v2)")
	pf.String("endpoint", "", "fixed network service URL; skips Keystone")
	pf.String("region", "", "cloud region")
	pf.Bool("dry-run", false, "use an in-memory network service")
	pf.String("log-format", "", "log format (console or json)")
	pf.String("log-level", "", "log level")

	for key, flag := range map[string]string{
		"state":           "state",
		"stack_name":      "stack",
		"schema_revision": "schema-revision",
		"endpoint":        "endpoint",
		"region":          "region",
		"dry_run":         "dry-run",
		"log_format":      "log-format",
		"log_level":       "log-level",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		a.validateCmd(),
		a.applyCmd(),
		a.destroyCmd(),
		a.statusCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [template]",
		Short: "Validate the configuration and, if given, a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := providerConfig(a.v)
			if err != nil {
				return err
			}
			req := &netgateway.ValidateRequest{Config: cfg}

			var resp *netgateway.ValidateResponse
			if len(args) == 1 {
				if req.Template, err = readTemplate(args[0]); err != nil {
					return err
				}
				resp, err = a.provider.ValidateTemplate(cmd.Context(), req)
			} else {
				resp, err = a.provider.ValidateConfig(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, w := range resp.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			for _, e := range resp.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			if !resp.Valid {
				return fmt.Errorf("validation failed with %d error(s)", len(resp.Errors))
			}
			fmt.Fprintln(out, "valid")
			return nil
		},
	}
}

func (a *app) applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <template>",
		Short: "Create or converge the resources of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := readTemplate(args[0])
			if err != nil {
				return err
			}
			cfg, err := providerConfig(a.v)
			if err != nil {
				return err
			}
			store, err := netgateway.OpenStateStore(cmd.Context(), a.v.GetString("state"), a.v.GetString("region"))
			if err != nil {
				return err
			}
			defer store.Close()

			stack := a.v.GetString("stack_name")
			prior, err := store.Load(cmd.Context(), stack)
			if err != nil {
				return err
			}

			state, applyErr := a.provider.Apply(cmd.Context(), &netgateway.ApplyRequest{
				Config:     cfg,
				Template:   tmpl,
				PriorState: prior,
			}, printEvents(cmd.OutOrStdout()))
			if state != "" {
				if err := store.Save(cmd.Context(), stack, state); err != nil {
					return errors.Join(applyErr, fmt.Errorf("save state: %w", err))
				}
			}
			return applyErr
		},
	}
}

func (a *app) destroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy",
		Short: "Delete every resource of the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := providerConfig(a.v)
			if err != nil {
				return err
			}
			store, err := netgateway.OpenStateStore(cmd.Context(), a.v.GetString("state"), a.v.GetString("region"))
			if err != nil {
				return err
			}
			defer store.Close()

			stack := a.v.GetString("stack_name")
			prior, err := store.Load(cmd.Context(), stack)
			if err != nil {
				return err
			}

			remaining, destroyErr := a.provider.Destroy(cmd.Context(), &netgateway.DestroyRequest{
				Config:     cfg,
				PriorState: prior,
			}, printEvents(cmd.OutOrStdout()))
			if err := store.Save(cmd.Context(), stack, remaining); err != nil {
				return errors.Join(destroyErr, fmt.Errorf("save state: %w", err))
			}
			return destroyErr
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the health of every resource of the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := providerConfig(a.v)
			if err != nil {
				return err
			}
			store, err := netgateway.OpenStateStore(cmd.Context(), a.v.GetString("state"), a.v.GetString("region"))
			if err != nil {
				return err
			}
			defer store.Close()

			prior, err := store.Load(cmd.Context(), a.v.GetString("stack_name"))
			if err != nil {
				return err
			}
			resp, err := a.provider.Status(cmd.Context(), &netgateway.StatusRequest{Config: cfg, PriorState: prior})
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), output, resp)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (table or json)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "netgateway %s (commit %s, built %s)\n",
				netgateway.Version, netgateway.Commit, netgateway.Date)
			return nil
		},
	}
}

// printEvents returns a callback that prints one line per event.
func printEvents(w io.Writer) netgateway.Callback {
	return func(ev *netgateway.Event) error {
		switch ev.Type {
		case netgateway.EventProgress:
			fmt.Fprintf(w, "[%3.0f%%] %s\n", ev.Progress*100, ev.Message)
		case netgateway.EventResource:
			if ev.Resource != nil && ev.Resource.ResourceID != "" {
				fmt.Fprintf(w, "  ok    %s (%s)\n", ev.Message, ev.Resource.ResourceID)
			} else {
				fmt.Fprintf(w, "  ok    %s\n", ev.Message)
			}
		case netgateway.EventError:
			fmt.Fprintf(w, "  error %s\n", ev.Message)
		case netgateway.EventComplete:
			fmt.Fprintln(w, ev.Message)
		}
		return nil
	}
}

// writeStatus renders a status response as a table or JSON.
func writeStatus(w io.Writer, format string, resp *netgateway.StatusResponse) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTYPE\tSTATUS\tRESOURCE ID")
		for _, r := range resp.Resources {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Type, r.Status, r.ResourceID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "stack: %s\n", resp.Status)
		return nil
	default:
		return fmt.Errorf("unknown output format %q: want table or json", format)
	}
}
