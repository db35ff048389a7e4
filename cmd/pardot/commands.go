package main

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/natserract/pardot/pkg/pardot"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate and report the auth mode in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Login(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("Login succeeded", zap.String("auth_mode", a.cfg.ResolvedAuthMode()))
			return a.print(cmd.Context(), map[string]any{
				"authenticated": true,
				"auth_mode":     a.cfg.ResolvedAuthMode(),
				"base_uri":      a.cfg.BaseURI,
				"api_version":   a.cfg.APIVersion,
			})
		},
	}
}

func newObjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "objects",
		Short: "List the supported objects and their operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := pardot.NewClient(nil, zap.NewNop())
			out := make(map[string]any)
			for _, name := range client.ObjectNames() {
				o, _ := client.Object(name)
				ops := o.Operations()
				sort.Strings(ops)
				list := make([]any, len(ops))
				for i, op := range ops {
					list[i] = op
				}
				out[name] = list
			}
			return a.print(cmd.Context(), out)
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <object> [param=value...]",
		Short: "Run a query against an object",
		Example: `  pardot query prospect created_after=yesterday limit=50
  pardot query visitor ids=1,2,3 --jq '.visitor[].id'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.object(args[0])
			if err != nil {
				return err
			}
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			qr, err := o.Query(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.print(cmd.Context(), qr.Result)
		},
	}
}

func newReadCmd(a *app) *cobra.Command {
	var (
		by          string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "read <object> <value>...",
		Short: "Read one or more records",
		Example: `  pardot read prospect 1001 1002 1003
  pardot read prospect a@b.com --by email`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.object(args[0])
			if err != nil {
				return err
			}
			if concurrency < 1 {
				concurrency = 1
			}
			values := args[1:]

			results := make([]any, len(values))
			p := pool.New().WithMaxGoroutines(concurrency).WithErrors()
			for i, value := range values {
				p.Go(func() error {
					body, err := o.ReadBy(cmd.Context(), by, value)
					if err != nil {
						a.logger.Warn("Read failed",
							zap.String("object", o.Name),
							zap.String(by, value),
							zap.Error(err))
						return fmt.Errorf("read %s %s=%s: %w", o.Name, by, value, err)
					}
					results[i] = body
					return nil
				})
			}
			if err := p.Wait(); err != nil {
				return err
			}

			if len(results) == 1 {
				return a.print(cmd.Context(), results[0])
			}
			return a.print(cmd.Context(), results)
		},
	}

	cmd.Flags().StringVar(&by, "by", "id", "Identifying field (id, email or fid)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Maximum concurrent requests")
	return cmd
}

func newCallCmd(a *app) *cobra.Command {
	var fields map[string]string

	cmd := &cobra.Command{
		Use:   "call <object> <operation> [param=value...]",
		Short: "Invoke any operation from the object table",
		Example: `  pardot call listMembership create/list_id/prospect_id --arg list_id=3 --arg prospect_id=7
  pardot call prospect update/id --arg id=1001 score=50`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.object(args[0])
			if err != nil {
				return err
			}
			params, err := parseParams(args[2:])
			if err != nil {
				return err
			}
			res, err := o.Call(cmd.Context(), args[1], pardot.Args(fields), params)
			if err != nil {
				return err
			}
			if res.IsJSON() {
				return a.print(cmd.Context(), res.Body)
			}
			if len(res.Raw) > 0 {
				_, err := a.out.Write(res.Raw)
				return err
			}
			return a.print(cmd.Context(), map[string]any{"status_code": res.StatusCode})
		},
	}

	cmd.Flags().StringToStringVar(&fields, "arg", nil, "Identifying path value as field=value")
	return cmd
}

// parseParams turns param=value arguments into url.Values. Repeated keys
// keep every value.
func parseParams(args []string) (url.Values, error) {
	params := url.Values{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected param=value", arg)
		}
		params.Add(strings.TrimSpace(key), value)
	}
	return params, nil
}
