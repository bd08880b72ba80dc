package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tripfarm/internal/deps"
	"tripfarm/internal/logging"
	"tripfarm/internal/mailer"
	"tripfarm/internal/preflight"
)

type verifyCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

type verifyDependency struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

type verifyReport struct {
	Passed       bool               `json:"passed"`
	Checks       []verifyCheck      `json:"checks"`
	Dependencies []verifyDependency `json:"dependencies"`
}

var errPreflightFailed = errors.New("preflight checks failed")

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var skipSMTP bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check mail credentials, timezone, directories and client tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var sender mailer.Sender
			if !skipSMTP {
				sender = mailer.NewSender(cfg, logging.NewNop())
			}
			results := preflight.RunAll(cmd.Context(), cfg, sender)
			statuses := preflight.CheckClientDeps(cfg)

			report := buildVerifyReport(results, statuses)
			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderVerifyReport(cmd, report)
			}
			if !report.Passed {
				return errPreflightFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&skipSMTP, "skip-smtp", false, "Do not dial the SMTP server")
	return cmd
}

func buildVerifyReport(results []preflight.Result, statuses []deps.Status) verifyReport {
	report := verifyReport{
		Passed:       !preflight.Failed(results),
		Checks:       make([]verifyCheck, 0, len(results)),
		Dependencies: make([]verifyDependency, 0, len(statuses)),
	}
	for _, r := range results {
		report.Checks = append(report.Checks, verifyCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	for _, s := range statuses {
		report.Dependencies = append(report.Dependencies, verifyDependency{
			Name:      s.Name,
			Command:   s.Command,
			Optional:  s.Optional,
			Available: s.Available,
			Detail:    s.Detail,
		})
		if !s.Available && !s.Optional {
			report.Passed = false
		}
	}
	return report
}

func renderVerifyReport(cmd *cobra.Command, report verifyReport) {
	out := cmd.OutOrStdout()
	style := stylePlain
	if shouldColorize(out) {
		style = styleBoxed
	}

	checkRows := make([][]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		checkRows = append(checkRows, []string{c.Name, passLabel(c.Passed), c.Detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, checkRows, nil, style))

	if len(report.Dependencies) > 0 {
		depRows := make([][]string, 0, len(report.Dependencies))
		for _, d := range report.Dependencies {
			depRows = append(depRows, []string{d.Name, d.Command, yesNo(d.Available), yesNo(d.Optional), d.Detail})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "Available", "Optional", "Detail"}, depRows, nil, style))
	}

	if report.Passed {
		fmt.Fprintln(out, "\nAll checks passed")
	} else {
		fmt.Fprintln(out, "\nSome checks failed")
	}
}

func passLabel(passed bool) string {
	if passed {
		return "OK"
	}
	return "FAIL"
}
