package cli

import (
	"context"
	"strconv"

	"github.com/urfave/cli/v3"
)

func sectionsCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "sections",
		Usage: "browse exam sections",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list all sections",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					sections, err := rt.services.Sections.List(reqCtx)

					if err != nil {
						return renderError(err)
					}

					if rt.jsonOut {
						return rt.printJSON(sections)
					}

					rows := make([][]string, 0, len(sections))

					for _, s := range sections {
						rows = append(rows, []string{s.ID, s.Name, strconv.Itoa(s.ExamCount)})
					}

					rt.table([]string{"ID", "NAME", "EXAMS"}, rows)

					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "show one section",
				ArgsUsage: "<section-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()

					if id == "" {
						return cli.Exit("usage: imtihanctl sections show <section-id>", 1)
					}

					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					s, err := rt.services.Sections.Get(reqCtx, id)

					if err != nil {
						return renderError(err)
					}

					if rt.jsonOut {
						return rt.printJSON(s)
					}

					rt.table(
						[]string{"ID", "NAME", "DESCRIPTION", "EXAMS"},
						[][]string{{s.ID, s.Name, s.Description, strconv.Itoa(s.ExamCount)}},
					)

					return nil
				},
			},
		},
	}
}
