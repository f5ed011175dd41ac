package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/imtihanhq/imtihanctl/internal/attempt"
	"github.com/imtihanhq/imtihanctl/internal/domain/exam"
	"github.com/urfave/cli/v3"
)

func examsCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "exams",
		Usage: "browse exams and work on attempts",
		Commands: []*cli.Command{
			examsListCommand(version),
			examsShowCommand(version),
			examsStartCommand(version),
			examsAnswerCommand(version),
			examsStatusCommand(version),
			examsSubmitCommand(version),
		},
	}
}

func examsListCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list available exams",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "section", Usage: "filter by section id"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "title search"},
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.StringFlag{Name: "cursor", Usage: "page cursor from a previous call"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			filter := exam.ListFilter{
				Limit:  int(cmd.Int("limit")),
				Cursor: cmd.String("cursor"),
			}

			if v := cmd.String("section"); v != "" {
				filter.SectionID = &v
			}
			if v := cmd.String("query"); v != "" {
				filter.Query = &v
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			exams, next, err := rt.services.Exams.List(reqCtx, filter)

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(map[string]any{"exams": exams, "nextCursor": next})
			}

			rows := make([][]string, 0, len(exams))

			for _, e := range exams {
				rows = append(rows, []string{
					e.ID, e.Title, e.SectionName,
					strconv.Itoa(e.DurationMinutes) + "m",
					strconv.Itoa(e.QuestionCount),
					strconv.Itoa(e.TotalPoints),
				})
			}

			rt.table([]string{"ID", "TITLE", "SECTION", "DURATION", "QUESTIONS", "POINTS"}, rows)

			if next != "" {
				fmt.Println("\nnext page: --cursor " + next)
			}

			return nil
		},
	}
}

func examsShowCommand(version string) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "show one exam with its questions",
		ArgsUsage: "<exam-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()

			if id == "" {
				return cli.Exit("usage: imtihanctl exams show <exam-id>", 1)
			}

			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			e, err := rt.services.Exams.Get(reqCtx, id)

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(e)
			}

			fmt.Printf("%s: %s (%d questions, %d points, %dm)\n\n",
				e.ID, e.Title, len(e.Questions), e.TotalPoints, e.DurationMinutes)

			for i, q := range e.Questions {
				kind := "single choice"
				if q.Multiple {
					kind = "multiple choice"
				}

				fmt.Printf("%d. [%s] %s (%d pts, %s)\n", i+1, q.ID, q.Text, q.Points, kind)

				for _, opt := range q.Options {
					fmt.Printf("     [%s] %s\n", opt.ID, opt.Text)
				}
			}

			return nil
		},
	}
}

func examsStartCommand(version string) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "start a local attempt for an exam",
		ArgsUsage: "<exam-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()

			if id == "" {
				return cli.Exit("usage: imtihanctl exams start <exam-id>", 1)
			}

			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			if existing, loadErr := rt.attempts.Load(id); loadErr == nil {
				if existing.Status == attempt.StatusInProgress {
					return cli.Exit("An attempt for this exam is already in progress.", 1)
				}
				return cli.Exit("This exam was already submitted.", 1)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			e, err := rt.services.Exams.Get(reqCtx, id)

			if err != nil {
				return renderError(err)
			}

			d := attempt.NewDraft(e)

			if err := rt.attempts.Save(d); err != nil {
				return renderError(err)
			}

			return rt.printMessage(fmt.Sprintf("Started %q: %d questions, %d minutes. Answer with 'imtihanctl exams answer %s <question-id> <option-id>...'.",
				e.Title, d.QuestionCount, e.DurationMinutes, id))
		},
	}
}

func examsAnswerCommand(version string) *cli.Command {
	return &cli.Command{
		Name:      "answer",
		Usage:     "record an answer on the local attempt",
		ArgsUsage: "<exam-id> <question-id> <option-id> [option-id...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()

			if len(args) < 3 {
				return cli.Exit("usage: imtihanctl exams answer <exam-id> <question-id> <option-id> [option-id...]", 1)
			}

			examID, questionID, optionIDs := args[0], args[1], args[2:]

			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			d, err := rt.attempts.Load(examID)

			if err != nil {
				if errors.Is(err, attempt.ErrNotFound) {
					return cli.Exit("No attempt in progress. Run 'imtihanctl exams start "+examID+"' first.", 1)
				}
				return renderError(err)
			}

			if err := d.Answer(questionID, optionIDs); err != nil {
				return renderError(err)
			}

			if err := rt.attempts.Save(d); err != nil {
				return renderError(err)
			}

			return rt.printMessage(fmt.Sprintf("Recorded %s -> %s (%d/%d answered)",
				questionID, strings.Join(optionIDs, ","), len(d.Answers), d.QuestionCount))
		},
	}
}

func examsStatusCommand(version string) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "show attempt progress for an exam",
		ArgsUsage: "<exam-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()

			if id == "" {
				return cli.Exit("usage: imtihanctl exams status <exam-id>", 1)
			}

			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			d, err := rt.attempts.Load(id)

			if err != nil {
				if errors.Is(err, attempt.ErrNotFound) {
					return cli.Exit("No attempt for this exam.", 1)
				}
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			e, err := rt.services.Exams.Get(reqCtx, id)

			if err != nil {
				return renderError(err)
			}

			report, err := attempt.ValidateAgainst(d, e)

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(map[string]any{
					"status":     d.Status,
					"answered":   report.Answered,
					"total":      report.Total,
					"unanswered": report.Unanswered,
				})
			}

			fmt.Printf("%s: %s, %d/%d answered\n", d.ExamTitle, d.Status, report.Answered, report.Total)

			if len(report.Unanswered) > 0 {
				fmt.Println("unanswered: " + strings.Join(report.Unanswered, ", "))
			}

			return nil
		},
	}
}

func examsSubmitCommand(version string) *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "submit the local attempt for grading",
		ArgsUsage: "<exam-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "partial", Usage: "allow submitting with unanswered questions"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()

			if id == "" {
				return cli.Exit("usage: imtihanctl exams submit <exam-id>", 1)
			}

			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			d, err := rt.attempts.Load(id)

			if err != nil {
				if errors.Is(err, attempt.ErrNotFound) {
					return cli.Exit("No attempt in progress. Run 'imtihanctl exams start "+id+"' first.", 1)
				}
				return renderError(err)
			}

			if d.Status == attempt.StatusSubmitted {
				return cli.Exit("This attempt was already submitted.", 1)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			e, err := rt.services.Exams.Get(reqCtx, id)

			if err != nil {
				return renderError(err)
			}

			report, err := attempt.ValidateAgainst(d, e)

			if err != nil {
				return renderError(err)
			}

			if !report.Complete() && !cmd.Bool("partial") {
				return cli.Exit(fmt.Sprintf("Only %d of %d questions answered. Use --partial to submit anyway.",
					report.Answered, report.Total), 1)
			}

			res, err := rt.services.Exams.Submit(reqCtx, id, attempt.BuildSubmission(d))

			if err != nil {
				return renderError(err)
			}

			if err := d.MarkSubmitted(); err == nil {
				if saveErr := rt.attempts.Save(d); saveErr != nil {
					return renderError(saveErr)
				}
			}

			if rt.jsonOut {
				return rt.printJSON(res)
			}

			verdict := "failed"
			if res.Passed {
				verdict = "passed"
			}

			return rt.printMessage(fmt.Sprintf("Score: %d/%d (%.1f%%), %s",
				res.Score, res.TotalPoints, res.Percent, verdict))
		},
	}
}
