package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/domain/exam"
	"github.com/imtihanhq/imtihanctl/internal/domain/section"
	"github.com/imtihanhq/imtihanctl/internal/domain/user"
	"github.com/urfave/cli/v3"
)

func adminCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "platform administration",
		Commands: []*cli.Command{
			adminLoginCommand(version),
			adminStatsCommand(version),
			adminUsersCommand(version),
			adminExamsCommand(version),
			adminSectionsCommand(version),
		},
	}
}

func adminLoginCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in as an administrator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			a, err := rt.services.Auth.AdminLogin(reqCtx, user.AdminLoginRequest{
				Email:    cmd.String("email"),
				Password: cmd.String("password"),
			})

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(a)
			}

			return rt.printMessage("Signed in as admin " + a.Name)
		},
	}
}

func adminStatsCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "platform-wide statistics",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			st, err := rt.services.Admin.Stats(reqCtx)

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(st)
			}

			rt.table(
				[]string{"USERS", "EXAMS", "SECTIONS", "SUBMISSIONS", "AVG SCORE"},
				[][]string{{
					strconv.Itoa(st.TotalUsers),
					strconv.Itoa(st.TotalExams),
					strconv.Itoa(st.TotalSections),
					strconv.Itoa(st.TotalSubmissions),
					fmt.Sprintf("%.1f", st.AverageScore),
				}},
			)

			for _, day := range st.SubmissionsLast7Days {
				fmt.Printf("%s  %d\n", day.Date, day.Count)
			}

			return nil
		},
	}
}

func adminUsersCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage accounts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list all users",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					users, err := rt.services.Admin.ListUsers(reqCtx)

					if err != nil {
						return renderError(err)
					}

					if rt.jsonOut {
						return rt.printJSON(users)
					}

					rows := make([][]string, 0, len(users))

					for _, u := range users {
						rows = append(rows, []string{u.ID, u.Name, u.Phone, u.Role, u.CreatedAt.Format(time.DateOnly)})
					}

					rt.table([]string{"ID", "NAME", "PHONE", "ROLE", "SINCE"}, rows)

					return nil
				},
			},
			{
				Name:  "create",
				Usage: "create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "phone", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "level"},
					&cli.StringFlag{Name: "role", Usage: "user or admin"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					u, err := rt.services.Admin.CreateUser(reqCtx, user.CreateUserRequest{
						Name:     cmd.String("name"),
						Phone:    cmd.String("phone"),
						Password: cmd.String("password"),
						Level:    cmd.String("level"),
						Role:     cmd.String("role"),
					})

					if err != nil {
						return renderError(err)
					}

					return rt.printMessage("Created user " + u.ID)
				},
			},
			{
				Name:      "update",
				Usage:     "update an account",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "phone"},
					&cli.StringFlag{Name: "level"},
					&cli.StringFlag{Name: "role"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()

					if id == "" {
						return cli.Exit("usage: imtihanctl admin users update <user-id> [flags]", 1)
					}

					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					req := user.UpdateUserRequest{
						Name:  stringFlagPtr(cmd, "name"),
						Phone: stringFlagPtr(cmd, "phone"),
						Level: stringFlagPtr(cmd, "level"),
						Role:  stringFlagPtr(cmd, "role"),
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					u, err := rt.services.Admin.UpdateUser(reqCtx, id, req)

					if err != nil {
						return renderError(err)
					}

					return rt.printMessage("Updated user " + u.ID)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete an account",
				ArgsUsage: "<user-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()

					if id == "" {
						return cli.Exit("usage: imtihanctl admin users delete <user-id>", 1)
					}

					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					if err := rt.services.Admin.DeleteUser(reqCtx, id); err != nil {
						return renderError(err)
					}

					return rt.printMessage("Deleted user " + id)
				},
			},
		},
	}
}

func adminExamsCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "exams",
		Usage: "manage exams",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create an exam from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON file with the exam definition", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					var req exam.CreateExamRequest

					if err := readJSONFile(cmd.String("file"), &req); err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					e, err := rt.services.Admin.CreateExam(reqCtx, req)

					if err != nil {
						return renderError(err)
					}

					return rt.printMessage("Created exam " + e.ID)
				},
			},
			{
				Name:      "update",
				Usage:     "update an exam",
				ArgsUsage: "<exam-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "section"},
					&cli.IntFlag{Name: "duration", Usage: "duration in minutes"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()

					if id == "" {
						return cli.Exit("usage: imtihanctl admin exams update <exam-id> [flags]", 1)
					}

					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					req := exam.UpdateExamRequest{
						Title:     stringFlagPtr(cmd, "title"),
						SectionID: stringFlagPtr(cmd, "section"),
					}

					if cmd.IsSet("duration") {
						minutes := int(cmd.Int("duration"))
						req.DurationMinutes = &minutes
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					e, err := rt.services.Admin.UpdateExam(reqCtx, id, req)

					if err != nil {
						return renderError(err)
					}

					return rt.printMessage("Updated exam " + e.ID)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete an exam",
				ArgsUsage: "<exam-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()

					if id == "" {
						return cli.Exit("usage: imtihanctl admin exams delete <exam-id>", 1)
					}

					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					if err := rt.services.Admin.DeleteExam(reqCtx, id); err != nil {
						return renderError(err)
					}

					return rt.printMessage("Deleted exam " + id)
				},
			},
		},
	}
}

func adminSectionsCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "sections",
		Usage: "manage sections",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a section",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					s, err := rt.services.Admin.CreateSection(reqCtx, section.CreateSectionRequest{
						Name:        cmd.String("name"),
						Description: cmd.String("description"),
					})

					if err != nil {
						return renderError(err)
					}

					return rt.printMessage("Created section " + s.ID)
				},
			},
			{
				Name:      "update",
				Usage:     "update a section",
				ArgsUsage: "<section-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "description"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()

					if id == "" {
						return cli.Exit("usage: imtihanctl admin sections update <section-id> [flags]", 1)
					}

					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					req := section.UpdateSectionRequest{
						Name:        stringFlagPtr(cmd, "name"),
						Description: stringFlagPtr(cmd, "description"),
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					s, err := rt.services.Admin.UpdateSection(reqCtx, id, req)

					if err != nil {
						return renderError(err)
					}

					return rt.printMessage("Updated section " + s.ID)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a section",
				ArgsUsage: "<section-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()

					if id == "" {
						return cli.Exit("usage: imtihanctl admin sections delete <section-id>", 1)
					}

					rt, err := newRuntime(cmd, version)

					if err != nil {
						return renderError(err)
					}

					reqCtx, cancel := rt.requestContext(ctx)
					defer cancel()

					if err := rt.services.Admin.DeleteSection(reqCtx, id); err != nil {
						return renderError(err)
					}

					return rt.printMessage("Deleted section " + id)
				},
			},
		},
	}
}

// stringFlagPtr returns nil when the flag was not set, so partial
// updates leave the field untouched.
func stringFlagPtr(cmd *cli.Command, name string) *string {
	if !cmd.IsSet(name) {
		return nil
	}

	v := cmd.String(name)

	return &v
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)

	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}
