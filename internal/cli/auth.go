package cli

import (
	"context"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/domain/user"
	"github.com/urfave/cli/v3"
)

func loginCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with phone and password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "phone", Usage: "phone number in international format", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			u, err := rt.services.Auth.Login(reqCtx, user.LoginRequest{
				Phone:    cmd.String("phone"),
				Password: cmd.String("password"),
			})

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(u)
			}

			return rt.printMessage("Signed in as " + u.Name + " (" + u.Phone + ")")
		},
	}
}

func registerCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "phone", Usage: "phone number in international format", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
			&cli.StringFlag{Name: "level", Usage: "study level"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			u, err := rt.services.Auth.Register(reqCtx, user.RegisterRequest{
				Name:     cmd.String("name"),
				Phone:    cmd.String("phone"),
				Password: cmd.String("password"),
				Level:    cmd.String("level"),
			})

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(u)
			}

			return rt.printMessage("Account created, signed in as " + u.Name)
		},
	}
}

func logoutCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "sign out and clear local state",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			if err := rt.services.Auth.Logout(reqCtx); err != nil {
				return renderError(err)
			}

			return rt.printMessage("Signed out.")
		},
	}
}

func whoamiCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the current session's profile",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			if rt.sess.Token() == "" {
				return cli.Exit("Not signed in. Run 'imtihanctl login'.", 1)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			u, err := rt.services.Users.Me(reqCtx)

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(u)
			}

			role := u.Role
			if rt.sess.IsAdmin() {
				role = "admin"
			}

			rt.table(
				[]string{"NAME", "PHONE", "EMAIL", "LEVEL", "ROLE", "SINCE"},
				[][]string{{u.Name, u.Phone, u.Email, u.Level, role, u.CreatedAt.Format(time.DateOnly)}},
			)

			return nil
		},
	}
}

func refreshCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "exchange the current token for a fresh one",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			if err := rt.services.Auth.Refresh(reqCtx); err != nil {
				return renderError(err)
			}

			return rt.printMessage("Token refreshed.")
		},
	}
}
