package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/imtihanhq/imtihanctl/internal/client"
	"github.com/urfave/cli/v3"
)

func (r *runtime) printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func (r *runtime) printMessage(msg string) error {
	if r.jsonOut {
		return r.printJSON(map[string]string{"message": msg})
	}

	fmt.Println(msg)

	return nil
}

// table writes rows aligned with tabwriter. Logs go to stderr, so
// stdout stays parseable.
func (r *runtime) table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// renderError turns pipeline errors into exit-code-1 messages a person
// can act on.
func renderError(err error) error {
	if err == nil {
		return nil
	}

	var authErr *client.AuthRequiredError
	if errors.As(err, &authErr) {
		verb := "imtihanctl login"

		if authErr.LoginRoute == "/admin/login" {
			verb = "imtihanctl admin login"
		}

		return cli.Exit("Your session has ended. Sign in again with '"+verb+"'.", 1)
	}

	var forbidden *client.ForbiddenError
	if errors.As(err, &forbidden) {
		return cli.Exit("This command needs an admin session.", 1)
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		var b strings.Builder
		b.WriteString(apiErr.Message)

		for _, f := range apiErr.Fields {
			b.WriteString("\n  " + f.Field + ": " + fieldMessage(f))
		}

		if apiErr.RequestID != "" {
			b.WriteString("\n(request id " + apiErr.RequestID + ")")
		}

		return cli.Exit(b.String(), 1)
	}

	return cli.Exit(err.Error(), 1)
}

func fieldMessage(f client.FieldError) string {
	if f.Message != "" {
		return f.Message
	}

	if f.Param != "" {
		return f.Rule + "=" + f.Param
	}

	return f.Rule
}
