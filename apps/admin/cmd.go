package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/user"
	"github.com/trezcool/qlearn/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	gooseRunFunc     = database.Migrate  // mockable

	errNoPassword = errors.New("a password is required")
	errNoDatabase = errors.New("migrations need the postgres engine")
)

type commandLine struct {
	db       *sql.DB // nil with the memory engine
	out      io.Writer
	users    user.Repository
	courses  course.Repository
	mappings mapping.Repository
	parents  parent.Repository
	events   event.Repository
}

// rootCmd builds a fresh command tree bound to cli.
func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "QLearn administration tasks",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.seedCmd(),
	)
	return root
}

// run executes args, without the program name.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	if args == nil {
		args = []string{} // cobra falls back to os.Args on nil
	}
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if strings.TrimSpace(string(pwd)) == "" {
		return "", errNoPassword
	}
	return string(pwd), nil
}
